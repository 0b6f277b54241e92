package fraud

import (
	"context"
	"fmt"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// BackgroundEvaluator screens enhanced-tier applicants through the external
// background check provider and converts the derived clearance into a
// single identity pattern.
type BackgroundEvaluator struct {
	checker BackgroundChecker
}

func NewBackgroundEvaluator(checker BackgroundChecker) *BackgroundEvaluator {
	return &BackgroundEvaluator{checker: checker}
}

// Name identifies the evaluator in logs and metrics.
func (e *BackgroundEvaluator) Name() string { return EvaluatorBackground }

// Applicable limits screening to the enhanced tier; lower tiers never incur
// the provider call.
func (e *BackgroundEvaluator) Applicable(input *AssessmentInput) bool {
	return input.Tier == applicant.TierEnhanced && e.checker != nil
}

// Evaluate runs the external check and scores the derived clearance.
func (e *BackgroundEvaluator) Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error) {
	report, err := e.checker.Check(ctx, input.ApplicantID, input.Personal)
	if err != nil {
		return nil, fmt.Errorf("background check for %s: %w", input.ApplicantID, err)
	}

	clearance := report.Clearance()
	if clearance.Passed() {
		return nil, nil
	}

	var impact float64
	switch clearance {
	case assessment.ClearanceRejected:
		impact = 1.0
	case assessment.ClearanceFlagged:
		impact = 0.8
	case assessment.ClearanceConditional:
		impact = 0.5
	}

	return []assessment.DetectedPattern{
		assessment.NewDetectedPattern(
			PatternBackgroundCheckFailure,
			assessment.CategoryIdentity,
			0.9, impact,
			reportEvidence(report, clearance)...,
		),
	}, nil
}

// reportEvidence flattens the screening findings into evidence lines,
// leading with the derived clearance.
func reportEvidence(report *BackgroundCheckReport, clearance assessment.Clearance) []string {
	evidence := []string{fmt.Sprintf("background check clearance: %s", clearance)}

	if report.SanctionsHit {
		source := report.SanctionsSource
		if source == "" {
			source = "unspecified list"
		}
		evidence = append(evidence, "sanctions list match: "+source)
	}

	for _, rec := range report.Criminal {
		evidence = append(evidence, fmt.Sprintf("criminal record: %s (%s, %d)", rec.Offense, rec.Severity, rec.Year))
	}

	for _, claim := range report.Education {
		if claim.Fraudulent {
			evidence = append(evidence, fmt.Sprintf("fraudulent education claim: %s at %s", claim.Credential, claim.Institution))
		}
	}

	return evidence
}

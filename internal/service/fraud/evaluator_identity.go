package fraud

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// IdentityEvaluator cross-references the declared identity against
// document-extracted fields and the known-fraud reference list.
type IdentityEvaluator struct {
	references ReferenceChecker
}

// NewIdentityEvaluator creates the identity evaluator. The reference
// checker may be nil when no known-fraud source is configured; field
// consistency checks still run.
func NewIdentityEvaluator(references ReferenceChecker) *IdentityEvaluator {
	return &IdentityEvaluator{references: references}
}

// Name identifies the evaluator in logs and metrics.
func (e *IdentityEvaluator) Name() string { return EvaluatorIdentity }

// Applicable always holds: every submission declares an identity.
func (e *IdentityEvaluator) Applicable(input *AssessmentInput) bool {
	return true
}

// Evaluate compares declared fields pairwise against each document's
// extracted fields and consults the known-fraud reference list.
func (e *IdentityEvaluator) Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error) {
	var patterns []assessment.DetectedPattern

	if evidence := fieldMismatches(input.Personal, input.Documents); len(evidence) > 0 {
		confidence := math.Min(0.95, 0.6+0.15*float64(len(evidence)))
		patterns = append(patterns, assessment.NewDetectedPattern(
			PatternIdentityInconsistency,
			assessment.CategoryIdentity,
			confidence, 0.7,
			evidence...,
		))
	}

	if e.references != nil {
		ref, err := e.references.CheckIdentity(ctx, input.Personal)
		if err != nil {
			return nil, fmt.Errorf("known-fraud reference lookup: %w", err)
		}
		if ref != nil && ref.Flagged {
			evidence := fmt.Sprintf("identity flagged by %s: %s", ref.Source, ref.Reason)
			patterns = append(patterns, assessment.NewDetectedPattern(
				PatternKnownFraudIdentity,
				assessment.CategoryIdentity,
				0.95, 1.0,
				evidence,
			))
		}
	}

	return patterns, nil
}

// fieldMismatches returns one evidence line per declared field that
// disagrees with a document's extracted value. Empty extracted fields are
// no signal; only populated pairs are compared.
func fieldMismatches(declared applicant.PersonalInfo, docs []applicant.Document) []string {
	var evidence []string

	for _, doc := range docs {
		m := doc.Metadata

		if m.ExtractedName != "" && !fieldsMatch(declared.FullName, m.ExtractedName) {
			evidence = append(evidence,
				fmt.Sprintf("document %s: extracted name does not match declared name", doc.ID))
		}
		if m.ExtractedDateOfBirth != "" && !fieldsMatch(declared.DateOfBirth, m.ExtractedDateOfBirth) {
			evidence = append(evidence,
				fmt.Sprintf("document %s: extracted date of birth does not match declared value", doc.ID))
		}
		if m.ExtractedAddress != "" && !fieldsMatch(declared.Address, m.ExtractedAddress) {
			evidence = append(evidence,
				fmt.Sprintf("document %s: extracted address does not match declared address", doc.ID))
		}
	}

	return evidence
}

// fieldsMatch compares two identity fields ignoring case and surrounding
// or repeated whitespace.
func fieldsMatch(a, b string) bool {
	return normalizeField(a) == normalizeField(b)
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

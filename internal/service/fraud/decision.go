package fraud

import (
	"fmt"
	"sync"
	"time"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

// requestInfoDeadline is how long an applicant gets to supply additional
// documentation before the request escalates.
const requestInfoDeadline = 7 * 24 * time.Hour

// Decision is the policy outcome derived from a score and its findings.
type Decision struct {
	RiskLevel            assessment.RiskLevel
	RequiresManualReview bool
	AutoReject           bool
	Recommendations      []assessment.FraudRecommendation
}

// DecisionEngine classifies risk scores and derives recommendations.
// Thresholds are runtime-tunable; reads take the lock so admin updates are
// visible to in-flight assessments at a consistent point.
type DecisionEngine struct {
	mu         sync.RWMutex
	thresholds RiskThresholds
	alerts     AlertSettings
}

// NewDecisionEngine creates a decision engine, rejecting misordered
// thresholds up front.
func NewDecisionEngine(thresholds RiskThresholds, alerts AlertSettings) (*DecisionEngine, error) {
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}
	if err := validateAlertSettings(alerts); err != nil {
		return nil, err
	}
	return &DecisionEngine{
		thresholds: thresholds,
		alerts:     alerts,
	}, nil
}

// Classify maps a score onto a risk level by checking thresholds in
// descending order.
func (d *DecisionEngine) Classify(score float64) assessment.RiskLevel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.classify(score)
}

func (d *DecisionEngine) classify(score float64) assessment.RiskLevel {
	switch {
	case score >= d.thresholds.Critical:
		return assessment.RiskLevelCritical
	case score >= d.thresholds.High:
		return assessment.RiskLevelHigh
	case score >= d.thresholds.Medium:
		return assessment.RiskLevelMedium
	default:
		return assessment.RiskLevelLow
	}
}

// Decide derives the full policy outcome for a scored assessment.
// Recommendations are additive: one tier-level entry from the score plus
// pattern-level entries for findings that demand a specific action
// regardless of the overall score.
func (d *DecisionEngine) Decide(score float64, patterns []assessment.DetectedPattern) Decision {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dec := Decision{
		RiskLevel:            d.classify(score),
		RequiresManualReview: score >= d.thresholds.Medium,
		AutoReject:           score >= d.alerts.AutoRejectThreshold,
	}

	switch {
	case score >= d.alerts.AutoRejectThreshold:
		dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
			Type:           assessment.RecommendationReject,
			Priority:       assessment.PriorityUrgent,
			Description:    "Risk score exceeds the auto-reject threshold",
			ActionRequired: true,
		})
	case score >= d.alerts.EscalationThreshold:
		dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
			Type:           assessment.RecommendationEscalate,
			Priority:       assessment.PriorityHigh,
			Description:    "Risk score exceeds the escalation threshold",
			ActionRequired: true,
		})
	case score >= d.thresholds.Medium:
		dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
			Type:           assessment.RecommendationInvestigate,
			Priority:       assessment.PriorityMedium,
			Description:    "Elevated risk score requires review before a decision",
			ActionRequired: true,
		})
	default:
		if len(patterns) > 0 {
			dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
				Type:        assessment.RecommendationMonitor,
				Priority:    assessment.PriorityLow,
				Description: "Low risk with minor findings; monitor future submissions",
			})
		}
	}

	for _, p := range patterns {
		switch p.PatternID {
		case PatternDocumentHashCollision:
			deadline := time.Now().UTC().Add(requestInfoDeadline)
			dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
				Type:           assessment.RecommendationRequestAdditionalInfo,
				Priority:       assessment.PriorityHigh,
				Description:    "Document hash matches a submission from another applicant; request original documents",
				ActionRequired: true,
				Deadline:       &deadline,
			})
		case PatternKnownFraudIdentity:
			dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
				Type:           assessment.RecommendationEscalate,
				Priority:       assessment.PriorityUrgent,
				Description:    "Identity matches a known fraud record; escalate to the investigations team",
				ActionRequired: true,
			})
		case PatternRapidSubmissions:
			dec.Recommendations = append(dec.Recommendations, assessment.FraudRecommendation{
				Type:        assessment.RecommendationMonitor,
				Priority:    assessment.PriorityMedium,
				Description: "Submission burst detected; watch for further rapid activity",
			})
		}
	}

	return dec
}

// Thresholds returns the current classification thresholds.
func (d *DecisionEngine) Thresholds() RiskThresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.thresholds
}

// AlertSettings returns the current alerting policy.
func (d *DecisionEngine) AlertSettings() AlertSettings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alerts
}

// SetThresholds replaces the classification thresholds.
func (d *DecisionEngine) SetThresholds(t RiskThresholds) error {
	if err := validateThresholds(t); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thresholds = t
	return nil
}

// SetAlertSettings replaces the alerting policy.
func (d *DecisionEngine) SetAlertSettings(a AlertSettings) error {
	if err := validateAlertSettings(a); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = a
	return nil
}

func validateThresholds(t RiskThresholds) error {
	for name, v := range map[string]float64{
		"low": t.Low, "medium": t.Medium, "high": t.High, "critical": t.Critical,
	} {
		if v < 0 || v > 1 {
			return errors.NewValidationError("INVALID_THRESHOLD",
				fmt.Sprintf("%s threshold must be within [0, 1]", name))
		}
	}
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return errors.NewValidationError("INVALID_THRESHOLD",
			"risk thresholds must be strictly increasing: low < medium < high < critical")
	}
	return nil
}

func validateAlertSettings(a AlertSettings) error {
	if a.EscalationThreshold < 0 || a.EscalationThreshold > 1 {
		return errors.NewValidationError("INVALID_THRESHOLD", "escalation threshold must be within [0, 1]")
	}
	if a.AutoRejectThreshold < 0 || a.AutoRejectThreshold > 1 {
		return errors.NewValidationError("INVALID_THRESHOLD", "auto-reject threshold must be within [0, 1]")
	}
	return nil
}

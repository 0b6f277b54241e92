package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the four-tier classification derived from the overall risk
// score via configured thresholds.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// RecommendationType names the remediation action a verdict suggests.
type RecommendationType string

const (
	RecommendationInvestigate           RecommendationType = "investigate"
	RecommendationReject                RecommendationType = "reject"
	RecommendationRequestAdditionalInfo RecommendationType = "request_additional_info"
	RecommendationEscalate              RecommendationType = "escalate"
	RecommendationMonitor               RecommendationType = "monitor"
)

// Priority orders recommendations for the consuming workflow.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// FraudRecommendation is one remediation action attached to a verdict.
// Lists are additive: a result may carry a tier-level recommendation plus
// several pattern-level ones.
type FraudRecommendation struct {
	Type           RecommendationType `json:"type"`
	Priority       Priority           `json:"priority"`
	Description    string             `json:"description"`
	ActionRequired bool               `json:"action_required"`
	Deadline       *time.Time         `json:"deadline,omitempty"`
}

// FraudAnalysisResult is the final verdict for one assessment run. It is
// immutable after creation; the persistence sink stores it as-is.
//
// AutoReject does not imply RequiresManualReview: auto-reject bypasses
// review entirely. Both flags are emitted and the consuming workflow
// decides, with auto-reject taking operational precedence.
type FraudAnalysisResult struct {
	ID                   uuid.UUID             `json:"id"`
	ApplicantID          string                `json:"applicant_id"`
	OverallRiskScore     float64               `json:"overall_risk_score"`
	RiskLevel            RiskLevel             `json:"risk_level"`
	DetectedPatterns     []DetectedPattern     `json:"detected_patterns"`
	Recommendations      []FraudRecommendation `json:"recommendations"`
	RequiresManualReview bool                  `json:"requires_manual_review"`
	AutoReject           bool                  `json:"auto_reject"`
	AnalysisTimestamp    time.Time             `json:"analysis_timestamp"`
}

// NewFraudAnalysisResult stamps a verdict with a fresh ID and timestamp.
func NewFraudAnalysisResult(applicantID string, score float64, level RiskLevel) (*FraudAnalysisResult, error) {
	if applicantID == "" {
		return nil, fmt.Errorf("applicant ID cannot be empty")
	}
	if score < 0 || score > 1 {
		return nil, fmt.Errorf("overall risk score must be in [0,1], got %v", score)
	}
	if !level.IsValid() {
		return nil, fmt.Errorf("invalid risk level: %q", level)
	}

	return &FraudAnalysisResult{
		ID:                uuid.New(),
		ApplicantID:       applicantID,
		OverallRiskScore:  score,
		RiskLevel:         level,
		DetectedPatterns:  []DetectedPattern{},
		Recommendations:   []FraudRecommendation{},
		AnalysisTimestamp: time.Now().UTC(),
	}, nil
}

// HasPattern reports whether a finding for the given catalog id is present.
func (r *FraudAnalysisResult) HasPattern(patternID string) bool {
	for _, p := range r.DetectedPatterns {
		if p.PatternID == patternID {
			return true
		}
	}
	return false
}

// PatternsInCategory returns the findings belonging to one category.
func (r *FraudAnalysisResult) PatternsInCategory(category PatternCategory) []DetectedPattern {
	var out []DetectedPattern
	for _, p := range r.DetectedPatterns {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

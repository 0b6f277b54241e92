package assessment_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

func TestNewFraudPattern(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		category assessment.PatternCategory
		severity assessment.Severity
		weight   float64
		wantErr  string
	}{
		{
			name:     "valid pattern",
			id:       "document-hash-collision",
			category: assessment.CategoryDocument,
			severity: assessment.SeverityCritical,
			weight:   0.9,
		},
		{
			name:     "empty id rejected",
			id:       "",
			category: assessment.CategoryDocument,
			severity: assessment.SeverityLow,
			weight:   0.5,
			wantErr:  "id cannot be empty",
		},
		{
			name:     "unknown category rejected",
			id:       "p1",
			category: assessment.PatternCategory("financial"),
			severity: assessment.SeverityLow,
			weight:   0.5,
			wantErr:  "invalid pattern category",
		},
		{
			name:     "unknown severity rejected",
			id:       "p1",
			category: assessment.CategoryNetwork,
			severity: assessment.Severity("fatal"),
			weight:   0.5,
			wantErr:  "invalid pattern severity",
		},
		{
			name:     "weight above one rejected",
			id:       "p1",
			category: assessment.CategoryNetwork,
			severity: assessment.SeverityLow,
			weight:   1.2,
			wantErr:  "weight must be in [0,1]",
		},
		{
			name:     "negative weight rejected",
			id:       "p1",
			category: assessment.CategoryNetwork,
			severity: assessment.SeverityLow,
			weight:   -0.1,
			wantErr:  "weight must be in [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := assessment.NewFraudPattern(tt.id, "name", tt.category, tt.severity, tt.weight)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Active)
			assert.Equal(t, tt.weight, p.Weight)
		})
	}
}

func TestNewDetectedPattern_ClampsToUnitInterval(t *testing.T) {
	tests := []struct {
		name           string
		confidence     float64
		impact         float64
		wantConfidence float64
		wantImpact     float64
	}{
		{name: "in range untouched", confidence: 0.4, impact: 0.8, wantConfidence: 0.4, wantImpact: 0.8},
		{name: "above one clamped", confidence: 1.7, impact: 2.0, wantConfidence: 1.0, wantImpact: 1.0},
		{name: "negative clamped", confidence: -0.3, impact: -1, wantConfidence: 0, wantImpact: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := assessment.NewDetectedPattern("suspicious-ip", assessment.CategoryNetwork, tt.confidence, tt.impact, "evidence line")
			assert.Equal(t, tt.wantConfidence, p.Confidence)
			assert.Equal(t, tt.wantImpact, p.Impact)
			assert.Equal(t, []string{"evidence line"}, p.Evidence)
		})
	}
}

func TestNewFraudAnalysisResult(t *testing.T) {
	r, err := assessment.NewFraudAnalysisResult("applicant-9", 0.42, assessment.RiskLevelMedium)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, "applicant-9", r.ApplicantID)
	assert.Equal(t, 0.42, r.OverallRiskScore)
	assert.NotZero(t, r.AnalysisTimestamp)
	assert.Empty(t, r.DetectedPatterns)

	_, err = assessment.NewFraudAnalysisResult("", 0.42, assessment.RiskLevelMedium)
	require.Error(t, err)

	_, err = assessment.NewFraudAnalysisResult("applicant-9", 1.2, assessment.RiskLevelMedium)
	require.Error(t, err)
}

func TestFraudAnalysisResult_HasPattern(t *testing.T) {
	r, err := assessment.NewFraudAnalysisResult("applicant-9", 0.9, assessment.RiskLevelCritical)
	require.NoError(t, err)

	r.DetectedPatterns = append(r.DetectedPatterns,
		assessment.NewDetectedPattern("document-hash-collision", assessment.CategoryDocument, 0.95, 0.9),
		assessment.NewDetectedPattern("suspicious-ip", assessment.CategoryNetwork, 0.6, 0.5),
	)

	assert.True(t, r.HasPattern("document-hash-collision"))
	assert.False(t, r.HasPattern("identity-inconsistency"))
	assert.Len(t, r.PatternsInCategory(assessment.CategoryDocument), 1)
	assert.Empty(t, r.PatternsInCategory(assessment.CategoryIdentity))
}

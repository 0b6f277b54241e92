package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

func newTestDecisionEngine(t *testing.T) *DecisionEngine {
	t.Helper()
	defaults := DefaultSettings()
	engine, err := NewDecisionEngine(defaults.Thresholds, defaults.Alerts)
	require.NoError(t, err)
	return engine
}

func TestNewDecisionEngine_Validation(t *testing.T) {
	valid := DefaultSettings()

	tests := []struct {
		name       string
		thresholds RiskThresholds
		alerts     AlertSettings
		wantErr    bool
	}{
		{
			name:       "defaults are valid",
			thresholds: valid.Thresholds,
			alerts:     valid.Alerts,
		},
		{
			name:       "misordered thresholds rejected",
			thresholds: RiskThresholds{Low: 0.0, Medium: 0.6, High: 0.4, Critical: 0.8},
			alerts:     valid.Alerts,
			wantErr:    true,
		},
		{
			name:       "equal thresholds rejected",
			thresholds: RiskThresholds{Low: 0.0, Medium: 0.4, High: 0.4, Critical: 0.8},
			alerts:     valid.Alerts,
			wantErr:    true,
		},
		{
			name:       "threshold above one rejected",
			thresholds: RiskThresholds{Low: 0.0, Medium: 0.4, High: 0.6, Critical: 1.2},
			alerts:     valid.Alerts,
			wantErr:    true,
		},
		{
			name:       "negative escalation threshold rejected",
			thresholds: valid.Thresholds,
			alerts:     AlertSettings{EscalationThreshold: -0.1, AutoRejectThreshold: 0.95},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecisionEngine(tt.thresholds, tt.alerts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecisionEngine_Classify(t *testing.T) {
	engine := newTestDecisionEngine(t)

	// Defaults: medium 0.4, high 0.6, critical 0.8. Ranges are right-open
	// on the upper threshold, so a boundary score lands in the higher tier.
	tests := []struct {
		score float64
		want  assessment.RiskLevel
	}{
		{0.0, assessment.RiskLevelLow},
		{0.39, assessment.RiskLevelLow},
		{0.4, assessment.RiskLevelMedium},
		{0.59, assessment.RiskLevelMedium},
		{0.6, assessment.RiskLevelHigh},
		{0.79, assessment.RiskLevelHigh},
		{0.8, assessment.RiskLevelCritical},
		{1.0, assessment.RiskLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.Classify(tt.score), "score %v", tt.score)
	}
}

func TestDecisionEngine_ClassifyMonotonic(t *testing.T) {
	engine := newTestDecisionEngine(t)

	rank := map[assessment.RiskLevel]int{
		assessment.RiskLevelLow:      0,
		assessment.RiskLevelMedium:   1,
		assessment.RiskLevelHigh:     2,
		assessment.RiskLevelCritical: 3,
	}

	prev := rank[engine.Classify(0)]
	for score := 0.01; score <= 1.0; score += 0.01 {
		cur := rank[engine.Classify(score)]
		assert.GreaterOrEqual(t, cur, prev, "risk level regressed at score %v", score)
		prev = cur
	}
}

func TestDecisionEngine_AutoRejectMatchesThreshold(t *testing.T) {
	engine := newTestDecisionEngine(t)

	for _, tt := range []struct {
		score float64
		want  bool
	}{
		{0.0, false},
		{0.9499, false},
		{0.95, true},
		{1.0, true},
	} {
		dec := engine.Decide(tt.score, nil)
		assert.Equal(t, tt.want, dec.AutoReject, "score %v", tt.score)
	}
}

func TestDecisionEngine_Decide_TierRecommendations(t *testing.T) {
	engine := newTestDecisionEngine(t)
	somePattern := []assessment.DetectedPattern{
		assessment.NewDetectedPattern(PatternLocationInconsistency, assessment.CategoryNetwork, 0.6, 0.6),
	}

	tests := []struct {
		name         string
		score        float64
		patterns     []assessment.DetectedPattern
		wantType     assessment.RecommendationType
		wantPriority assessment.Priority
		wantReview   bool
	}{
		{
			name:         "auto-reject tier",
			score:        0.96,
			wantType:     assessment.RecommendationReject,
			wantPriority: assessment.PriorityUrgent,
			wantReview:   true,
		},
		{
			name:         "escalation tier",
			score:        0.85,
			wantType:     assessment.RecommendationEscalate,
			wantPriority: assessment.PriorityHigh,
			wantReview:   true,
		},
		{
			name:         "investigate tier",
			score:        0.5,
			wantType:     assessment.RecommendationInvestigate,
			wantPriority: assessment.PriorityMedium,
			wantReview:   true,
		},
		{
			name:         "low score with findings gets monitoring",
			score:        0.2,
			patterns:     somePattern,
			wantType:     assessment.RecommendationMonitor,
			wantPriority: assessment.PriorityLow,
			wantReview:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := engine.Decide(tt.score, tt.patterns)
			require.NotEmpty(t, dec.Recommendations)
			assert.Equal(t, tt.wantType, dec.Recommendations[0].Type)
			assert.Equal(t, tt.wantPriority, dec.Recommendations[0].Priority)
			assert.Equal(t, tt.wantReview, dec.RequiresManualReview)
		})
	}

	t.Run("clean low score yields no recommendations", func(t *testing.T) {
		dec := engine.Decide(0.1, nil)
		assert.Empty(t, dec.Recommendations)
		assert.False(t, dec.RequiresManualReview)
		assert.False(t, dec.AutoReject)
	})
}

func TestDecisionEngine_Decide_PatternRecommendations(t *testing.T) {
	engine := newTestDecisionEngine(t)

	t.Run("hash collision always requests additional documents", func(t *testing.T) {
		patterns := []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternDocumentHashCollision, assessment.CategoryDocument, 0.95, 0.95),
		}
		// Even at a low score the collision demands follow-up.
		dec := engine.Decide(0.1, patterns)

		rec := findRecommendation(t, dec, assessment.RecommendationRequestAdditionalInfo)
		assert.Equal(t, assessment.PriorityHigh, rec.Priority)
		assert.True(t, rec.ActionRequired)
		require.NotNil(t, rec.Deadline)
		assert.WithinDuration(t, time.Now().UTC().Add(requestInfoDeadline), *rec.Deadline, time.Minute)
	})

	t.Run("known fraud identity escalates urgently", func(t *testing.T) {
		patterns := []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternKnownFraudIdentity, assessment.CategoryIdentity, 0.95, 1),
		}
		dec := engine.Decide(0.9, patterns)

		rec := findRecommendation(t, dec, assessment.RecommendationEscalate)
		assert.Equal(t, assessment.PriorityUrgent, rec.Priority)
		assert.True(t, rec.ActionRequired)
	})

	t.Run("rapid submissions adds monitoring", func(t *testing.T) {
		patterns := []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternRapidSubmissions, assessment.CategoryBehavioral, 0.9, 0.6),
		}
		dec := engine.Decide(0.45, patterns)

		rec := findRecommendation(t, dec, assessment.RecommendationMonitor)
		assert.Equal(t, assessment.PriorityMedium, rec.Priority)
	})
}

func TestDecisionEngine_RuntimeUpdates(t *testing.T) {
	engine := newTestDecisionEngine(t)

	require.NoError(t, engine.SetThresholds(RiskThresholds{Low: 0.1, Medium: 0.3, High: 0.5, Critical: 0.7}))
	assert.Equal(t, assessment.RiskLevelCritical, engine.Classify(0.75))

	assert.Error(t, engine.SetThresholds(RiskThresholds{Low: 0.5, Medium: 0.3, High: 0.5, Critical: 0.7}),
		"invalid replacement rejected")
	assert.Equal(t, assessment.RiskLevelCritical, engine.Classify(0.75),
		"rejected update leaves previous thresholds in place")

	require.NoError(t, engine.SetAlertSettings(AlertSettings{
		EnableRealTimeAlerts: false,
		EscalationThreshold:  0.5,
		AutoRejectThreshold:  0.6,
	}))
	dec := engine.Decide(0.65, nil)
	assert.True(t, dec.AutoReject)
}

func findRecommendation(t *testing.T, dec Decision, typ assessment.RecommendationType) assessment.FraudRecommendation {
	t.Helper()
	for _, rec := range dec.Recommendations {
		if rec.Type == typ {
			return rec
		}
	}
	t.Fatalf("no recommendation of type %s in %+v", typ, dec.Recommendations)
	return assessment.FraudRecommendation{}
}

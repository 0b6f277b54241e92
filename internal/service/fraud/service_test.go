package fraud

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

func newTestService(t *testing.T, evaluators []Evaluator, results ResultRepository, alerts AlertNotifier, settings *Settings) Service {
	t.Helper()
	svc, err := NewService(NewPatternRegistry(), evaluators, results, nil, alerts, discardLogger(), settings)
	require.NoError(t, err)
	return svc
}

func minimalInput() *AssessmentInput {
	return &AssessmentInput{
		ApplicantID: "a-1",
		Tier:        applicant.TierBasic,
		SubmittedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewService_Validation(t *testing.T) {
	t.Run("misordered thresholds rejected", func(t *testing.T) {
		settings := DefaultSettings()
		settings.Thresholds = RiskThresholds{Low: 0, Medium: 0.6, High: 0.4, Critical: 0.8}
		_, err := NewService(nil, nil, nil, nil, nil, discardLogger(), settings)
		require.Error(t, err)
	})

	t.Run("out-of-range category weight rejected", func(t *testing.T) {
		settings := DefaultSettings()
		settings.CategoryWeights = map[assessment.PatternCategory]float64{
			assessment.CategoryDocument: 1.5,
		}
		_, err := NewService(nil, nil, nil, nil, nil, discardLogger(), settings)
		require.Error(t, err)
	})

	t.Run("nil settings apply defaults", func(t *testing.T) {
		svc, err := NewService(nil, nil, nil, nil, nil, discardLogger(), nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestAnalyzeFraudRisk_InputValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, nil, nil, nil)

	t.Run("nil input", func(t *testing.T) {
		_, err := svc.AnalyzeFraudRisk(ctx, nil)
		require.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("missing applicant id", func(t *testing.T) {
		input := minimalInput()
		input.ApplicantID = ""
		_, err := svc.AnalyzeFraudRisk(ctx, input)
		require.ErrorIs(t, err, errors.ErrMissingApplicantID)
	})

	t.Run("unknown tier", func(t *testing.T) {
		input := minimalInput()
		input.Tier = "platinum"
		_, err := svc.AnalyzeFraudRisk(ctx, input)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INVALID_TIER", appErr.Code)
	})

	t.Run("malformed document", func(t *testing.T) {
		input := minimalInput()
		input.Documents = []applicant.Document{{ID: "d-1", Hash: "not-a-sha256"}}
		_, err := svc.AnalyzeFraudRisk(ctx, input)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INVALID_DOCUMENT", appErr.Code)
	})
}

// A submission with no signals at all must come back squeaky clean, not
// merely low-risk.
func TestAnalyzeFraudRisk_NoSignals(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)

	assert.Zero(t, result.OverallRiskScore)
	assert.Equal(t, assessment.RiskLevelLow, result.RiskLevel)
	assert.False(t, result.RequiresManualReview)
	assert.False(t, result.AutoReject)
	assert.Empty(t, result.DetectedPatterns)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, "a-1", result.ApplicantID)
	assert.NotEqual(t, uuid.Nil, result.ID)
}

func TestAnalyzeFraudRisk_SkipsInapplicableEvaluators(t *testing.T) {
	skipped := &fakeEvaluator{name: "skipped", applicable: false}
	ran := &fakeEvaluator{name: "ran", applicable: true}

	svc := newTestService(t, []Evaluator{skipped, ran}, nil, nil, nil)
	_, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)

	assert.Zero(t, skipped.calls.Load())
	assert.Equal(t, int32(1), ran.calls.Load())
}

// Identical inputs must produce identical verdicts regardless of which
// evaluator goroutine finishes first.
func TestAnalyzeFraudRisk_DeterministicPatternOrder(t *testing.T) {
	slow := &fakeEvaluator{
		name: "slow", applicable: true, delay: 40 * time.Millisecond,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternSuspiciousIP, assessment.CategoryNetwork, 0.8, 0.6, "slow signal"),
		},
	}
	fast := &fakeEvaluator{
		name: "fast", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternDocumentHashCollision, assessment.CategoryDocument, 0.9, 0.9, "fast signal"),
		},
	}

	svc := newTestService(t, []Evaluator{slow, fast}, nil, nil, nil)

	first, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)
	second, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)

	require.Len(t, first.DetectedPatterns, 2)
	assert.Equal(t, PatternSuspiciousIP, first.DetectedPatterns[0].PatternID)
	assert.Equal(t, PatternDocumentHashCollision, first.DetectedPatterns[1].PatternID)

	assert.Equal(t, first.OverallRiskScore, second.OverallRiskScore)
	require.Len(t, second.DetectedPatterns, 2)
	for i := range first.DetectedPatterns {
		assert.Equal(t, first.DetectedPatterns[i].PatternID, second.DetectedPatterns[i].PatternID)
	}
}

func TestAnalyzeFraudRisk_EvaluatorFailureIsIsolated(t *testing.T) {
	failing := &fakeEvaluator{
		name: "failing", applicable: true,
		err: fmt.Errorf("upstream exploded"),
	}
	healthy := &fakeEvaluator{
		name: "healthy", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternSuspiciousIP, assessment.CategoryNetwork, 0.8, 0.6, "signal"),
		},
	}

	svc := newTestService(t, []Evaluator{failing, healthy}, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err, "one evaluator failing must not fail the assessment")

	require.Len(t, result.DetectedPatterns, 1)
	assert.Equal(t, PatternSuspiciousIP, result.DetectedPatterns[0].PatternID)
	assert.Positive(t, result.OverallRiskScore)
}

func TestAnalyzeFraudRisk_EvaluatorPanicIsIsolated(t *testing.T) {
	panicking := &fakeEvaluator{name: "panicking", applicable: true, panics: true}
	healthy := &fakeEvaluator{
		name: "healthy", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternSuspiciousIP, assessment.CategoryNetwork, 0.8, 0.6, "signal"),
		},
	}

	svc := newTestService(t, []Evaluator{panicking, healthy}, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)
	require.Len(t, result.DetectedPatterns, 1)
}

// An evaluator that ignores its context entirely must still be cut off at
// the per-evaluator deadline.
func TestAnalyzeFraudRisk_EvaluatorTimeout(t *testing.T) {
	settings := DefaultSettings()
	settings.EvaluatorTimeout = 50 * time.Millisecond

	sleeper := &fakeEvaluator{name: "sleeper", applicable: true, delay: 300 * time.Millisecond}
	prompt := &fakeEvaluator{
		name: "prompt", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternRapidSubmissions, assessment.CategoryBehavioral, 0.9, 0.6, "signal"),
		},
	}

	svc := newTestService(t, []Evaluator{sleeper, prompt}, nil, nil, settings)

	start := time.Now()
	result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 250*time.Millisecond, "verdict must not wait out the sleeper")
	require.Len(t, result.DetectedPatterns, 1)
	assert.Equal(t, PatternRapidSubmissions, result.DetectedPatterns[0].PatternID)
}

func TestAnalyzeFraudRisk_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sleeper := &fakeEvaluator{name: "sleeper", applicable: true, delay: 2 * time.Second}
	prompt := &fakeEvaluator{
		name: "prompt", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternSuspiciousIP, assessment.CategoryNetwork, 0.8, 0.6, "signal"),
		},
	}

	svc := newTestService(t, []Evaluator{sleeper, prompt}, nil, nil, nil)

	start := time.Now()
	result, err := svc.AnalyzeFraudRisk(ctx, minimalInput())
	elapsed := time.Since(start)

	require.NoError(t, err, "cancellation yields a best-effort verdict, not an error")
	assert.Less(t, elapsed, time.Second)
	require.Len(t, result.DetectedPatterns, 1)
	assert.Equal(t, PatternSuspiciousIP, result.DetectedPatterns[0].PatternID)
}

func TestAnalyzeFraudRisk_Persistence(t *testing.T) {
	pattern := assessment.NewDetectedPattern(PatternSuspiciousIP, assessment.CategoryNetwork, 0.8, 0.6, "signal")
	evaluator := &fakeEvaluator{name: "net", applicable: true, patterns: []assessment.DetectedPattern{pattern}}

	t.Run("verdict is saved", func(t *testing.T) {
		repo := new(mockResultRepository)
		var saved *assessment.FraudAnalysisResult
		repo.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*assessment.FraudAnalysisResult)
			}).
			Return(nil)

		svc := newTestService(t, []Evaluator{evaluator}, repo, nil, nil)
		result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
		require.NoError(t, err)

		repo.AssertExpectations(t)
		require.NotNil(t, saved)
		assert.Equal(t, result.ID, saved.ID)
	})

	t.Run("save failure does not reach the caller", func(t *testing.T) {
		repo := new(mockResultRepository)
		repo.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("db down"))

		svc := newTestService(t, []Evaluator{evaluator}, repo, nil, nil)
		result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())

		require.NoError(t, err)
		require.NotNil(t, result)
		repo.AssertExpectations(t)
	})
}

func TestAnalyzeFraudRisk_Alerts(t *testing.T) {
	// A single pattern's score is confidence*impact: the category weight
	// cancels out of the weighted mean.
	highRisk := &fakeEvaluator{
		name: "identity", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternKnownFraudIdentity, assessment.CategoryIdentity, 0.9, 0.95, "watchlist hit"),
		},
	}
	lowRisk := &fakeEvaluator{
		name: "network", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternLocationInconsistency, assessment.CategoryNetwork, 0.5, 0.5, "minor drift"),
		},
	}

	t.Run("escalation threshold crossed", func(t *testing.T) {
		alerts := new(mockAlertNotifier)
		alerts.On("NotifyHighRisk", mock.Anything, mock.Anything).Return()

		svc := newTestService(t, []Evaluator{highRisk}, nil, alerts, nil)
		result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
		require.NoError(t, err)

		assert.InDelta(t, 0.855, result.OverallRiskScore, 1e-9)
		assert.False(t, result.AutoReject)
		alerts.AssertExpectations(t)
	})

	t.Run("below the escalation threshold", func(t *testing.T) {
		alerts := new(mockAlertNotifier)

		svc := newTestService(t, []Evaluator{lowRisk}, nil, alerts, nil)
		_, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
		require.NoError(t, err)

		alerts.AssertNotCalled(t, "NotifyHighRisk", mock.Anything, mock.Anything)
	})

	t.Run("real-time alerts disabled", func(t *testing.T) {
		settings := DefaultSettings()
		settings.Alerts.EnableRealTimeAlerts = false

		alerts := new(mockAlertNotifier)
		svc := newTestService(t, []Evaluator{highRisk}, nil, alerts, settings)
		_, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
		require.NoError(t, err)

		alerts.AssertNotCalled(t, "NotifyHighRisk", mock.Anything, mock.Anything)
	})
}

func TestGetAssessment(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		want := &assessment.FraudAnalysisResult{ID: id, ApplicantID: "a-1"}
		repo := new(mockResultRepository)
		repo.On("GetByID", mock.Anything, id).Return(want, nil)

		svc := newTestService(t, nil, repo, nil, nil)
		got, err := svc.GetAssessment(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("no repository configured", func(t *testing.T) {
		svc := newTestService(t, nil, nil, nil, nil)
		_, err := svc.GetAssessment(ctx, id)
		require.Error(t, err)
	})
}

func TestListAssessments(t *testing.T) {
	ctx := context.Background()

	t.Run("zero limit applies the default", func(t *testing.T) {
		repo := new(mockResultRepository)
		repo.On("ListByApplicant", mock.Anything, "a-1", DefaultHistoryLimit).
			Return([]*assessment.FraudAnalysisResult{}, nil)

		svc := newTestService(t, nil, repo, nil, nil)
		_, err := svc.ListAssessments(ctx, "a-1", 0)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("oversized limit is capped", func(t *testing.T) {
		repo := new(mockResultRepository)
		repo.On("ListByApplicant", mock.Anything, "a-1", maxHistoryLimit).
			Return([]*assessment.FraudAnalysisResult{}, nil)

		svc := newTestService(t, nil, repo, nil, nil)
		_, err := svc.ListAssessments(ctx, "a-1", 5000)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("missing applicant id", func(t *testing.T) {
		svc := newTestService(t, nil, new(mockResultRepository), nil, nil)
		_, err := svc.ListAssessments(ctx, "", 10)
		require.ErrorIs(t, err, errors.ErrMissingApplicantID)
	})
}

func TestUpdateThresholds(t *testing.T) {
	ctx := context.Background()

	// Single Behavioral pattern, so the score is exactly 0.9*0.6 = 0.54.
	evaluator := &fakeEvaluator{
		name: "behavioral", applicable: true,
		patterns: []assessment.DetectedPattern{
			assessment.NewDetectedPattern(PatternRapidSubmissions, assessment.CategoryBehavioral, 0.9, 0.6, "burst"),
		},
	}

	svc := newTestService(t, []Evaluator{evaluator}, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(ctx, minimalInput())
	require.NoError(t, err)
	require.Equal(t, assessment.RiskLevelMedium, result.RiskLevel)

	t.Run("empty update rejected", func(t *testing.T) {
		err := svc.UpdateThresholds(ctx, ThresholdUpdate{})
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "EMPTY_UPDATE", appErr.Code)
	})

	t.Run("new thresholds take effect", func(t *testing.T) {
		err := svc.UpdateThresholds(ctx, ThresholdUpdate{
			RiskThresholds: &RiskThresholds{Low: 0, Medium: 0.3, High: 0.5, Critical: 0.8},
		})
		require.NoError(t, err)

		result, err := svc.AnalyzeFraudRisk(ctx, minimalInput())
		require.NoError(t, err)
		assert.Equal(t, assessment.RiskLevelHigh, result.RiskLevel)
	})

	t.Run("invalid part leaves everything untouched", func(t *testing.T) {
		err := svc.UpdateThresholds(ctx, ThresholdUpdate{
			RiskThresholds: &RiskThresholds{Low: 0, Medium: 0.1, High: 0.2, Critical: 0.3},
			CategoryWeights: map[assessment.PatternCategory]float64{
				assessment.CategoryBehavioral: 1.5,
			},
		})
		require.Error(t, err)

		// Still classified by the thresholds from the previous subtest.
		result, err := svc.AnalyzeFraudRisk(ctx, minimalInput())
		require.NoError(t, err)
		assert.Equal(t, assessment.RiskLevelHigh, result.RiskLevel)
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		err := svc.UpdateThresholds(ctx, ThresholdUpdate{
			CategoryWeights: map[assessment.PatternCategory]float64{"astrology": 0.5},
		})
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INVALID_CATEGORY", appErr.Code)
	})
}

// End-to-end runs with the real evaluators wired in.

func TestAnalyzeFraudRisk_CleanApplicant(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	doc := testDocument("d-1", 0x3c)
	created := submitted.Add(-30 * 24 * time.Hour)
	doc.Metadata = applicant.DocumentMetadata{
		CreationTime:         &created,
		Producer:             "Microsoft Word",
		PageCount:            2,
		ExtractedName:        "Jordan Reyes",
		ExtractedDateOfBirth: "1999-04-17",
		ExtractedAddress:     "12 Hill Road, Springfield",
	}

	idx := new(mockDocumentIndex)
	idx.On("FindCollisions", mock.Anything, doc.Hash, "a-1").Return([]string{}, nil)
	idx.On("Record", mock.Anything, "a-1", doc).Return(nil)

	evaluators := []Evaluator{
		NewDocumentEvaluator(idx, discardLogger()),
		NewIdentityEvaluator(nil),
		NewBehavioralEvaluator(newFakeProfileStore(), newFakeSubmissionWindow(1), discardLogger(), 0, 0),
		NewNetworkEvaluator(nil),
	}
	svc := newTestService(t, evaluators, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), &AssessmentInput{
		ApplicantID: "a-1",
		Tier:        applicant.TierStandard,
		Personal: applicant.PersonalInfo{
			FullName:    "Jordan Reyes",
			DateOfBirth: "1999-04-17",
			Address:     "12 Hill Road, Springfield",
			Email:       "jordan@example.com",
		},
		Documents: []applicant.Document{doc},
		Network:   &applicant.NetworkContext{IPAddress: "203.0.113.9", LocationConsistency: consistency(0.95)},
		Behavior: &applicant.BehaviorData{
			ClickIntervalsMs: []float64{120, 480, 250, 900, 333},
			TypingSpeed:      65,
			PauseDurationsMs: []float64{200, 1500, 600, 3200},
		},
		SubmittedAt: submitted,
	})
	require.NoError(t, err)

	assert.Zero(t, result.OverallRiskScore)
	assert.Equal(t, assessment.RiskLevelLow, result.RiskLevel)
	assert.False(t, result.RequiresManualReview)
	assert.False(t, result.AutoReject)
	assert.Empty(t, result.DetectedPatterns)
	idx.AssertExpectations(t)
}

func TestAnalyzeFraudRisk_ForgedDocumentAndBot(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	doc := testDocument("d-1", 0x7e)
	created := submitted.Add(48 * time.Hour)
	doc.Metadata = applicant.DocumentMetadata{CreationTime: &created}

	idx := new(mockDocumentIndex)
	idx.On("FindCollisions", mock.Anything, doc.Hash, "a-1").Return([]string{"b-42"}, nil)
	idx.On("Record", mock.Anything, "a-1", doc).Return(nil)

	evaluators := []Evaluator{
		NewDocumentEvaluator(idx, discardLogger()),
		NewBehavioralEvaluator(newFakeProfileStore(), newFakeSubmissionWindow(1), discardLogger(), 0, 0),
	}
	svc := newTestService(t, evaluators, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), &AssessmentInput{
		ApplicantID: "a-1",
		Tier:        applicant.TierStandard,
		Documents:   []applicant.Document{doc},
		Behavior:    &applicant.BehaviorData{TypingSpeed: 300},
		SubmittedAt: submitted,
	})
	require.NoError(t, err)

	// Collision (0.95*0.95) and future timestamp (0.9*0.7) in Document,
	// beyond-human typing (0.8*0.8) in Behavioral.
	require.Len(t, result.DetectedPatterns, 3)
	assert.InDelta(t, 0.7261, result.OverallRiskScore, 1e-3)
	assert.GreaterOrEqual(t, result.OverallRiskScore, 0.7)
	assert.Equal(t, assessment.RiskLevelHigh, result.RiskLevel)
	assert.True(t, result.RequiresManualReview)
	assert.False(t, result.AutoReject)

	categories := make(map[assessment.PatternCategory]bool)
	for _, p := range result.DetectedPatterns {
		categories[p.Category] = true
	}
	assert.True(t, categories[assessment.CategoryDocument])
	assert.True(t, categories[assessment.CategoryBehavioral])
}

func TestAnalyzeFraudRisk_SubmissionBurst(t *testing.T) {
	evaluators := []Evaluator{
		NewBehavioralEvaluator(newFakeProfileStore(), newFakeSubmissionWindow(6), discardLogger(), 0, 0),
	}
	svc := newTestService(t, evaluators, nil, nil, nil)

	result, err := svc.AnalyzeFraudRisk(context.Background(), minimalInput())
	require.NoError(t, err)

	require.Len(t, result.DetectedPatterns, 1)
	assert.Equal(t, PatternRapidSubmissions, result.DetectedPatterns[0].PatternID)
	assert.Equal(t, assessment.CategoryBehavioral, result.DetectedPatterns[0].Category)
	assert.InDelta(t, 0.54, result.OverallRiskScore, 1e-9)
	assert.Equal(t, assessment.RiskLevelMedium, result.RiskLevel)
	assert.True(t, result.RequiresManualReview)
}

// fakeEvaluator lets orchestrator tests script evaluator behavior,
// including behavior the interface contract forbids.
type fakeEvaluator struct {
	name       string
	applicable bool
	patterns   []assessment.DetectedPattern
	err        error
	delay      time.Duration
	panics     bool
	calls      atomic.Int32
}

func (f *fakeEvaluator) Name() string { return f.name }

func (f *fakeEvaluator) Applicable(*AssessmentInput) bool { return f.applicable }

func (f *fakeEvaluator) Evaluate(ctx context.Context, _ *AssessmentInput) ([]assessment.DetectedPattern, error) {
	f.calls.Add(1)
	if f.panics {
		panic("evaluator exploded")
	}
	if f.delay > 0 {
		// Sleeps without watching ctx, like a misbehaving evaluator would.
		time.Sleep(f.delay)
	}
	return f.patterns, f.err
}

// Mock implementations

type mockResultRepository struct {
	mock.Mock
}

func (m *mockResultRepository) Save(ctx context.Context, result *assessment.FraudAnalysisResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *mockResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assessment.FraudAnalysisResult), args.Error(1)
}

func (m *mockResultRepository) ListByApplicant(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error) {
	args := m.Called(ctx, applicantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assessment.FraudAnalysisResult), args.Error(1)
}

type mockAlertNotifier struct {
	mock.Mock
}

func (m *mockAlertNotifier) NotifyHighRisk(ctx context.Context, result *assessment.FraudAnalysisResult) {
	m.Called(ctx, result)
}

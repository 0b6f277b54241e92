package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

// maxHistoryLimit caps ListAssessments page sizes regardless of what the
// caller asks for.
const maxHistoryLimit = 100

// service implements the Service interface
type service struct {
	registry   *PatternRegistry
	aggregator *RiskAggregator
	decisions  *DecisionEngine
	evaluators []Evaluator

	results  ResultRepository
	profiles ProfileStore
	alerts   AlertNotifier
	logger   *slog.Logger

	evaluatorTimeout time.Duration
	historyLimit     int
}

// evalOutcome is one evaluator's contribution, tagged with its registration
// index so collection over the channel stays order-independent.
type evalOutcome struct {
	idx      int
	name     string
	patterns []assessment.DetectedPattern
	err      error
}

// NewService creates the assessment orchestrator. The results repository
// and alert notifier may be nil; assessments then run without persistence
// or escalation. A nil settings value applies the defaults.
func NewService(
	registry *PatternRegistry,
	evaluators []Evaluator,
	results ResultRepository,
	profiles ProfileStore,
	alerts AlertNotifier,
	logger *slog.Logger,
	initial *Settings,
) (Service, error) {
	if registry == nil {
		registry = NewPatternRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if initial == nil {
		initial = DefaultSettings()
	}
	if initial.EvaluatorTimeout <= 0 {
		initial.EvaluatorTimeout = DefaultEvaluatorTimeout
	}
	if initial.HistoryLimit <= 0 {
		initial.HistoryLimit = DefaultHistoryLimit
	}

	decisions, err := NewDecisionEngine(initial.Thresholds, initial.Alerts)
	if err != nil {
		return nil, err
	}

	for category, weight := range initial.CategoryWeights {
		if err := registry.SetCategoryWeight(category, weight); err != nil {
			return nil, err
		}
	}

	return &service{
		registry:         registry,
		aggregator:       NewRiskAggregator(registry),
		decisions:        decisions,
		evaluators:       evaluators,
		results:          results,
		profiles:         profiles,
		alerts:           alerts,
		logger:           logger,
		evaluatorTimeout: initial.EvaluatorTimeout,
		historyLimit:     initial.HistoryLimit,
	}, nil
}

// AnalyzeFraudRisk runs every applicable evaluator concurrently, aggregates
// their findings into an overall risk score, and derives the decision. An
// evaluator failure or timeout costs only that evaluator's signal; the
// assessment itself always produces a verdict.
func (s *service) AnalyzeFraudRisk(ctx context.Context, input *AssessmentInput) (*assessment.FraudAnalysisResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	start := time.Now()

	applicable := make([]Evaluator, 0, len(s.evaluators))
	for _, ev := range s.evaluators {
		if ev.Applicable(input) {
			applicable = append(applicable, ev)
		}
	}

	// The channel is buffered to the fan-out width so abandoned evaluators
	// never block on send after the caller cancels.
	outcomeCh := make(chan evalOutcome, len(applicable))
	for i, ev := range applicable {
		go s.runEvaluator(ctx, i, ev, input, outcomeCh)
	}

	outcomes := make([]evalOutcome, 0, len(applicable))
collect:
	for range applicable {
		select {
		case out := <-outcomeCh:
			outcomes = append(outcomes, out)
		case <-ctx.Done():
			// Abandon in-flight evaluators and settle for what arrived.
			s.logger.WarnContext(ctx, "assessment cancelled mid-run, computing best-effort verdict",
				"applicant_id", input.ApplicantID,
				"evaluators_done", len(outcomes),
				"evaluators_total", len(applicable))
			break collect
		}
	}

	// Registration order keeps the verdict deterministic for identical
	// inputs regardless of goroutine scheduling.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].idx < outcomes[j].idx })

	var patterns []assessment.DetectedPattern
	for _, out := range outcomes {
		if out.err != nil {
			s.logger.WarnContext(ctx, "evaluator failed, continuing without its signal",
				"evaluator", out.name,
				"applicant_id", input.ApplicantID,
				"error", out.err)
			continue
		}
		patterns = append(patterns, out.patterns...)
	}

	score := s.aggregator.Aggregate(patterns)
	decision := s.decisions.Decide(score, patterns)

	result, err := assessment.NewFraudAnalysisResult(input.ApplicantID, score, decision.RiskLevel)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("assembling verdict: %v", err))
	}
	if len(patterns) > 0 {
		result.DetectedPatterns = patterns
	}
	if len(decision.Recommendations) > 0 {
		result.Recommendations = decision.Recommendations
	}
	result.RequiresManualReview = decision.RequiresManualReview
	result.AutoReject = decision.AutoReject

	s.persist(ctx, result)

	alerts := s.decisions.AlertSettings()
	if s.alerts != nil && alerts.EnableRealTimeAlerts && score >= alerts.EscalationThreshold {
		s.alerts.NotifyHighRisk(context.WithoutCancel(ctx), result)
	}

	s.logger.InfoContext(ctx, "assessment complete",
		"applicant_id", input.ApplicantID,
		"assessment_id", result.ID,
		"risk_score", result.OverallRiskScore,
		"risk_level", result.RiskLevel,
		"patterns", len(result.DetectedPatterns),
		"auto_reject", result.AutoReject,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// runEvaluator executes one evaluator under its own deadline and always
// delivers exactly one outcome, even if the evaluator panics or ignores its
// context.
func (s *service) runEvaluator(ctx context.Context, idx int, ev Evaluator, input *AssessmentInput, out chan<- evalOutcome) {
	evalCtx, cancel := context.WithTimeout(ctx, s.evaluatorTimeout)
	defer cancel()

	done := make(chan evalOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- evalOutcome{idx: idx, name: ev.Name(),
					err: errors.NewEvaluatorError(ev.Name(), fmt.Sprintf("panic: %v", r))}
			}
		}()
		patterns, err := ev.Evaluate(evalCtx, input)
		done <- evalOutcome{idx: idx, name: ev.Name(), patterns: patterns, err: err}
	}()

	select {
	case res := <-done:
		out <- res
	case <-evalCtx.Done():
		out <- evalOutcome{idx: idx, name: ev.Name(),
			err: errors.NewTimeoutError(fmt.Sprintf("evaluator %s", ev.Name()))}
	}
}

// persist saves the verdict without letting a storage failure reach the
// caller. The save context is detached so a cancelled request still leaves
// an audit record.
func (s *service) persist(ctx context.Context, result *assessment.FraudAnalysisResult) {
	if s.results == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.results.Save(saveCtx, result); err != nil {
		s.logger.WarnContext(ctx, "failed to persist assessment, verdict returned anyway",
			"assessment_id", result.ID,
			"applicant_id", result.ApplicantID,
			"error", err)
	}
}

// GetAssessment retrieves a persisted verdict by ID.
func (s *service) GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error) {
	if s.results == nil {
		return nil, errors.NewInternalError("assessment repository not configured")
	}
	return s.results.GetByID(ctx, id)
}

// ListAssessments retrieves an applicant's verdict history, newest first.
func (s *service) ListAssessments(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error) {
	if applicantID == "" {
		return nil, errors.ErrMissingApplicantID
	}
	if s.results == nil {
		return nil, errors.NewInternalError("assessment repository not configured")
	}

	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	return s.results.ListByApplicant(ctx, applicantID, limit)
}

// GetProfile retrieves an applicant's behavioral profile snapshot.
func (s *service) GetProfile(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error) {
	if applicantID == "" {
		return nil, errors.ErrMissingApplicantID
	}
	if s.profiles == nil {
		return nil, errors.NewInternalError("profile store not configured")
	}
	return s.profiles.Get(ctx, applicantID)
}

// UpdateThresholds applies a runtime tuning request. Every part of the
// update is validated before any part is applied, so a bad request cannot
// leave the engine half-updated.
func (s *service) UpdateThresholds(ctx context.Context, update ThresholdUpdate) error {
	if update.RiskThresholds == nil && update.AlertSettings == nil && len(update.CategoryWeights) == 0 {
		return errors.NewValidationError("EMPTY_UPDATE", "threshold update carries no changes")
	}

	if update.RiskThresholds != nil {
		if err := validateThresholds(*update.RiskThresholds); err != nil {
			return err
		}
	}
	if update.AlertSettings != nil {
		if err := validateAlertSettings(*update.AlertSettings); err != nil {
			return err
		}
	}
	for category, weight := range update.CategoryWeights {
		if !category.IsValid() {
			return errors.NewValidationError("INVALID_CATEGORY", "unknown pattern category")
		}
		if weight < 0 || weight > 1 {
			return errors.NewValidationError("INVALID_WEIGHT", "category weight must be within [0, 1]")
		}
	}

	if update.RiskThresholds != nil {
		if err := s.decisions.SetThresholds(*update.RiskThresholds); err != nil {
			return err
		}
	}
	if update.AlertSettings != nil {
		if err := s.decisions.SetAlertSettings(*update.AlertSettings); err != nil {
			return err
		}
	}
	for category, weight := range update.CategoryWeights {
		if err := s.registry.SetCategoryWeight(category, weight); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "decision thresholds updated",
		"thresholds_changed", update.RiskThresholds != nil,
		"alerts_changed", update.AlertSettings != nil,
		"weights_changed", len(update.CategoryWeights))

	return nil
}

// validateInput rejects requests the evaluators cannot act on. Runs before
// any evaluator so a malformed request has no side effects.
func validateInput(input *AssessmentInput) error {
	if input == nil {
		return errors.ErrInvalidInput
	}
	if input.ApplicantID == "" {
		return errors.ErrMissingApplicantID
	}
	if !input.Tier.IsValid() {
		return errors.NewValidationError("INVALID_TIER",
			fmt.Sprintf("unknown verification tier %q", input.Tier))
	}
	for i := range input.Documents {
		if err := input.Documents[i].Validate(); err != nil {
			return errors.NewValidationError("INVALID_DOCUMENT", err.Error())
		}
	}
	return nil
}

// DefaultSettings returns the engine tunables used when no configuration is
// supplied. Values match the shipped configuration defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Thresholds: RiskThresholds{
			Low:      0.0,
			Medium:   0.4,
			High:     0.6,
			Critical: 0.8,
		},
		Alerts: AlertSettings{
			EnableRealTimeAlerts: true,
			EscalationThreshold:  0.8,
			AutoRejectThreshold:  0.95,
		},
		EvaluatorTimeout: DefaultEvaluatorTimeout,
		HistoryLimit:     DefaultHistoryLimit,
	}
}

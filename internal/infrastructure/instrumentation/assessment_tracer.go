package instrumentation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	domainErrors "github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/telemetry"
	"github.com/davidleathers/applicant-trust-engine/internal/metrics"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// AssessmentTracedService wraps the fraud service with OpenTelemetry
// instrumentation. The wrapped service stays observability-free; spans and
// metrics live here.
type AssessmentTracedService struct {
	service fraud.Service
	tracer  trace.Tracer
	metrics *metrics.Registry
}

// NewAssessmentTracedService creates a new instrumented fraud service
func NewAssessmentTracedService(service fraud.Service, registry *metrics.Registry) *AssessmentTracedService {
	return &AssessmentTracedService{
		service: service,
		tracer:  telemetry.Tracer("ate.assessment"),
		metrics: registry,
	}
}

// AnalyzeFraudRisk instruments the assessment run
func (s *AssessmentTracedService) AnalyzeFraudRisk(ctx context.Context, input *fraud.AssessmentInput) (*assessment.FraudAnalysisResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String("component", "fraud"),
	}
	if input != nil {
		attrs = append(attrs,
			attribute.String("applicant.id", input.ApplicantID),
			attribute.String("applicant.tier", string(input.Tier)),
			attribute.Int("documents.count", len(input.Documents)),
		)
	}

	ctx, span := s.tracer.Start(ctx, "fraud.AnalyzeFraudRisk", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	result, err := s.service.AnalyzeFraudRisk(ctx, input)
	durationMS := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordAssessmentFailure(ctx, failureReason(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("risk.score", result.OverallRiskScore),
		attribute.String("risk.level", string(result.RiskLevel)),
		attribute.Int("patterns.count", len(result.DetectedPatterns)),
		attribute.Bool("risk.auto_reject", result.AutoReject),
		attribute.Bool("risk.manual_review", result.RequiresManualReview),
	)

	s.metrics.RecordAssessment(ctx, durationMS,
		string(result.RiskLevel), result.OverallRiskScore,
		result.AutoReject, result.RequiresManualReview)
	for _, p := range result.DetectedPatterns {
		s.metrics.RecordPatternDetected(ctx, p.PatternID, string(p.Category))
	}

	if result.AutoReject {
		telemetry.AddEvent(span, "auto_reject_threshold_crossed",
			attribute.Float64("risk.score", result.OverallRiskScore))
	}

	return result, nil
}

// GetAssessment instruments verdict retrieval
func (s *AssessmentTracedService) GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "fraud.GetAssessment", trace.WithAttributes(
		attribute.String("assessment.id", id.String()),
	))
	defer span.End()

	result, err := s.service.GetAssessment(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// ListAssessments instruments verdict history retrieval
func (s *AssessmentTracedService) ListAssessments(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "fraud.ListAssessments", trace.WithAttributes(
		attribute.String("applicant.id", applicantID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	results, err := s.service.ListAssessments(ctx, applicantID, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("assessments.count", len(results)))
	return results, nil
}

// GetProfile instruments behavioral profile retrieval
func (s *AssessmentTracedService) GetProfile(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error) {
	ctx, span := s.tracer.Start(ctx, "fraud.GetProfile", trace.WithAttributes(
		attribute.String("applicant.id", applicantID),
	))
	defer span.End()

	profile, err := s.service.GetProfile(ctx, applicantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("profile.submissions", len(profile.SubmissionTimestamps)),
		attribute.Int("profile.interactions", len(profile.Interactions)),
	)
	return profile, nil
}

// UpdateThresholds instruments runtime threshold tuning
func (s *AssessmentTracedService) UpdateThresholds(ctx context.Context, update fraud.ThresholdUpdate) error {
	ctx, span := s.tracer.Start(ctx, "fraud.UpdateThresholds", trace.WithAttributes(
		attribute.Bool("update.thresholds", update.RiskThresholds != nil),
		attribute.Bool("update.alerts", update.AlertSettings != nil),
		attribute.Int("update.weights", len(update.CategoryWeights)),
	))
	defer span.End()

	if err := s.service.UpdateThresholds(ctx, update); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.AddEvent(span, "decision_thresholds_updated",
		attribute.String("timestamp", time.Now().UTC().Format(time.RFC3339)))
	return nil
}

// failureReason categorizes errors for the failure counters
func failureReason(err error) string {
	if err == nil {
		return ""
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return "unknown"
}

package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/telemetry"
	"github.com/davidleathers/applicant-trust-engine/internal/metrics"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// InstrumentedEvaluator wraps a fraud evaluator with a per-run span and
// duration/failure metrics. Abandoned runs report their real duration when
// they eventually return, which is exactly the signal a stuck upstream
// produces.
type InstrumentedEvaluator struct {
	inner   fraud.Evaluator
	tracer  trace.Tracer
	metrics *metrics.Registry
}

// NewInstrumentedEvaluator wraps a single evaluator
func NewInstrumentedEvaluator(inner fraud.Evaluator, registry *metrics.Registry) *InstrumentedEvaluator {
	return &InstrumentedEvaluator{
		inner:   inner,
		tracer:  telemetry.Tracer("ate.evaluator"),
		metrics: registry,
	}
}

// InstrumentEvaluators wraps every evaluator in the slice
func InstrumentEvaluators(evaluators []fraud.Evaluator, registry *metrics.Registry) []fraud.Evaluator {
	wrapped := make([]fraud.Evaluator, len(evaluators))
	for i, ev := range evaluators {
		wrapped[i] = NewInstrumentedEvaluator(ev, registry)
	}
	return wrapped
}

// Name identifies the wrapped evaluator
func (e *InstrumentedEvaluator) Name() string { return e.inner.Name() }

// Applicable defers to the wrapped evaluator
func (e *InstrumentedEvaluator) Applicable(input *fraud.AssessmentInput) bool {
	return e.inner.Applicable(input)
}

// Evaluate instruments one evaluator run
func (e *InstrumentedEvaluator) Evaluate(ctx context.Context, input *fraud.AssessmentInput) ([]assessment.DetectedPattern, error) {
	name := e.inner.Name()
	ctx, span := e.tracer.Start(ctx, "fraud.evaluator."+name, trace.WithAttributes(
		attribute.String("evaluator", name),
	))
	defer span.End()

	start := time.Now()
	patterns, err := e.inner.Evaluate(ctx, input)
	durationMS := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordEvaluatorRun(ctx, name, durationMS, failureReason(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("patterns.count", len(patterns)))
	e.metrics.RecordEvaluatorRun(ctx, name, durationMS, "")
	return patterns, nil
}

package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Assessment Domain Metrics
	AssessmentDuration       metric.Float64Histogram
	AssessmentsPerSecond     metric.Float64ObservableGauge
	AssessmentSuccessCounter metric.Int64Counter
	AssessmentFailureCounter metric.Int64Counter
	RiskScoreDistribution    metric.Float64Histogram
	AutoRejectCounter        metric.Int64Counter
	ManualReviewCounter      metric.Int64Counter

	// Evaluator Domain Metrics
	EvaluatorDuration       metric.Float64Histogram
	EvaluatorFailureCounter metric.Int64Counter
	PatternDetectedCounter  metric.Int64Counter

	// Alert Domain Metrics
	AlertSentCounter       metric.Int64Counter
	AlertSuppressedCounter metric.Int64Counter
	PendingAlerts          metric.Int64ObservableGauge

	// System Metrics
	DatabaseConnectionPool metric.Int64ObservableGauge
	CacheHitRate           metric.Float64ObservableGauge
	APIRequestDuration     metric.Float64Histogram
	APIRequestCounter      metric.Int64Counter

	// State for observable metrics
	mu                   sync.Mutex
	pendingAlerts        int64
	dbPoolSize           int64
	cacheHits            int64
	cacheMisses          int64
	assessmentsProcessed int64
	lastAssessmentCount  int64
	lastAssessmentTime   time.Time
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{
		meter:              meter,
		lastAssessmentTime: time.Now(),
	}

	if err := r.initAssessmentMetrics(); err != nil {
		return nil, err
	}

	if err := r.initEvaluatorMetrics(); err != nil {
		return nil, err
	}

	if err := r.initAlertMetrics(); err != nil {
		return nil, err
	}

	if err := r.initSystemMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// initAssessmentMetrics initializes assessment domain metrics
func (r *Registry) initAssessmentMetrics() error {
	var err error

	// Assessment duration histogram; the upper buckets bracket the
	// per-evaluator deadline.
	r.AssessmentDuration, err = r.meter.Float64Histogram(
		"ate.assessment.duration",
		metric.WithDescription("Duration of full risk assessments in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return err
	}

	// Assessments per second gauge
	r.AssessmentsPerSecond, err = r.meter.Float64ObservableGauge(
		"ate.assessment.throughput_per_second",
		metric.WithDescription("Current assessment throughput per second"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()

			now := time.Now()
			elapsed := now.Sub(r.lastAssessmentTime).Seconds()
			if elapsed > 0 {
				rate := float64(r.assessmentsProcessed-r.lastAssessmentCount) / elapsed
				o.Observe(rate)
				r.lastAssessmentCount = r.assessmentsProcessed
				r.lastAssessmentTime = now
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	// Assessment counters
	r.AssessmentSuccessCounter, err = r.meter.Int64Counter(
		"ate.assessment.success_total",
		metric.WithDescription("Total number of completed assessments"),
	)
	if err != nil {
		return err
	}

	r.AssessmentFailureCounter, err = r.meter.Int64Counter(
		"ate.assessment.failure_total",
		metric.WithDescription("Total number of rejected or failed assessment requests"),
	)
	if err != nil {
		return err
	}

	// Risk score distribution; bucket edges match the default risk level
	// and alerting thresholds.
	r.RiskScoreDistribution, err = r.meter.Float64Histogram(
		"ate.assessment.risk_score",
		metric.WithDescription("Distribution of overall risk scores"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.4, 0.6, 0.8, 0.9, 0.95),
	)
	if err != nil {
		return err
	}

	r.AutoRejectCounter, err = r.meter.Int64Counter(
		"ate.assessment.auto_reject_total",
		metric.WithDescription("Total number of assessments that crossed the auto-reject threshold"),
	)
	if err != nil {
		return err
	}

	r.ManualReviewCounter, err = r.meter.Int64Counter(
		"ate.assessment.manual_review_total",
		metric.WithDescription("Total number of assessments flagged for manual review"),
	)

	return err
}

// initEvaluatorMetrics initializes evaluator domain metrics
func (r *Registry) initEvaluatorMetrics() error {
	var err error

	// Evaluator run duration histogram
	r.EvaluatorDuration, err = r.meter.Float64Histogram(
		"ate.evaluator.duration",
		metric.WithDescription("Duration of individual evaluator runs in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	// Evaluator failure counter
	r.EvaluatorFailureCounter, err = r.meter.Int64Counter(
		"ate.evaluator.failure_total",
		metric.WithDescription("Total evaluator failures by evaluator and reason"),
	)
	if err != nil {
		return err
	}

	// Pattern detection counter
	r.PatternDetectedCounter, err = r.meter.Int64Counter(
		"ate.evaluator.pattern_detected_total",
		metric.WithDescription("Total fraud patterns detected by pattern and category"),
	)

	return err
}

// initAlertMetrics initializes alert domain metrics
func (r *Registry) initAlertMetrics() error {
	var err error

	r.AlertSentCounter, err = r.meter.Int64Counter(
		"ate.alert.sent_total",
		metric.WithDescription("Total high-risk alerts delivered"),
	)
	if err != nil {
		return err
	}

	r.AlertSuppressedCounter, err = r.meter.Int64Counter(
		"ate.alert.suppressed_total",
		metric.WithDescription("Total high-risk alerts suppressed by the cooldown"),
	)
	if err != nil {
		return err
	}

	// Pending alerts gauge
	r.PendingAlerts, err = r.meter.Int64ObservableGauge(
		"ate.alert.pending",
		metric.WithDescription("Number of alerts awaiting delivery"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			o.Observe(r.pendingAlerts)
			return nil
		}),
	)

	return err
}

// initSystemMetrics initializes system-level metrics
func (r *Registry) initSystemMetrics() error {
	var err error

	// Database connection pool
	r.DatabaseConnectionPool, err = r.meter.Int64ObservableGauge(
		"ate.system.db_connection_pool_size",
		metric.WithDescription("Current database connection pool size"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			o.Observe(r.dbPoolSize)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	// Cache hit rate
	r.CacheHitRate, err = r.meter.Float64ObservableGauge(
		"ate.system.cache_hit_rate",
		metric.WithDescription("Profile cache hit rate"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			total := r.cacheHits + r.cacheMisses
			if total > 0 {
				o.Observe(float64(r.cacheHits) / float64(total))
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	// API request duration
	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"ate.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	// API request counter
	r.APIRequestCounter, err = r.meter.Int64Counter(
		"ate.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)

	return err
}

// Helper methods for updating observable metric values

// UpdatePendingAlerts adjusts the pending alerts count
func (r *Registry) UpdatePendingAlerts(delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingAlerts += delta
}

// SetDBPoolSize sets the database connection pool size
func (r *Registry) SetDBPoolSize(size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbPoolSize = size
}

// RecordCacheAccess records a profile cache hit or miss
func (r *Registry) RecordCacheAccess(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.cacheHits++
	} else {
		r.cacheMisses++
	}
}

// incrementAssessmentsProcessed feeds the throughput gauge
func (r *Registry) incrementAssessmentsProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessmentsProcessed++
}

// Helper methods for recording metrics with common attribute patterns

// RecordAssessment records a completed assessment verdict
func (r *Registry) RecordAssessment(ctx context.Context, durationMS float64, riskLevel string, score float64, autoReject, manualReview bool) {
	attrs := []attribute.KeyValue{
		attribute.String("risk_level", riskLevel),
		attribute.Bool("auto_reject", autoReject),
	}

	r.AssessmentDuration.Record(ctx, durationMS, metric.WithAttributes(attrs...))
	r.RiskScoreDistribution.Record(ctx, score, metric.WithAttributes(attribute.String("risk_level", riskLevel)))
	r.AssessmentSuccessCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if autoReject {
		r.AutoRejectCounter.Add(ctx, 1)
	}
	if manualReview {
		r.ManualReviewCounter.Add(ctx, 1)
	}

	r.incrementAssessmentsProcessed()
}

// RecordAssessmentFailure records a request the engine refused or could
// not complete
func (r *Registry) RecordAssessmentFailure(ctx context.Context, reason string) {
	r.AssessmentFailureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordEvaluatorRun records one evaluator execution. A non-empty failure
// reason also bumps the failure counter.
func (r *Registry) RecordEvaluatorRun(ctx context.Context, evaluator string, durationMS float64, failureReason string) {
	attrs := []attribute.KeyValue{
		attribute.String("evaluator", evaluator),
		attribute.Bool("success", failureReason == ""),
	}

	r.EvaluatorDuration.Record(ctx, durationMS, metric.WithAttributes(attrs...))

	if failureReason != "" {
		r.EvaluatorFailureCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("evaluator", evaluator),
			attribute.String("reason", failureReason),
		))
	}
}

// RecordPatternDetected records one detected fraud pattern
func (r *Registry) RecordPatternDetected(ctx context.Context, patternID, category string) {
	r.PatternDetectedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", patternID),
		attribute.String("category", category),
	))
}

// RecordAlert records an alert delivery attempt
func (r *Registry) RecordAlert(ctx context.Context, riskLevel string, suppressed bool) {
	attrs := []attribute.KeyValue{
		attribute.String("risk_level", riskLevel),
	}

	if suppressed {
		r.AlertSuppressedCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}
	r.AlertSentCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAPIRequest records API request metrics
func (r *Registry) RecordAPIRequest(ctx context.Context, duration float64, method, path string, statusCode int) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	r.APIRequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HealthChecker probes one dependency
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       HealthStatus           `json:"status"`
	Message      string                 `json:"message,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ResponseTime time.Duration          `json:"response_time"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
}

// HealthStatus represents the health status
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

// HealthService manages health checks
type HealthService struct {
	checkers  map[string]HealthChecker
	cache     sync.Map
	config    HealthConfig
	tracer    trace.Tracer
	startTime time.Time
}

// HealthConfig configures the health service
type HealthConfig struct {
	// CacheDuration is how long to reuse a check result
	CacheDuration time.Duration

	// Timeout bounds a single check
	Timeout time.Duration

	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DefaultHealthConfig returns default configuration
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CacheDuration:  10 * time.Second,
		Timeout:        5 * time.Second,
		ServiceName:    "applicant-trust-engine",
		ServiceVersion: "dev",
		Environment:    "development",
	}
}

// NewHealthService creates a new health service
func NewHealthService(config HealthConfig) *HealthService {
	return &HealthService{
		checkers:  make(map[string]HealthChecker),
		config:    config,
		tracer:    otel.Tracer("ate.api.health"),
		startTime: time.Now(),
	}
}

// RegisterChecker registers a health checker. Not safe to call after the
// server starts serving.
func (h *HealthService) RegisterChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status      HealthStatus                 `json:"status"`
	Version     string                       `json:"version"`
	ServiceID   string                       `json:"service_id"`
	ServiceName string                       `json:"service_name"`
	Description string                       `json:"description,omitempty"`
	Checks      map[string]HealthCheckResult `json:"checks,omitempty"`
	Output      string                       `json:"output,omitempty"`
	Metadata    map[string]interface{}       `json:"metadata,omitempty"`
}

// LivenessHandler reports that the process is up
func (h *HealthService) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := h.tracer.Start(r.Context(), "health.liveness")
		defer span.End()

		response := HealthResponse{
			Status:      HealthStatusPass,
			Version:     h.config.ServiceVersion,
			ServiceID:   uuid.New().String(),
			ServiceName: h.config.ServiceName,
			Metadata: map[string]interface{}{
				"uptime_seconds": time.Since(h.startTime).Seconds(),
				"timestamp":      time.Now().UTC(),
			},
		}

		w.Header().Set("Content-Type", "application/health+json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// ReadinessHandler runs every dependency check and reports the aggregate
func (h *HealthService) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "health.readiness")
		defer span.End()

		checks := h.runChecks(ctx)

		status := HealthStatusPass
		statusCode := http.StatusOK
		for _, result := range checks {
			if result.Status == HealthStatusFail {
				status = HealthStatusFail
				statusCode = http.StatusServiceUnavailable
				break
			}
			if result.Status == HealthStatusWarn && status == HealthStatusPass {
				status = HealthStatusWarn
			}
		}

		response := HealthResponse{
			Status:      status,
			Version:     h.config.ServiceVersion,
			ServiceID:   uuid.New().String(),
			ServiceName: h.config.ServiceName,
			Description: fmt.Sprintf("%s health check", h.config.ServiceName),
			Checks:      checks,
			Metadata: map[string]interface{}{
				"uptime_seconds": time.Since(h.startTime).Seconds(),
				"timestamp":      time.Now().UTC(),
				"environment":    h.config.Environment,
			},
		}

		w.Header().Set("Content-Type", "application/health+json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)

		span.SetAttributes(
			attribute.String("health.status", string(response.Status)),
			attribute.Int("health.checks_count", len(checks)),
			attribute.Int("http.status_code", statusCode),
		)
	}
}

// StartupHandler fails until the service has been up long enough to have
// finished its warm-up.
func (h *HealthService) StartupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := h.tracer.Start(r.Context(), "health.startup")
		defer span.End()

		uptime := time.Since(h.startTime)
		minUptime := 10 * time.Second

		status := HealthStatusPass
		statusCode := http.StatusOK
		output := "Service started successfully"

		if uptime < minUptime {
			status = HealthStatusFail
			statusCode = http.StatusServiceUnavailable
			output = fmt.Sprintf("Service starting up, please wait %v", minUptime-uptime)
		}

		response := HealthResponse{
			Status:      status,
			Version:     h.config.ServiceVersion,
			ServiceID:   uuid.New().String(),
			ServiceName: h.config.ServiceName,
			Output:      output,
			Metadata: map[string]interface{}{
				"uptime_seconds":     uptime.Seconds(),
				"min_uptime_seconds": minUptime.Seconds(),
			},
		}

		w.Header().Set("Content-Type", "application/health+json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
	}
}

// runChecks runs all registered health checks in parallel
func (h *HealthService) runChecks(ctx context.Context) map[string]HealthCheckResult {
	results := make(map[string]HealthCheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, checker := range h.checkers {
		wg.Add(1)
		go func(n string, c HealthChecker) {
			defer wg.Done()

			if cached, ok := h.getCachedResult(n); ok {
				mu.Lock()
				results[n] = cached
				mu.Unlock()
				return
			}

			checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
			defer cancel()

			result := c.Check(checkCtx)
			result.LastChecked = time.Now()
			h.cacheResult(n, result)

			mu.Lock()
			results[n] = result
			mu.Unlock()
		}(name, checker)
	}

	wg.Wait()
	return results
}

func (h *HealthService) getCachedResult(name string) (HealthCheckResult, bool) {
	if val, ok := h.cache.Load(name); ok {
		cached := val.(cachedHealthResult)
		if time.Since(cached.timestamp) < h.config.CacheDuration {
			return cached.result, true
		}
	}
	return HealthCheckResult{}, false
}

func (h *HealthService) cacheResult(name string, result HealthCheckResult) {
	h.cache.Store(name, cachedHealthResult{
		result:    result,
		timestamp: time.Now(),
	})
}

type cachedHealthResult struct {
	result    HealthCheckResult
	timestamp time.Time
}

// Built-in health checkers

// DatabaseHealthChecker checks database health
type DatabaseHealthChecker struct {
	db   *sql.DB
	name string
}

// NewDatabaseHealthChecker creates a new database health checker
func NewDatabaseHealthChecker(db *sql.DB, name string) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db, name: name}
}

func (d *DatabaseHealthChecker) Name() string {
	return d.name
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()

	err := d.db.PingContext(ctx)
	responseTime := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:       HealthStatusFail,
			Error:        err.Error(),
			ResponseTime: responseTime,
			LastChecked:  time.Now(),
		}
	}

	stats := d.db.Stats()

	status := HealthStatusPass
	message := "Database is healthy"
	if stats.MaxOpenConnections > 0 && stats.OpenConnections > stats.MaxOpenConnections*9/10 {
		status = HealthStatusWarn
		message = "Connection pool near capacity"
	}

	return HealthCheckResult{
		Status:       status,
		Message:      message,
		ResponseTime: responseTime,
		Metadata: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration":    stats.WaitDuration.String(),
		},
		LastChecked: time.Now(),
	}
}

// RedisHealthChecker checks Redis health
type RedisHealthChecker struct {
	client *redis.Client
	name   string
}

// NewRedisHealthChecker creates a new Redis health checker
func NewRedisHealthChecker(client *redis.Client, name string) *RedisHealthChecker {
	return &RedisHealthChecker{client: client, name: name}
}

func (r *RedisHealthChecker) Name() string {
	return r.name
}

func (r *RedisHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()

	_, err := r.client.Ping(ctx).Result()
	responseTime := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:       HealthStatusFail,
			Error:        err.Error(),
			ResponseTime: responseTime,
			LastChecked:  time.Now(),
		}
	}

	poolStats := r.client.PoolStats()

	return HealthCheckResult{
		Status:       HealthStatusPass,
		Message:      "Redis is healthy",
		ResponseTime: responseTime,
		Metadata: map[string]interface{}{
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
		},
		LastChecked: time.Now(),
	}
}

// SystemHealthChecker checks process resources
type SystemHealthChecker struct{}

// NewSystemHealthChecker creates a new system health checker
func NewSystemHealthChecker() *SystemHealthChecker {
	return &SystemHealthChecker{}
}

func (s *SystemHealthChecker) Name() string {
	return "system"
}

func (s *SystemHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := HealthStatusPass
	message := "System resources are healthy"

	heapUsagePercent := float64(m.HeapAlloc) / float64(m.HeapSys) * 100
	if heapUsagePercent > 90 {
		status = HealthStatusFail
		message = "Memory usage critical"
	} else if heapUsagePercent > 75 {
		status = HealthStatusWarn
		message = "Memory usage high"
	}

	numGoroutines := runtime.NumGoroutine()
	if numGoroutines > 10000 && status == HealthStatusPass {
		status = HealthStatusWarn
		message = "High number of goroutines"
	}

	return HealthCheckResult{
		Status:       status,
		Message:      message,
		ResponseTime: time.Since(start),
		Metadata: map[string]interface{}{
			"goroutines":         numGoroutines,
			"heap_alloc_mb":      m.HeapAlloc / 1024 / 1024,
			"heap_sys_mb":        m.HeapSys / 1024 / 1024,
			"heap_usage_percent": fmt.Sprintf("%.2f", heapUsagePercent),
			"gc_runs":            m.NumGC,
			"go_version":         runtime.Version(),
		},
		LastChecked: time.Now(),
	}
}

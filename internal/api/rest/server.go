package rest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/davidleathers/applicant-trust-engine/internal/api/websocket"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/cache"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/config"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/database"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/instrumentation"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/repository"
	"github.com/davidleathers/applicant-trust-engine/internal/metrics"
	"github.com/davidleathers/applicant-trust-engine/internal/service/alerting"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// Server is the assessment engine's HTTP surface
type Server struct {
	config        *config.Config
	httpServer    *http.Server
	handler       *Handler
	wsHandler     *websocket.Handler
	alertManager  *alerting.Manager
	auth          *AuthMiddleware
	logger        *slog.Logger
	db            *sql.DB
	dbPool        *database.ConnectionPool
	redis         *redis.Client
	healthService *HealthService

	hubCancel context.CancelFunc
}

// NewServer builds the full dependency graph from configuration: storage,
// caches, the pattern catalog, evaluators, the assessment service, alerting
// and the middleware chain.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	dbPool, err := database.NewConnectionPool(&cfg.Database, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	sqlDB := dbPool.DB()

	// Redis is optional. Without it the profile store and submission
	// window fall back to their in-process implementations, which is
	// fine for a single instance but loses state on restart.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(&cfg.Redis, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
	}

	assessmentRepo := repository.NewAssessmentRepository(sqlDB)
	patternRepo := repository.NewPatternRepository(sqlDB)
	documentIndex := repository.NewDocumentIndex(sqlDB)
	alertRepo := repository.NewAlertRepository(sqlDB)

	registry := fraud.NewPatternRegistry()
	loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := patternRepo.List(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("loading pattern catalog: %w", err)
	}
	registry.Merge(rows)

	var profiles fraud.ProfileStore
	var window fraud.SubmissionWindow
	if redisClient != nil {
		profiles = cache.NewRedisProfileStore(redisClient, zapLogger, cfg.Assessment.ProfileTTL)
		window = cache.NewRedisSubmissionWindow(redisClient, zapLogger)
	} else {
		profiles = cache.NewMemoryProfileStore()
		window = cache.NewMemorySubmissionWindow()
	}

	metricsRegistry, err := metrics.NewRegistry("applicant-trust-engine")
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	metricsRegistry.SetDBPoolSize(int64(cfg.Database.MaxOpenConns))

	// External reference, reputation and screening providers are not
	// wired yet; the evaluators degrade to their local heuristics.
	evaluators := instrumentation.InstrumentEvaluators([]fraud.Evaluator{
		fraud.NewDocumentEvaluator(documentIndex, logger),
		fraud.NewIdentityEvaluator(nil),
		fraud.NewBehavioralEvaluator(profiles, window, logger,
			cfg.Assessment.AutomationThreshold, cfg.Assessment.SubmissionBurstMax),
		fraud.NewNetworkEvaluator(nil),
		fraud.NewBackgroundEvaluator(nil),
	}, metricsRegistry)

	wsHandler := websocket.NewHandler(zapLogger)

	alertManager := alerting.NewManager(zapLogger, alerting.Config{
		Cooldown: cfg.Assessment.Alerts.Cooldown,
	}, alertRepo, wsHandler.Hub(), metricsRegistry)

	fraudService, err := fraud.NewService(
		registry,
		evaluators,
		assessmentRepo,
		profiles,
		alertManager,
		logger,
		assessmentSettings(&cfg.Assessment),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assessment service: %w", err)
	}
	tracedService := instrumentation.NewAssessmentTracedService(fraudService, metricsRegistry)

	authMiddleware := NewAuthMiddleware(&AuthConfig{
		JWTSecret:   []byte(cfg.Security.JWTSecret),
		TokenExpiry: cfg.Security.TokenExpiry,
		Issuer:      "applicant-trust-engine",
		Audience:    []string{"api"},
	})

	healthConfig := DefaultHealthConfig()
	healthConfig.ServiceVersion = cfg.Version
	healthConfig.Environment = cfg.Environment
	healthService := NewHealthService(healthConfig)
	healthService.RegisterChecker("database", NewDatabaseHealthChecker(sqlDB, "postgres"))
	if redisClient != nil {
		healthService.RegisterChecker("redis", NewRedisHealthChecker(redisClient, "redis"))
	}
	healthService.RegisterChecker("system", NewSystemHealthChecker())

	handler := NewHandler(
		NewBaseHandler("v1"),
		tracedService,
		registry,
		patternRepo,
		alertManager,
		logger,
	)

	server := &Server{
		config:        cfg,
		handler:       handler,
		wsHandler:     wsHandler,
		alertManager:  alertManager,
		auth:          authMiddleware,
		logger:        logger,
		db:            sqlDB,
		dbPool:        dbPool,
		redis:         redisClient,
		healthService: healthService,
	}

	mux := server.setupRoutes()

	middlewares := []Middleware{
		requestIDMiddleware,
		RequestLoggingMiddleware(logger),
		MetricsMiddleware(),
		TracingMiddleware(otel.Tracer("ate.api.server")),
		recoveryMiddleware,
		SecurityHeadersMiddleware(),
		CORSMiddleware(cfg.Security.AllowedOrigins),
		RateLimitMiddleware(float64(cfg.Security.RateLimit.RequestsPerSecond), cfg.Security.RateLimit.BurstSize),
		timeoutMiddleware(cfg.Server.WriteTimeout),
		ConditionalMiddleware(authMiddleware.Middleware(), func(r *http.Request) bool {
			return !isPublicEndpoint(r.URL.Path)
		}),
	}

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	server.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        h,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server, nil
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthService.ReadinessHandler())
	mux.HandleFunc("/healthz", s.healthService.LivenessHandler())
	mux.HandleFunc("/ready", s.healthService.ReadinessHandler())
	mux.HandleFunc("/startup", s.healthService.StartupHandler())
	mux.Handle("/metrics", promhttp.Handler())

	v1 := http.NewServeMux()

	v1.HandleFunc("POST /assessments", s.handler.handleCreateAssessment)
	v1.HandleFunc("GET /assessments/{id}", s.handler.handleGetAssessment)

	v1.HandleFunc("GET /applicants/{id}/assessments", s.handler.handleListAssessments)
	v1.HandleFunc("GET /applicants/{id}/profile", s.handler.handleGetProfile)

	v1.HandleFunc("GET /patterns", s.handler.handleListPatterns)

	// Catalog and threshold mutation is admin-only
	adminOnly := s.auth.RequireRole(RoleAdmin)
	v1.Handle("PUT /patterns/{id}", adminOnly(http.HandlerFunc(s.handler.handleUpsertPattern)))
	v1.Handle("DELETE /patterns/{id}", adminOnly(http.HandlerFunc(s.handler.handleDeactivatePattern)))
	v1.Handle("PUT /admin/thresholds", adminOnly(http.HandlerFunc(s.handler.handleUpdateThresholds)))

	v1.HandleFunc("GET /alerts", s.handler.handleListAlerts)
	v1.HandleFunc("GET /alerts/stream", s.handleAlertStream)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	return mux
}

// handleAlertStream hands the authenticated identity to the WebSocket
// layer before the connection is upgraded.
func (s *Server) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	meta := requestMetaFrom(r.Context())
	s.wsHandler.HandleAlertStream(w, r, meta.UserID, meta.Role)
}

// Start runs the server until it fails or receives a shutdown signal
func (s *Server) Start() error {
	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	s.wsHandler.Start(hubCtx)

	s.logger.Info("starting API server",
		"address", s.httpServer.Addr,
		"environment", s.config.Environment,
		"version", s.config.Version,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and releases every resource
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown failed", "error", err)
		return err
	}

	s.wsHandler.Stop()
	if s.hubCancel != nil {
		s.hubCancel()
	}
	s.alertManager.Stop()

	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database handle", "error", err)
	}
	s.dbPool.Close()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("failed to close redis client", "error", err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// assessmentSettings maps configuration onto the engine's runtime tunables
func assessmentSettings(cfg *config.AssessmentConfig) *fraud.Settings {
	return &fraud.Settings{
		Thresholds: fraud.RiskThresholds{
			Low:      cfg.RiskThresholds.Low,
			Medium:   cfg.RiskThresholds.Medium,
			High:     cfg.RiskThresholds.High,
			Critical: cfg.RiskThresholds.Critical,
		},
		Alerts: fraud.AlertSettings{
			EnableRealTimeAlerts: cfg.Alerts.EnableRealTimeAlerts,
			EscalationThreshold:  cfg.Alerts.EscalationThreshold,
			AutoRejectThreshold:  cfg.Alerts.AutoRejectThreshold,
		},
		CategoryWeights: map[assessment.PatternCategory]float64{
			assessment.CategoryDocument:   cfg.PatternWeights.DocumentTampering,
			assessment.CategoryIdentity:   cfg.PatternWeights.IdentityMismatch,
			assessment.CategoryBehavioral: cfg.PatternWeights.BehavioralAnomalies,
			assessment.CategoryNetwork:    cfg.PatternWeights.NetworkAnalysis,
		},
		EvaluatorTimeout: cfg.EvaluatorTimeout,
	}
}

func isPublicEndpoint(path string) bool {
	switch path {
	case "/health", "/healthz", "/ready", "/startup", "/metrics":
		return true
	}
	return false
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

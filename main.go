package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidleathers/applicant-trust-engine/internal/api/rest"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/config"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger)

	if err := run(ctx, cfg); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting applicant trust engine",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port)

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
			ServiceName:    "applicant-trust-engine",
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			Enabled:        cfg.Telemetry.Enabled,
			SamplingRate:   cfg.Telemetry.SampleRate,
			ExportTimeout:  30 * time.Second,
			BatchTimeout:   5 * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	server, err := rest.NewServer(cfg)
	if err != nil {
		return err
	}

	// Start blocks until a shutdown signal arrives and drains the server
	// itself before returning.
	return server.Start()
}

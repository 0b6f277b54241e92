package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Assessment AssessmentConfig `koanf:"assessment"`
	Security   SecurityConfig   `koanf:"security"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// AssessmentConfig is the runtime-tunable scoring surface: classification
// thresholds, per-category pattern weights, alerting, and the evaluator
// execution budget.
type AssessmentConfig struct {
	RiskThresholds RiskThresholds `koanf:"risk_thresholds"`
	PatternWeights PatternWeights `koanf:"pattern_weights"`
	Alerts         AlertSettings  `koanf:"alerts"`

	EvaluatorTimeout    time.Duration `koanf:"evaluator_timeout"`
	SubmissionBurstMax  int           `koanf:"submission_burst_max"`
	ProfileTTL          time.Duration `koanf:"profile_ttl"`
	AutomationThreshold float64       `koanf:"automation_threshold"`
}

// RiskThresholds are the lower bounds of each classification tier.
// Ranges are right-open on the upper threshold, so classification checks
// them in descending order.
type RiskThresholds struct {
	Low      float64 `koanf:"low"`
	Medium   float64 `koanf:"medium"`
	High     float64 `koanf:"high"`
	Critical float64 `koanf:"critical"`
}

// PatternWeights override the per-category multipliers derived from the
// pattern catalog. Weights are independent multipliers, not a probability
// partition; they need not sum to 1.
type PatternWeights struct {
	DocumentTampering   float64 `koanf:"document_tampering"`
	IdentityMismatch    float64 `koanf:"identity_mismatch"`
	BehavioralAnomalies float64 `koanf:"behavioral_anomalies"`
	NetworkAnalysis     float64 `koanf:"network_analysis"`
}

type AlertSettings struct {
	EnableRealTimeAlerts bool          `koanf:"enable_real_time_alerts"`
	EscalationThreshold  float64       `koanf:"escalation_threshold"`
	AutoRejectThreshold  float64       `koanf:"auto_reject_threshold"`
	Cooldown             time.Duration `koanf:"cooldown"`
}

type SecurityConfig struct {
	JWTSecret      string          `koanf:"jwt_secret"`
	TokenExpiry    time.Duration   `koanf:"token_expiry"`
	AllowedOrigins []string        `koanf:"allowed_origins"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SampleRate   float64 `koanf:"sample_rate"`
	Enabled      bool    `koanf:"enabled"`
}

func Load() (*Config, error) {
	return LoadFrom("configs/config.yaml")
}

// LoadFrom layers defaults, an optional YAML file, and ATE_-prefixed
// environment variables, then validates the result.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional; missing file falls through to env overrides.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("ATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ATE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Assessment: AssessmentConfig{
			RiskThresholds: RiskThresholds{
				Low:      0.0,
				Medium:   0.4,
				High:     0.6,
				Critical: 0.8,
			},
			PatternWeights: PatternWeights{
				DocumentTampering:   0.9,
				IdentityMismatch:    0.8,
				BehavioralAnomalies: 0.6,
				NetworkAnalysis:     0.5,
			},
			Alerts: AlertSettings{
				EnableRealTimeAlerts: true,
				EscalationThreshold:  0.8,
				AutoRejectThreshold:  0.95,
				Cooldown:             5 * time.Minute,
			},
			EvaluatorTimeout:    5 * time.Second,
			SubmissionBurstMax:  5,
			ProfileTTL:          30 * 24 * time.Hour,
			AutomationThreshold: 0.7,
		},
		Security: SecurityConfig{
			TokenExpiry:    24 * time.Hour,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Telemetry: TelemetryConfig{
			SampleRate: 0.1,
			Enabled:    false,
		},
	}
}

// Validate enforces the startup invariants: tier thresholds strictly
// ordered and every threshold/weight inside the unit interval. A config
// error here is fatal at startup, never per-request.
func (c *Config) Validate() error {
	t := c.Assessment.RiskThresholds
	if t.Low < 0 || t.Critical > 1 {
		return fmt.Errorf("risk thresholds must lie in [0,1]")
	}
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("risk thresholds must be strictly increasing: low=%v medium=%v high=%v critical=%v",
			t.Low, t.Medium, t.High, t.Critical)
	}

	for name, w := range map[string]float64{
		"document_tampering":   c.Assessment.PatternWeights.DocumentTampering,
		"identity_mismatch":    c.Assessment.PatternWeights.IdentityMismatch,
		"behavioral_anomalies": c.Assessment.PatternWeights.BehavioralAnomalies,
		"network_analysis":     c.Assessment.PatternWeights.NetworkAnalysis,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("pattern weight %s must be in [0,1], got %v", name, w)
		}
	}

	a := c.Assessment.Alerts
	if a.EscalationThreshold < 0 || a.EscalationThreshold > 1 {
		return fmt.Errorf("escalation threshold must be in [0,1], got %v", a.EscalationThreshold)
	}
	if a.AutoRejectThreshold < 0 || a.AutoRejectThreshold > 1 {
		return fmt.Errorf("auto-reject threshold must be in [0,1], got %v", a.AutoRejectThreshold)
	}

	if c.Assessment.EvaluatorTimeout <= 0 {
		return fmt.Errorf("evaluator timeout must be positive")
	}
	if c.Assessment.SubmissionBurstMax < 1 {
		return fmt.Errorf("submission burst max must be at least 1")
	}

	return nil
}

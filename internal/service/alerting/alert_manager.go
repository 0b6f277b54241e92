package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/metrics"
)

// Alert types raised by the manager.
const (
	AlertTypeHighRisk   = "high_risk_score"
	AlertTypeAutoReject = "auto_reject"
)

const (
	DefaultCooldown       = 5 * time.Minute
	DefaultRetentionAge   = 7 * 24 * time.Hour
	DefaultPersistTimeout = 10 * time.Second
	DefaultRecentLimit    = 50

	cleanupInterval = time.Hour
)

// RiskAlert is one escalation raised when a verdict crosses the escalation
// threshold. Alerts are immutable after TriggerAlert accepts them.
type RiskAlert struct {
	ID           uuid.UUID `json:"id"`
	AlertType    string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	ApplicantID  string    `json:"applicant_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	RiskScore    float64   `json:"risk_score"`
	Message      string    `json:"message"`
	Patterns     []string  `json:"patterns,omitempty"`
	TriggeredAt  time.Time `json:"triggered_at"`
}

// AlertRepository persists alerts for the recent-alerts listing.
type AlertRepository interface {
	Save(ctx context.Context, alert *RiskAlert) error
	ListRecent(ctx context.Context, limit int) ([]*RiskAlert, error)
}

// Broadcaster pushes alerts to live subscribers.
type Broadcaster interface {
	BroadcastAlert(alert *RiskAlert)
}

// Config tunes suppression and retention.
type Config struct {
	// Cooldown is the window inside which repeat alerts for the same
	// type, severity and applicant are suppressed.
	Cooldown time.Duration
	// RetentionAge bounds the in-memory alert window.
	RetentionAge time.Duration
	// PersistTimeout bounds each asynchronous repository write.
	PersistTimeout time.Duration
}

// Manager fans high-risk verdicts out to storage and live subscribers,
// deduplicating repeats within the cooldown window. Persistence and
// broadcast happen off the assessment path; the in-memory window backs
// GetRecent and Summary when no repository is configured.
//
// The repository, broadcaster and metrics registry may each be nil; the
// manager degrades to in-memory tracking and logging.
type Manager struct {
	logger      *zap.Logger
	repo        AlertRepository
	broadcaster Broadcaster
	metrics     *metrics.Registry
	config      Config

	mu        sync.Mutex
	alerts    map[uuid.UUID]*RiskAlert
	cooldowns map[string]time.Time

	backgroundCtx context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewManager wires the alert pipeline.
func NewManager(logger *zap.Logger, cfg Config, repo AlertRepository, broadcaster Broadcaster, registry *metrics.Registry) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.RetentionAge <= 0 {
		cfg.RetentionAge = DefaultRetentionAge
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:        logger,
		repo:          repo,
		broadcaster:   broadcaster,
		metrics:       registry,
		config:        cfg,
		alerts:        make(map[uuid.UUID]*RiskAlert),
		cooldowns:     make(map[string]time.Time),
		backgroundCtx: ctx,
		cancel:        cancel,
	}
}

// NotifyHighRisk converts a verdict into an alert and dispatches it.
func (m *Manager) NotifyHighRisk(ctx context.Context, result *assessment.FraudAnalysisResult) {
	if result == nil {
		return
	}

	alertType := AlertTypeHighRisk
	if result.AutoReject {
		alertType = AlertTypeAutoReject
	}

	patterns := make([]string, 0, len(result.DetectedPatterns))
	for _, p := range result.DetectedPatterns {
		patterns = append(patterns, p.PatternID)
	}

	m.TriggerAlert(ctx, &RiskAlert{
		ID:           uuid.New(),
		AlertType:    alertType,
		Severity:     string(result.RiskLevel),
		ApplicantID:  result.ApplicantID,
		AssessmentID: result.ID,
		RiskScore:    result.OverallRiskScore,
		Message: fmt.Sprintf("applicant %s scored %.2f (%s)",
			result.ApplicantID, result.OverallRiskScore, result.RiskLevel),
		Patterns:    patterns,
		TriggeredAt: result.AnalysisTimestamp,
	})
}

// TriggerAlert records and dispatches an alert unless an equivalent one
// fired inside the cooldown window.
func (m *Manager) TriggerAlert(ctx context.Context, alert *RiskAlert) {
	if alert == nil {
		return
	}

	m.mu.Lock()
	key := cooldownKey(alert)
	if last, ok := m.cooldowns[key]; ok && time.Since(last) < m.config.Cooldown {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown",
			zap.String("alert_type", alert.AlertType),
			zap.String("applicant_id", alert.ApplicantID),
			zap.Duration("since_last", time.Since(last)))
		if m.metrics != nil {
			m.metrics.RecordAlert(ctx, alert.Severity, true)
		}
		return
	}
	m.alerts[alert.ID] = alert
	m.cooldowns[key] = alert.TriggeredAt
	m.mu.Unlock()

	m.logger.Warn("risk alert triggered",
		zap.String("alert_id", alert.ID.String()),
		zap.String("alert_type", alert.AlertType),
		zap.String("severity", alert.Severity),
		zap.String("applicant_id", alert.ApplicantID),
		zap.Float64("risk_score", alert.RiskScore))

	if m.metrics != nil {
		m.metrics.RecordAlert(ctx, alert.Severity, false)
	}

	// Persist and broadcast off the assessment path. WithoutCancel because
	// the request that produced the verdict may finish first.
	bg := context.WithoutCancel(ctx)
	if m.repo != nil {
		if m.metrics != nil {
			m.metrics.UpdatePendingAlerts(1)
		}
		m.wg.Add(1)
		go m.persistAlert(bg, alert)
	}
	if m.broadcaster != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.broadcaster.BroadcastAlert(alert)
		}()
	}
}

// GetRecent returns the newest alerts first. The repository is the source
// of truth when configured; otherwise the in-memory window serves.
func (m *Manager) GetRecent(ctx context.Context, limit int) ([]*RiskAlert, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if m.repo != nil {
		return m.repo.ListRecent(ctx, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*RiskAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summary aggregates the in-memory alert window.
type Summary struct {
	TotalAlerts int            `json:"total_alerts"`
	BySeverity  map[string]int `json:"by_severity"`
	ByType      map[string]int `json:"by_type"`
}

func (m *Manager) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Summary{
		TotalAlerts: len(m.alerts),
		BySeverity:  make(map[string]int),
		ByType:      make(map[string]int),
	}
	for _, a := range m.alerts {
		s.BySeverity[a.Severity]++
		s.ByType[a.AlertType]++
	}
	return s
}

// CleanupOldAlerts drops alerts and cooldown entries older than maxAge.
func (m *Manager) CleanupOldAlerts(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for id, a := range m.alerts {
		if a.TriggeredAt.Before(cutoff) {
			delete(m.alerts, id)
			cleaned++
		}
	}
	for key, last := range m.cooldowns {
		if last.Before(cutoff) {
			delete(m.cooldowns, key)
		}
	}

	if cleaned > 0 {
		m.logger.Debug("cleaned up old alerts",
			zap.Int("cleaned", cleaned),
			zap.Duration("max_age", maxAge))
	}
	return cleaned
}

// StartPeriodicCleanup prunes the in-memory window hourly until Stop.
func (m *Manager) StartPeriodicCleanup() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.backgroundCtx.Done():
				return
			case <-ticker.C:
				m.CleanupOldAlerts(m.config.RetentionAge)
			}
		}
	}()
}

// Stop halts background work and waits for in-flight persists and
// broadcasts to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) persistAlert(ctx context.Context, alert *RiskAlert) {
	defer m.wg.Done()
	defer func() {
		if m.metrics != nil {
			m.metrics.UpdatePendingAlerts(-1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.config.PersistTimeout)
	defer cancel()

	if err := m.repo.Save(ctx, alert); err != nil {
		m.logger.Error("failed to persist alert",
			zap.String("alert_id", alert.ID.String()),
			zap.String("applicant_id", alert.ApplicantID),
			zap.Error(err))
	}
}

// cooldownKey buckets repeat alerts. The same type, severity and applicant
// inside the window reads as one incident, not several.
func cooldownKey(a *RiskAlert) string {
	return a.AlertType + ":" + a.Severity + ":" + a.ApplicantID
}

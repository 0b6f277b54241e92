package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/davidleathers/applicant-trust-engine/internal/service/alerting"
)

// alertRepository implements alerting.AlertRepository using PostgreSQL
type alertRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB) alerting.AlertRepository {
	return &alertRepository{db: db}
}

// Save inserts one dispatched alert
func (r *alertRepository) Save(ctx context.Context, alert *alerting.RiskAlert) error {
	if alert == nil {
		return errors.New("alert cannot be nil")
	}
	if alert.ID == uuid.Nil {
		return errors.New("alert id cannot be nil")
	}
	if alert.ApplicantID == "" {
		return errors.New("applicant_id cannot be empty")
	}

	// Nil slices marshal to JSON null; the column wants an array.
	patterns := alert.Patterns
	if patterns == nil {
		patterns = []string{}
	}
	patternsJSON, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal alert patterns: %w", err)
	}

	query := `
		INSERT INTO fraud_alerts (
			id, alert_type, severity, applicant_id, assessment_id,
			risk_score, message, patterns, triggered_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		alert.ID, alert.AlertType, alert.Severity, alert.ApplicantID, alert.AssessmentID,
		alert.RiskScore, alert.Message, patternsJSON, alert.TriggeredAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("%w: alert %s", ErrDuplicateKey, alert.ID)
		}
		return fmt.Errorf("failed to save alert: %w", err)
	}

	return nil
}

// ListRecent retrieves the newest alerts first
func (r *alertRepository) ListRecent(ctx context.Context, limit int) ([]*alerting.RiskAlert, error) {
	if limit <= 0 {
		limit = alerting.DefaultRecentLimit
	}

	query := `
		SELECT id, alert_type, severity, applicant_id, assessment_id,
		       risk_score, message, patterns, triggered_at
		FROM fraud_alerts
		ORDER BY triggered_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*alerting.RiskAlert{}
	for rows.Next() {
		var (
			alert        alerting.RiskAlert
			patternsJSON []byte
		)
		if err := rows.Scan(
			&alert.ID, &alert.AlertType, &alert.Severity, &alert.ApplicantID, &alert.AssessmentID,
			&alert.RiskScore, &alert.Message, &patternsJSON, &alert.TriggeredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		if err := json.Unmarshal(patternsJSON, &alert.Patterns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert patterns: %w", err)
		}
		alerts = append(alerts, &alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

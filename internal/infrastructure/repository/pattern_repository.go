package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// patternRepository implements fraud.PatternRepository using PostgreSQL.
// The table mirrors the in-memory catalog; the engine loads it at startup
// and admin upserts flow through here.
type patternRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewPatternRepository creates a new pattern catalog repository
func NewPatternRepository(db *sql.DB) fraud.PatternRepository {
	return &patternRepository{db: db}
}

// List returns every catalog row, active and inactive
func (r *patternRepository) List(ctx context.Context) ([]*assessment.FraudPattern, error) {
	query := `
		SELECT id, name, category, severity, weight, active
		FROM fraud_patterns
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*assessment.FraudPattern
	for rows.Next() {
		var p assessment.FraudPattern
		var category, severity string
		if err := rows.Scan(&p.ID, &p.Name, &category, &severity, &p.Weight, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.Category = assessment.PatternCategory(category)
		p.Severity = assessment.Severity(severity)
		patterns = append(patterns, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	return patterns, nil
}

// Upsert inserts or replaces a catalog row
func (r *patternRepository) Upsert(ctx context.Context, pattern *assessment.FraudPattern) error {
	if pattern == nil {
		return errors.New("pattern cannot be nil")
	}
	if pattern.ID == "" {
		return errors.New("pattern id cannot be empty")
	}

	query := `
		INSERT INTO fraud_patterns (id, name, category, severity, weight, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity,
			weight = EXCLUDED.weight,
			active = EXCLUDED.active,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		pattern.ID, pattern.Name, string(pattern.Category), string(pattern.Severity),
		pattern.Weight, pattern.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern %s: %w", pattern.ID, err)
	}

	return nil
}

// Deactivate marks a catalog row inactive
func (r *patternRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE fraud_patterns
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate pattern %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivation result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", ErrNotFound, id)
	}

	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// documentIndex implements fraud.DocumentIndex using PostgreSQL. The
// fingerprint table is append-only; re-submitting the same document is a
// no-op, not an error.
type documentIndex struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewDocumentIndex creates a new cross-applicant document fingerprint index
func NewDocumentIndex(db *sql.DB) fraud.DocumentIndex {
	return &documentIndex{db: db}
}

// FindCollisions returns other applicants that have submitted the same hash
func (r *documentIndex) FindCollisions(ctx context.Context, hash string, excludeApplicantID string) ([]string, error) {
	if hash == "" {
		return nil, errors.New("hash cannot be empty")
	}

	query := `
		SELECT DISTINCT applicant_id
		FROM document_fingerprints
		WHERE hash = $1 AND applicant_id <> $2
		ORDER BY applicant_id
	`

	rows, err := r.db.QueryContext(ctx, query, hash, excludeApplicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find collisions: %w", err)
	}
	defer rows.Close()

	applicants := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collision row: %w", err)
		}
		applicants = append(applicants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collisions: %w", err)
	}

	return applicants, nil
}

// Record stores the fingerprint of a newly seen document
func (r *documentIndex) Record(ctx context.Context, applicantID string, doc applicant.Document) error {
	if applicantID == "" {
		return errors.New("applicant_id cannot be empty")
	}
	if doc.Hash == "" {
		return errors.New("document hash cannot be empty")
	}

	query := `
		INSERT INTO document_fingerprints (hash, applicant_id, document_id, document_type, recorded_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (hash, applicant_id, document_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, doc.Hash, applicantID, doc.ID, doc.Type); err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}

	return nil
}

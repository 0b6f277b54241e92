package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// assessmentRepository implements fraud.ResultRepository using PostgreSQL.
// Detected patterns and recommendations are stored as JSONB so the verdict
// round-trips exactly as the engine produced it.
type assessmentRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *sql.DB) fraud.ResultRepository {
	return &assessmentRepository{db: db}
}

// NewAssessmentRepositoryWithTx creates a new assessment repository bound
// to a transaction
func NewAssessmentRepositoryWithTx(tx *sql.Tx) fraud.ResultRepository {
	return &assessmentRepository{db: tx}
}

// Save inserts a completed verdict
func (r *assessmentRepository) Save(ctx context.Context, result *assessment.FraudAnalysisResult) error {
	if result == nil {
		return errors.New("result cannot be nil")
	}
	if result.ID == uuid.Nil {
		return errors.New("assessment id cannot be nil")
	}
	if result.ApplicantID == "" {
		return errors.New("applicant_id cannot be empty")
	}

	// Nil slices marshal to JSON null; the columns want arrays.
	patterns := result.DetectedPatterns
	if patterns == nil {
		patterns = []assessment.DetectedPattern{}
	}
	recommendations := result.Recommendations
	if recommendations == nil {
		recommendations = []assessment.FraudRecommendation{}
	}

	patternsJSON, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal detected patterns: %w", err)
	}
	recommendationsJSON, err := json.Marshal(recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO fraud_assessments (
			id, applicant_id, overall_risk_score, risk_level,
			detected_patterns, recommendations,
			requires_manual_review, auto_reject, analysis_timestamp
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		result.ID, result.ApplicantID, result.OverallRiskScore, string(result.RiskLevel),
		patternsJSON, recommendationsJSON,
		result.RequiresManualReview, result.AutoReject, result.AnalysisTimestamp,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("%w: assessment %s", ErrDuplicateKey, result.ID)
		}
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	return nil
}

// GetByID retrieves a verdict by its engine-assigned ID
func (r *assessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error) {
	query := `
		SELECT id, applicant_id, overall_risk_score, risk_level,
		       detected_patterns, recommendations,
		       requires_manual_review, auto_reject, analysis_timestamp
		FROM fraud_assessments
		WHERE id = $1
	`

	result, err := scanAssessment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return result, nil
}

// ListByApplicant retrieves an applicant's verdicts, newest first
func (r *assessmentRepository) ListByApplicant(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error) {
	query := `
		SELECT id, applicant_id, overall_risk_score, risk_level,
		       detected_patterns, recommendations,
		       requires_manual_review, auto_reject, analysis_timestamp
		FROM fraud_assessments
		WHERE applicant_id = $1
		ORDER BY analysis_timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, applicantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var results []*assessment.FraudAnalysisResult
	for rows.Next() {
		result, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}

	return results, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*assessment.FraudAnalysisResult, error) {
	var result assessment.FraudAnalysisResult
	var riskLevel string
	var patternsJSON, recommendationsJSON []byte

	err := row.Scan(
		&result.ID, &result.ApplicantID, &result.OverallRiskScore, &riskLevel,
		&patternsJSON, &recommendationsJSON,
		&result.RequiresManualReview, &result.AutoReject, &result.AnalysisTimestamp,
	)
	if err != nil {
		return nil, err
	}

	result.RiskLevel = assessment.RiskLevel(riskLevel)

	if err := json.Unmarshal(patternsJSON, &result.DetectedPatterns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detected patterns: %w", err)
	}
	if err := json.Unmarshal(recommendationsJSON, &result.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}

	return &result, nil
}

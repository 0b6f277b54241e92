package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// Metadata anomaly confidences. A future creation timestamp is
// deterministic evidence of tampering; a denylisted producer string is a
// heuristic and scores lower.
const (
	futureTimestampConfidence = 0.9
	producerMarkerConfidence  = 0.7
	combinedAnomalyConfidence = 0.95
	metadataAnomalyImpact     = 0.7
)

// suspiciousProducers are generator strings seen on forged or templated
// documents. Matched case-insensitively as substrings.
var suspiciousProducers = []string{
	"template",
	"placeholder",
	"sample",
	"demo",
	"fakepdf",
}

// DocumentEvaluator detects reused and tampered documents: cross-applicant
// hash collisions through the fingerprint index, and metadata that no
// legitimately produced document would carry.
type DocumentEvaluator struct {
	index  DocumentIndex
	logger *slog.Logger
}

// NewDocumentEvaluator creates the document evaluator.
func NewDocumentEvaluator(index DocumentIndex, logger *slog.Logger) *DocumentEvaluator {
	return &DocumentEvaluator{
		index:  index,
		logger: logger,
	}
}

// Name identifies the evaluator in logs and metrics.
func (e *DocumentEvaluator) Name() string { return EvaluatorDocument }

// Applicable reports whether the submission carries documents to inspect.
func (e *DocumentEvaluator) Applicable(input *AssessmentInput) bool {
	return len(input.Documents) > 0
}

// Evaluate checks every document for hash collisions and metadata
// anomalies, then records its fingerprint for future collision checks.
func (e *DocumentEvaluator) Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error) {
	now := input.SubmittedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var patterns []assessment.DetectedPattern

	for _, doc := range input.Documents {
		others, err := e.index.FindCollisions(ctx, doc.Hash, input.ApplicantID)
		if err != nil {
			return nil, fmt.Errorf("collision lookup for document %s: %w", doc.ID, err)
		}
		if len(others) > 0 {
			patterns = append(patterns, assessment.NewDetectedPattern(
				PatternDocumentHashCollision,
				assessment.CategoryDocument,
				0.95, 0.95,
				fmt.Sprintf("document %s hash already submitted by %d other applicant(s)", doc.ID, len(others)),
			))
		}

		if anomaly := inspectMetadata(doc, now); anomaly != nil {
			patterns = append(patterns, assessment.NewDetectedPattern(
				PatternDocumentMetadataAnomaly,
				assessment.CategoryDocument,
				anomaly.confidence, metadataAnomalyImpact,
				anomaly.evidence...,
			))
		}

		// Fingerprint recording is best-effort: a write failure must not
		// discard findings already made against this submission.
		if err := e.index.Record(ctx, input.ApplicantID, doc); err != nil {
			e.logger.WarnContext(ctx, "document fingerprint record failed",
				"applicant_id", input.ApplicantID,
				"document_id", doc.ID,
				"error", err)
		}
	}

	return patterns, nil
}

// metadataAnomaly is one document's combined metadata findings.
type metadataAnomaly struct {
	confidence float64
	evidence   []string
}

// inspectMetadata checks a document's metadata for implausible fields.
// Documents without metadata yield no signal.
func inspectMetadata(doc applicant.Document, now time.Time) *metadataAnomaly {
	var (
		evidence        []string
		futureTimestamp bool
		producerMarker  bool
	)

	if doc.Metadata.CreationTime != nil && doc.Metadata.CreationTime.After(now) {
		futureTimestamp = true
		evidence = append(evidence,
			fmt.Sprintf("document %s creation time %s is in the future",
				doc.ID, doc.Metadata.CreationTime.Format(time.RFC3339)))
	}

	if producer := strings.ToLower(doc.Metadata.Producer); producer != "" {
		for _, marker := range suspiciousProducers {
			if strings.Contains(producer, marker) {
				producerMarker = true
				evidence = append(evidence,
					fmt.Sprintf("document %s produced by suspicious tool %q", doc.ID, doc.Metadata.Producer))
				break
			}
		}
	}

	switch {
	case futureTimestamp && producerMarker:
		return &metadataAnomaly{confidence: combinedAnomalyConfidence, evidence: evidence}
	case futureTimestamp:
		return &metadataAnomaly{confidence: futureTimestampConfidence, evidence: evidence}
	case producerMarker:
		return &metadataAnomaly{confidence: producerMarkerConfidence, evidence: evidence}
	default:
		return nil
	}
}

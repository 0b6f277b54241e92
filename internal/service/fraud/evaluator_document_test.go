package fraud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testHash produces a distinct well-formed document hash per seed.
func testHash(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 32)
}

func testDocument(id string, seed byte) applicant.Document {
	return applicant.Document{
		ID:   id,
		Type: "transcript",
		Hash: testHash(seed),
	}
}

func TestDocumentEvaluator_Applicable(t *testing.T) {
	e := NewDocumentEvaluator(new(mockDocumentIndex), discardLogger())

	assert.False(t, e.Applicable(&AssessmentInput{ApplicantID: "a-1"}))
	assert.True(t, e.Applicable(&AssessmentInput{
		ApplicantID: "a-1",
		Documents:   []applicant.Document{testDocument("d-1", 0xaa)},
	}))
}

func TestDocumentEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()
	submitted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	future := submitted.Add(48 * time.Hour)

	tests := []struct {
		name       string
		setupMocks func(*mockDocumentIndex)
		input      *AssessmentInput
		wantErr    bool
		check      func(*testing.T, []assessment.DetectedPattern)
	}{
		{
			name: "clean document yields no findings",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, testHash(0x01), "a-1").Return([]string{}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(nil)
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents:   []applicant.Document{testDocument("d-1", 0x01)},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				assert.Empty(t, patterns)
			},
		},
		{
			name: "cross-applicant hash collision detected",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, testHash(0x02), "a-1").Return([]string{"b-9"}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(nil)
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents:   []applicant.Document{testDocument("d-1", 0x02)},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				require.Len(t, patterns, 1)
				assert.Equal(t, PatternDocumentHashCollision, patterns[0].PatternID)
				assert.Equal(t, assessment.CategoryDocument, patterns[0].Category)
				assert.InDelta(t, 0.95, patterns[0].Confidence, 1e-9)
				require.NotEmpty(t, patterns[0].Evidence)
				assert.Contains(t, patterns[0].Evidence[0], "1 other applicant")
			},
		},
		{
			name: "future creation timestamp flagged with high confidence",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, mock.Anything, "a-1").Return([]string{}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(nil)
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents: []applicant.Document{{
					ID:       "d-1",
					Hash:     testHash(0x03),
					Metadata: applicant.DocumentMetadata{CreationTime: &future},
				}},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				require.Len(t, patterns, 1)
				assert.Equal(t, PatternDocumentMetadataAnomaly, patterns[0].PatternID)
				assert.InDelta(t, futureTimestampConfidence, patterns[0].Confidence, 1e-9)
				assert.Contains(t, patterns[0].Evidence[0], "in the future")
			},
		},
		{
			name: "denylisted producer flagged with lower confidence",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, mock.Anything, "a-1").Return([]string{}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(nil)
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents: []applicant.Document{{
					ID:       "d-1",
					Hash:     testHash(0x04),
					Metadata: applicant.DocumentMetadata{Producer: "FakePDF Writer 2.0"},
				}},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				require.Len(t, patterns, 1)
				assert.InDelta(t, producerMarkerConfidence, patterns[0].Confidence, 1e-9)
				assert.Contains(t, patterns[0].Evidence[0], "suspicious tool")
			},
		},
		{
			name: "both anomaly kinds compound",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, mock.Anything, "a-1").Return([]string{}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(nil)
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents: []applicant.Document{{
					ID:   "d-1",
					Hash: testHash(0x05),
					Metadata: applicant.DocumentMetadata{
						CreationTime: &future,
						Producer:     "Template Forge",
					},
				}},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				require.Len(t, patterns, 1)
				assert.InDelta(t, combinedAnomalyConfidence, patterns[0].Confidence, 1e-9)
				assert.Len(t, patterns[0].Evidence, 2)
			},
		},
		{
			name: "collision lookup failure fails the evaluator",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, mock.Anything, "a-1").Return(nil, fmt.Errorf("index offline"))
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents:   []applicant.Document{testDocument("d-1", 0x06)},
				SubmittedAt: submitted,
			},
			wantErr: true,
		},
		{
			name: "fingerprint write failure keeps the findings",
			setupMocks: func(idx *mockDocumentIndex) {
				idx.On("FindCollisions", ctx, mock.Anything, "a-1").Return([]string{"b-9"}, nil)
				idx.On("Record", ctx, "a-1", mock.AnythingOfType("applicant.Document")).Return(fmt.Errorf("write refused"))
			},
			input: &AssessmentInput{
				ApplicantID: "a-1",
				Documents:   []applicant.Document{testDocument("d-1", 0x07)},
				SubmittedAt: submitted,
			},
			check: func(t *testing.T, patterns []assessment.DetectedPattern) {
				require.Len(t, patterns, 1)
				assert.Equal(t, PatternDocumentHashCollision, patterns[0].PatternID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := new(mockDocumentIndex)
			tt.setupMocks(idx)

			e := NewDocumentEvaluator(idx, discardLogger())
			patterns, err := e.Evaluate(ctx, tt.input)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, patterns)
				return
			}
			require.NoError(t, err)
			tt.check(t, patterns)
			idx.AssertExpectations(t)
		})
	}
}

// Mock implementations

type mockDocumentIndex struct {
	mock.Mock
}

func (m *mockDocumentIndex) FindCollisions(ctx context.Context, hash string, excludeApplicantID string) ([]string, error) {
	args := m.Called(ctx, hash, excludeApplicantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockDocumentIndex) Record(ctx context.Context, applicantID string, doc applicant.Document) error {
	args := m.Called(ctx, applicantID, doc)
	return args.Error(0)
}

package fraud

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

func identityInput(docs ...applicant.Document) *AssessmentInput {
	return &AssessmentInput{
		ApplicantID: "a-1",
		Personal: applicant.PersonalInfo{
			FullName:    "Jordan Reyes",
			DateOfBirth: "1999-04-17",
			Address:     "12 Hill Road, Springfield",
		},
		Documents: docs,
	}
}

func TestIdentityEvaluator_FieldConsistency(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		docs           []applicant.Document
		wantPatterns   int
		wantConfidence float64
		wantEvidence   int
	}{
		{
			name: "matching fields raise nothing",
			docs: []applicant.Document{{
				ID:   "d-1",
				Hash: testHash(0x11),
				Metadata: applicant.DocumentMetadata{
					ExtractedName:        "JORDAN   REYES",
					ExtractedDateOfBirth: "1999-04-17",
					ExtractedAddress:     "12 hill road, springfield",
				},
			}},
		},
		{
			name: "documents without extracted fields are no signal",
			docs: []applicant.Document{{
				ID:   "d-1",
				Hash: testHash(0x12),
			}},
		},
		{
			name: "one mismatched field",
			docs: []applicant.Document{{
				ID:   "d-1",
				Hash: testHash(0x13),
				Metadata: applicant.DocumentMetadata{
					ExtractedName: "Jordan Smith",
				},
			}},
			wantPatterns:   1,
			wantConfidence: 0.75,
			wantEvidence:   1,
		},
		{
			name: "mismatches accumulate across documents",
			docs: []applicant.Document{
				{
					ID:   "d-1",
					Hash: testHash(0x14),
					Metadata: applicant.DocumentMetadata{
						ExtractedName:        "Jordan Smith",
						ExtractedDateOfBirth: "1997-01-01",
					},
				},
				{
					ID:   "d-2",
					Hash: testHash(0x15),
					Metadata: applicant.DocumentMetadata{
						ExtractedAddress: "99 Elsewhere Avenue",
					},
				},
			},
			wantPatterns:   1,
			wantConfidence: 0.95, // capped
			wantEvidence:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewIdentityEvaluator(nil)
			patterns, err := e.Evaluate(ctx, identityInput(tt.docs...))
			require.NoError(t, err)

			if tt.wantPatterns == 0 {
				assert.Empty(t, patterns)
				return
			}

			require.Len(t, patterns, tt.wantPatterns)
			p := patterns[0]
			assert.Equal(t, PatternIdentityInconsistency, p.PatternID)
			assert.Equal(t, assessment.CategoryIdentity, p.Category)
			assert.InDelta(t, tt.wantConfidence, p.Confidence, 1e-9)
			assert.Len(t, p.Evidence, tt.wantEvidence)
		})
	}
}

func TestIdentityEvaluator_KnownFraudLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("flagged identity emits a critical pattern", func(t *testing.T) {
		refs := new(mockReferenceChecker)
		refs.On("CheckIdentity", ctx, mock.AnythingOfType("applicant.PersonalInfo")).Return(&IdentityReference{
			Flagged: true,
			Reason:  "matched prior fraud case FR-2291",
			Source:  "internal-watchlist",
		}, nil)

		e := NewIdentityEvaluator(refs)
		patterns, err := e.Evaluate(ctx, identityInput())
		require.NoError(t, err)

		require.Len(t, patterns, 1)
		assert.Equal(t, PatternKnownFraudIdentity, patterns[0].PatternID)
		assert.InDelta(t, 0.95, patterns[0].Confidence, 1e-9)
		assert.InDelta(t, 1.0, patterns[0].Impact, 1e-9)
		assert.Contains(t, patterns[0].Evidence[0], "internal-watchlist")
		refs.AssertExpectations(t)
	})

	t.Run("clean lookup adds nothing", func(t *testing.T) {
		refs := new(mockReferenceChecker)
		refs.On("CheckIdentity", ctx, mock.AnythingOfType("applicant.PersonalInfo")).Return(&IdentityReference{}, nil)

		e := NewIdentityEvaluator(refs)
		patterns, err := e.Evaluate(ctx, identityInput())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("lookup failure fails the evaluator", func(t *testing.T) {
		refs := new(mockReferenceChecker)
		refs.On("CheckIdentity", ctx, mock.AnythingOfType("applicant.PersonalInfo")).Return(nil, fmt.Errorf("watchlist unavailable"))

		e := NewIdentityEvaluator(refs)
		patterns, err := e.Evaluate(ctx, identityInput())
		require.Error(t, err)
		assert.Nil(t, patterns)
	})

	t.Run("nil checker skips the lookup", func(t *testing.T) {
		e := NewIdentityEvaluator(nil)
		patterns, err := e.Evaluate(ctx, identityInput())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})
}

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "jordan reyes", normalizeField("  JORDAN   Reyes "))
	assert.True(t, fieldsMatch("12 Hill  Road", "12 hill road"))
	assert.False(t, fieldsMatch("Jordan Reyes", "Jordan Smith"))
}

// Mock implementations

type mockReferenceChecker struct {
	mock.Mock
}

func (m *mockReferenceChecker) CheckIdentity(ctx context.Context, info applicant.PersonalInfo) (*IdentityReference, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IdentityReference), args.Error(1)
}

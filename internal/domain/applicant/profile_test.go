package applicant_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
)

func TestBehavioralProfile_RecordSubmission(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		seed      []time.Time
		recordAt  time.Time
		wantCount int
	}{
		{
			name:      "first submission",
			seed:      nil,
			recordAt:  now,
			wantCount: 1,
		},
		{
			name: "keeps submissions inside the window",
			seed: []time.Time{
				now.Add(-23 * time.Hour),
				now.Add(-2 * time.Hour),
			},
			recordAt:  now,
			wantCount: 3,
		},
		{
			name: "prunes submissions older than the window",
			seed: []time.Time{
				now.Add(-30 * time.Hour),
				now.Add(-25 * time.Hour),
				now.Add(-1 * time.Hour),
			},
			recordAt:  now,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := applicant.NewBehavioralProfile("applicant-1")
			for _, ts := range tt.seed {
				p.SubmissionTimestamps = append(p.SubmissionTimestamps, ts)
			}

			p.RecordSubmission(tt.recordAt)

			assert.Len(t, p.SubmissionTimestamps, tt.wantCount)
			assert.Equal(t, tt.recordAt, p.LastSeen)
		})
	}
}

func TestBehavioralProfile_SubmissionsWithin(t *testing.T) {
	now := time.Now().UTC()
	p := applicant.NewBehavioralProfile("applicant-1")
	for i := 0; i < 6; i++ {
		p.RecordSubmission(now.Add(-time.Duration(i) * time.Hour))
	}

	assert.Equal(t, 6, p.SubmissionsWithin(applicant.SubmissionWindow, now))
	assert.Equal(t, 2, p.SubmissionsWithin(90*time.Minute, now))
}

func TestBehavioralProfile_RecordInteraction_CapsHistory(t *testing.T) {
	p := applicant.NewBehavioralProfile("applicant-1")
	base := time.Now().UTC()

	for i := 0; i < 150; i++ {
		p.RecordInteraction(applicant.InteractionSample{
			RecordedAt:  base.Add(time.Duration(i) * time.Minute),
			TypingSpeed: float64(i),
		})
	}

	require.Len(t, p.Interactions, 100)
	// Oldest entries dropped, newest kept.
	assert.Equal(t, float64(50), p.Interactions[0].TypingSpeed)
	assert.Equal(t, float64(149), p.Interactions[99].TypingSpeed)
}

func TestDocument_Validate(t *testing.T) {
	validHash := "a3f5c6d7e8b90a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6071829f"

	tests := []struct {
		name    string
		doc     applicant.Document
		wantErr string
	}{
		{
			name: "valid document",
			doc:  applicant.Document{ID: "doc-1", Type: "transcript", Hash: validHash},
		},
		{
			name:    "missing id",
			doc:     applicant.Document{Hash: validHash},
			wantErr: "document id cannot be empty",
		},
		{
			name:    "missing hash",
			doc:     applicant.Document{ID: "doc-1"},
			wantErr: "hash cannot be empty",
		},
		{
			name:    "hash not sha256 hex",
			doc:     applicant.Document{ID: "doc-1", Hash: "abc123"},
			wantErr: "64 hex characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

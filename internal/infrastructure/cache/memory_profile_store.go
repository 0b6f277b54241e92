package cache

import (
	"context"
	"sync"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	domainerrors "github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

// MemoryProfileStore is an in-process profile store for single-instance
// deployments and tests. Each applicant gets its own mutex so updates for
// different applicants never contend.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*memoryProfileEntry
}

type memoryProfileEntry struct {
	mu      sync.Mutex
	profile *applicant.BehavioralProfile
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*memoryProfileEntry),
	}
}

// Get returns a snapshot of the applicant's profile, or ErrProfileNotFound
// when the applicant has no recorded history.
func (s *MemoryProfileStore) Get(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error) {
	s.mu.Lock()
	entry, ok := s.profiles[applicantID]
	s.mu.Unlock()

	if !ok {
		return nil, domainerrors.ErrProfileNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.profile.Clone(), nil
}

// Update applies fn to the applicant's profile under its entry lock,
// creating the profile on first contact. fn runs against a working copy so
// a failed update leaves the stored profile untouched.
func (s *MemoryProfileStore) Update(ctx context.Context, applicantID string, fn func(*applicant.BehavioralProfile) error) (*applicant.BehavioralProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry, ok := s.profiles[applicantID]
	if !ok {
		entry = &memoryProfileEntry{profile: applicant.NewBehavioralProfile(applicantID)}
		s.profiles[applicantID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.profile.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	entry.profile = working
	return working.Clone(), nil
}

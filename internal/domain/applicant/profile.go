package applicant

import "time"

const (
	// maxInteractionSamples caps the per-applicant history so profiles
	// cannot grow without bound across a long application season.
	maxInteractionSamples = 100

	// SubmissionWindow is the rolling window used for burst detection.
	SubmissionWindow = 24 * time.Hour
)

// InteractionSample is one recorded observation of the applicant's
// interaction style, kept for trend analysis across submissions.
type InteractionSample struct {
	RecordedAt      time.Time `json:"recorded_at"`
	TypingSpeed     float64   `json:"typing_speed"`
	ClickVariance   float64   `json:"click_variance"`
	PauseVariance   float64   `json:"pause_variance"`
	AutomationScore float64   `json:"automation_score"`
}

// BehavioralProfile is the rolling per-applicant record of submission
// timing and interaction telemetry. It is the only shared mutable state in
// the engine; stores guarantee per-applicant exclusive read-modify-write.
type BehavioralProfile struct {
	ApplicantID          string              `json:"applicant_id"`
	SubmissionTimestamps []time.Time         `json:"submission_timestamps"`
	Interactions         []InteractionSample `json:"interactions"`
	RevisionTotal        int                 `json:"revision_total"`
	FirstSeen            time.Time           `json:"first_seen"`
	LastSeen             time.Time           `json:"last_seen"`
}

// NewBehavioralProfile starts an empty profile for an applicant.
func NewBehavioralProfile(applicantID string) *BehavioralProfile {
	now := time.Now().UTC()
	return &BehavioralProfile{
		ApplicantID: applicantID,
		FirstSeen:   now,
		LastSeen:    now,
	}
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal state to concurrent mutation.
func (p *BehavioralProfile) Clone() *BehavioralProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.SubmissionTimestamps = append([]time.Time(nil), p.SubmissionTimestamps...)
	cp.Interactions = append([]InteractionSample(nil), p.Interactions...)
	return &cp
}

// RecordSubmission appends a submission timestamp and prunes entries that
// have aged out of the burst-detection window.
func (p *BehavioralProfile) RecordSubmission(at time.Time) {
	cutoff := at.Add(-SubmissionWindow)
	kept := p.SubmissionTimestamps[:0]
	for _, ts := range p.SubmissionTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	p.SubmissionTimestamps = append(kept, at)
	p.LastSeen = at
	if p.FirstSeen.IsZero() {
		p.FirstSeen = at
	}
}

// SubmissionsWithin counts submissions recorded in the window ending at
// the most recent entry.
func (p *BehavioralProfile) SubmissionsWithin(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	n := 0
	for _, ts := range p.SubmissionTimestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// RecordInteraction appends an interaction sample, keeping the history
// capped at the most recent observations.
func (p *BehavioralProfile) RecordInteraction(sample InteractionSample) {
	p.Interactions = append(p.Interactions, sample)
	if len(p.Interactions) > maxInteractionSamples {
		p.Interactions = p.Interactions[len(p.Interactions)-maxInteractionSamples:]
	}
	if sample.RecordedAt.After(p.LastSeen) {
		p.LastSeen = sample.RecordedAt
	}
}

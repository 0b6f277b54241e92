package applicant

import "time"

// VerificationTier selects how much external verification an assessment
// performs. Background checks only run at the enhanced tier.
type VerificationTier string

const (
	TierBasic    VerificationTier = "basic"
	TierStandard VerificationTier = "standard"
	TierEnhanced VerificationTier = "enhanced"
)

func (t VerificationTier) IsValid() bool {
	switch t {
	case TierBasic, TierStandard, TierEnhanced:
		return true
	}
	return false
}

// PersonalInfo holds the applicant-declared identity fields that the
// identity evaluator cross-references against document-extracted values.
type PersonalInfo struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// ApplicationStatus mirrors the admission workflow states that consume a
// verdict: a fresh submission moves to under_review when manual review is
// required and to rejected on auto-reject.
type ApplicationStatus string

const (
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// AccessPattern is one timestamped action from the caller's interaction
// telemetry, ordered oldest first.
type AccessPattern struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkContext is optional connection metadata supplied by the caller.
// The engine treats it as read-only. LocationConsistency is nil when the
// portal has no location history for the session; 0.0 is a real score and
// means every observed location disagreed.
type NetworkContext struct {
	IPAddress             string          `json:"ip_address"`
	DeviceFingerprint     string          `json:"device_fingerprint,omitempty"`
	LocationConsistency   *float64        `json:"location_consistency,omitempty"`
	AccessPatterns        []AccessPattern `json:"access_patterns,omitempty"`
	SuspiciousConnections []string        `json:"suspicious_connections,omitempty"`
}

// BehaviorData carries the interaction telemetry recorded while the
// applicant filled in the application: click-interval samples, a typing
// speed estimate, and pause durations, plus the session identity fields
// the portal's analytics events record alongside them.
type BehaviorData struct {
	ClickIntervalsMs []float64 `json:"click_intervals_ms,omitempty"`
	TypingSpeed      float64   `json:"typing_speed,omitempty"`
	PauseDurationsMs []float64 `json:"pause_durations_ms,omitempty"`
	RevisionCount    int       `json:"revision_count,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
}

// HasSamples reports whether any interaction telemetry is present.
func (b *BehaviorData) HasSamples() bool {
	if b == nil {
		return false
	}
	return len(b.ClickIntervalsMs) > 0 || b.TypingSpeed != 0 || len(b.PauseDurationsMs) > 0
}

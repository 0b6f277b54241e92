package cache

import "time"

// Key prefixes for consistent cache key naming
const (
	ProfilePrefix     = "ate:profile:"
	ProfileLockPrefix = "ate:profile:lock:"
	SubmissionPrefix  = "ate:submissions:"
)

// Common TTL values
const (
	// DefaultProfileTTL keeps behavioral profiles for a full admissions
	// cycle; callers may override via the store constructor.
	DefaultProfileTTL = 30 * 24 * time.Hour

	// profileLockTTL bounds how long a crashed holder can block other
	// writers to the same profile.
	profileLockTTL = 5 * time.Second
)

// ErrProfileLocked is returned when the per-applicant profile lock could
// not be acquired before the caller's deadline.
type ErrProfileLocked struct {
	ApplicantID string
}

func (e ErrProfileLocked) Error() string {
	return "behavioral profile locked for applicant: " + e.ApplicantID
}

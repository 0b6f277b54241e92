package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	domainerrors "github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

const (
	lockRetryInterval = 50 * time.Millisecond
	lockAcquireWait   = 2 * time.Second
)

// releaseLockScript deletes the lease only while it still carries the
// holder's token. A holder that outlived the lease TTL must not delete the
// lock the next writer has since acquired.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisProfileStore persists behavioral profiles as JSON documents keyed by
// applicant. Update serializes read-modify-write across instances with a
// per-applicant SetNX lease so concurrent assessments cannot lose
// submission counts.
type RedisProfileStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisProfileStore creates a profile store on an existing Redis client.
// A non-positive ttl falls back to DefaultProfileTTL.
func NewRedisProfileStore(client *redis.Client, logger *zap.Logger, ttl time.Duration) *RedisProfileStore {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &RedisProfileStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Get retrieves the profile for an applicant. Returns ErrProfileNotFound
// when the applicant has no recorded history.
func (s *RedisProfileStore) Get(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error) {
	key := ProfilePrefix + applicantID

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainerrors.ErrProfileNotFound
		}
		s.logger.Error("profile get failed", zap.String("applicant_id", applicantID), zap.Error(err))
		return nil, fmt.Errorf("profile get failed: %w", err)
	}

	var profile applicant.BehavioralProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		s.logger.Error("profile unmarshal failed", zap.String("applicant_id", applicantID), zap.Error(err))
		return nil, fmt.Errorf("profile unmarshal failed: %w", err)
	}

	return &profile, nil
}

// Update loads the applicant's profile (creating one on first contact),
// applies fn under the per-applicant lease lock, and persists the result.
// The returned profile is the state after fn was applied.
func (s *RedisProfileStore) Update(ctx context.Context, applicantID string, fn func(*applicant.BehavioralProfile) error) (*applicant.BehavioralProfile, error) {
	lockKey := ProfileLockPrefix + applicantID
	token := uuid.NewString()

	if err := s.acquireLock(ctx, lockKey, token); err != nil {
		return nil, err
	}
	defer s.releaseLock(applicantID, lockKey, token)

	profile, err := s.Get(ctx, applicantID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrProfileNotFound) {
			return nil, err
		}
		profile = applicant.NewBehavioralProfile(applicantID)
	}

	if err := fn(profile); err != nil {
		return nil, err
	}

	data, err := json.Marshal(profile)
	if err != nil {
		s.logger.Error("profile marshal failed", zap.String("applicant_id", applicantID), zap.Error(err))
		return nil, fmt.Errorf("profile marshal failed: %w", err)
	}

	if err := s.client.Set(ctx, ProfilePrefix+applicantID, data, s.ttl).Err(); err != nil {
		s.logger.Error("profile set failed", zap.String("applicant_id", applicantID), zap.Error(err))
		return nil, fmt.Errorf("profile set failed: %w", err)
	}

	return profile, nil
}

// releaseLock frees the lease if this holder still owns it. A fresh context
// so a cancelled caller still frees the lease for the next writer.
func (s *RedisProfileStore) releaseLock(applicantID, lockKey, token string) {
	if err := releaseLockScript.Run(context.Background(), s.client, []string{lockKey}, token).Err(); err != nil {
		s.logger.Warn("profile lock release failed",
			zap.String("applicant_id", applicantID),
			zap.Error(err))
	}
}

// acquireLock takes the per-applicant lease, retrying until the caller's
// context or the acquire window expires. The lease TTL bounds how long a
// crashed holder can block other writers.
func (s *RedisProfileStore) acquireLock(ctx context.Context, lockKey, token string) error {
	deadline := time.Now().Add(lockAcquireWait)

	for {
		locked, err := s.client.SetNX(ctx, lockKey, token, profileLockTTL).Result()
		if err != nil {
			s.logger.Error("profile lock acquire failed", zap.String("key", lockKey), zap.Error(err))
			return fmt.Errorf("profile lock acquire failed: %w", err)
		}
		if locked {
			return nil
		}

		if time.Now().After(deadline) {
			applicantID := lockKey[len(ProfileLockPrefix):]
			s.logger.Warn("profile lock contention", zap.String("applicant_id", applicantID))
			return ErrProfileLocked{ApplicantID: applicantID}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSubmissionWindow tracks applicant submissions in a Redis sorted set
// for sliding window burst detection, one member per submission scored by
// its timestamp.
type RedisSubmissionWindow struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSubmissionWindow creates a submission window on an existing
// Redis client.
func NewRedisSubmissionWindow(client *redis.Client, logger *zap.Logger) *RedisSubmissionWindow {
	return &RedisSubmissionWindow{
		client: client,
		logger: logger,
	}
}

// RecordAndCount registers a submission and returns how many the applicant
// has made inside the rolling window, including this one. The count is
// computed in the same pipeline as the insert so racing submissions from
// other instances are never undercounted.
func (w *RedisSubmissionWindow) RecordAndCount(ctx context.Context, applicantID string, window time.Duration) (int, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	key := SubmissionPrefix + applicantID

	// Member carries nanosecond timestamp plus a discriminator so two
	// submissions in the same nanosecond still count separately.
	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%1000)

	pipe := w.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window+time.Minute)

	_, err := pipe.Exec(ctx)
	if err != nil {
		w.logger.Error("submission window pipeline failed",
			zap.String("applicant_id", applicantID),
			zap.Duration("window", window),
			zap.Error(err))
		return 0, fmt.Errorf("submission window pipeline failed: %w", err)
	}

	count := int(countCmd.Val())

	w.logger.Debug("submission recorded",
		zap.String("applicant_id", applicantID),
		zap.Int("count", count),
		zap.Duration("window", window))

	return count, nil
}

// Reset clears the applicant's submission history.
func (w *RedisSubmissionWindow) Reset(ctx context.Context, applicantID string) error {
	if err := w.client.Del(ctx, SubmissionPrefix+applicantID).Err(); err != nil {
		w.logger.Error("submission window reset failed",
			zap.String("applicant_id", applicantID),
			zap.Error(err))
		return fmt.Errorf("submission window reset failed: %w", err)
	}
	return nil
}

// MemorySubmissionWindow is the in-process counterpart used for
// single-instance deployments and tests.
type MemorySubmissionWindow struct {
	mu          sync.Mutex
	byApplicant map[string][]time.Time
	nowFn       func() time.Time
}

// NewMemorySubmissionWindow creates an empty in-memory submission window.
func NewMemorySubmissionWindow() *MemorySubmissionWindow {
	return &MemorySubmissionWindow{
		byApplicant: make(map[string][]time.Time),
		nowFn:       time.Now,
	}
}

// RecordAndCount registers a submission and returns the rolling-window
// count including this one.
func (w *MemorySubmissionWindow) RecordAndCount(ctx context.Context, applicantID string, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.nowFn()
	cutoff := now.Add(-window)

	kept := w.byApplicant[applicantID][:0]
	for _, ts := range w.byApplicant[applicantID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	w.byApplicant[applicantID] = kept

	return len(kept), nil
}

// Reset clears the applicant's submission history.
func (w *MemorySubmissionWindow) Reset(ctx context.Context, applicantID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byApplicant, applicantID)
	return nil
}

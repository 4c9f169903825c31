package service

import (
	"context"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a sliding-window-log limiter on Redis sorted sets
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records one request against key and reports whether it fits inside
// the window. When the limit is hit, retryAfter says how long until the
// oldest entry slides out.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	windowStart := now.Add(-window)
	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.Unix())).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if count >= int64(limit) {
		retryAfter = window
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(int64(oldest[0].Score), 0)
			if remaining := window - time.Since(oldestTime); remaining > 0 {
				retryAfter = remaining
			}
		}
		return false, retryAfter, nil
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	if err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to record request: %w", err)
	}

	// expire the key once the window has fully slid past
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, 0, nil
}

// Remaining returns how many requests the key has left in the current window
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	windowStart := time.Now().Add(-window)
	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.Unix())).Err(); err != nil {
		return 0, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

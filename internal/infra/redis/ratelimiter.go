package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/yantech/notify-dispatcher/internal/ratelimit"
)

const (
	rateLimitKeyPrefix = "dispatcher:ratelimit"
	rateLimitWindow    = time.Second
	minWindowWait      = 5 * time.Millisecond
)

// windowCountScript increments the per-window counter and returns the new
// count. The first hit of a window sets its expiry.
var windowCountScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a fixed-window per-second limiter shared by every worker
// process that talks to the same Redis. Each output type has its own window.
type RedisRateLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, limitPerSec int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, int64(limitPerSec), time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limitPerSec)
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         nowFn,
		sleep:       sleepFn,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, outputType string) (bool, error) {
	allowed, _, err := r.take(ctx, outputType)
	return allowed, err
}

// Wait blocks until the output type's window has room, sleeping to the start
// of the next window after each rejection.
func (r *RedisRateLimiter) Wait(ctx context.Context, outputType string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		allowed, retryAfter, err := r.take(ctx, outputType)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if err := r.sleep(ctx, retryAfter); err != nil {
			return err
		}
	}
}

// take counts one call against the current window. When the window is full
// it also returns how long until the next one opens.
func (r *RedisRateLimiter) take(ctx context.Context, outputType string) (bool, time.Duration, error) {
	if r == nil || r.client == nil {
		return false, 0, fmt.Errorf("rate limiter is not initialized")
	}

	normalized := ratelimit.NormalizeKey(outputType)
	if normalized == "" {
		return false, 0, fmt.Errorf("rate limit key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now().UTC()
	windowStart := now.Truncate(rateLimitWindow)
	key := fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, normalized, windowStart.Unix())

	count, err := windowCountScript.Run(ctx, r.client, []string{key}, rateLimitWindow.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if count <= r.limitPerSec {
		return true, 0, nil
	}

	retryAfter := windowStart.Add(rateLimitWindow).Sub(now)
	if retryAfter < minWindowWait {
		retryAfter = minWindowWait
	}
	return false, retryAfter, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

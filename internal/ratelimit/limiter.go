package ratelimit

import "context"

// RateLimiter throttles provider calls per output type.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

package cache

import (
	"context"
	"time"
)

// Key prefixes for Redis-backed structures
const (
	RateLimitPrefix = "ratelimit:"
)

// RateLimiter limits request rates per key over a time window. Both
// the Redis-backed and the in-process implementation satisfy it, so
// the transport does not care which one a deployment runs with.
type RateLimiter interface {
	// Allow reports whether a request under key is within limit for
	// the window
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Reset clears the counter for a key
	Reset(ctx context.Context, key string) error
}

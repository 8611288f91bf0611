package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localRateLimiter is the in-process fallback used when no Redis is
// configured: one token bucket per key. Limits then apply per instance
// rather than globally, which is acceptable for a single-process
// deployment.
type localRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	burst    int
}

// NewLocalRateLimiter creates an in-process token-bucket limiter.
func NewLocalRateLimiter(burst int) RateLimiter {
	return &localRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		burst:    burst,
	}
}

func (l *localRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		perSecond := float64(limit) / window.Seconds()
		limiter = rate.NewLimiter(rate.Limit(perSecond), l.burst)
		l.limiters[key] = limiter
		// Bound memory on hostile key cardinality.
		if len(l.limiters) > 100000 {
			l.limiters = map[string]*rate.Limiter{key: limiter}
		}
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

func (l *localRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
	return nil
}

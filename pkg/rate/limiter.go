package rate

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds the number of keys a local limiter tracks.
const DefaultMaxKeys = 100_000

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

// NewLocalRateLimiter returns an in memory limiter allowing limit events per
// second for each key, with bursts of up to burst events. The least recently
// used keys are forgotten beyond maxKeys, which resets their budget.
func NewLocalRateLimiter(limit rate.Limit, burst, maxKeys int) (Limiter, error) {
	if burst < 1 {
		burst = 1
	}
	if maxKeys < 1 {
		maxKeys = DefaultMaxKeys
	}

	limiters, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, err
	}

	return &localRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: limiters,
	}, nil
}

// Allow implements limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// NoLimiter never limits operations
type NoLimiter struct {
}

// Allow implements limiter.Allow.
func (n *NoLimiter) Allow(key string) (bool, error) {
	return true, nil
}

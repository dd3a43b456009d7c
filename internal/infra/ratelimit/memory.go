package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"sigil/internal/domain"
)

// localLimiter budgets requests per scope key (org or client address plus
// endpoint) within fixed windows, entirely in process memory. Single-node
// deployments use it directly; it is also the fallback when Redis is not
// configured, where each node then enforces its own budget.
type localLimiter struct {
	mu      sync.Mutex
	clock   func() time.Time
	windows map[string]*window
	maxKeys int
}

type window struct {
	used    int
	resetAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	limiter := &localLimiter{
		clock:   cfg.Now,
		windows: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
	}
	if limiter.clock == nil {
		limiter.clock = time.Now
	}
	if limiter.maxKeys <= 0 {
		limiter.maxKeys = 10000
	}
	return limiter
}

func (l *localLimiter) Allow(_ context.Context, key string, limit int, windowSize time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if ok && now.After(w.resetAt) {
		// Window elapsed: reset in place rather than reallocating.
		w.used = 0
		w.resetAt = now.Add(windowSize)
	}
	if !ok {
		if len(l.windows) >= l.maxKeys {
			l.evictExpired(now)
		}
		if len(l.windows) >= l.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter scope capacity exceeded")
		}
		w = &window{resetAt: now.Add(windowSize)}
		l.windows[key] = w
	}

	decision := domain.RateLimitDecision{
		Limit:   limit,
		ResetAt: w.resetAt,
	}
	if w.used >= limit {
		return decision, nil
	}
	w.used++
	decision.Allowed = true
	decision.Remaining = limit - w.used
	return decision, nil
}

func (l *localLimiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

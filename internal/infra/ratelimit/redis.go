package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigil/internal/domain"

	"github.com/redis/go-redis/v9"
)

// sharedLimiter enforces one budget across every node serving the status and
// verification endpoints. Counter and expiry are updated atomically in Redis
// so a window is never extended by later requests.
type sharedLimiter struct {
	client *redis.Client
	clock  func() time.Time
}

// countScript bumps the window counter, arming the expiry only on the first
// hit, and reports the count together with the window's remaining lifetime.
var countScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	return &sharedLimiter{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		clock:  now,
	}, nil
}

func (l *sharedLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}

	raw, err := countScript.Run(ctx, l.client, []string{key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	count, ttlMillis, err := decodeCountReply(raw)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}

	resetAt := l.clock()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func decodeCountReply(raw any) (count, ttlMillis int64, err error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("unexpected rate limit script reply")
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, errors.New("unexpected rate limit counter reply")
	}
	ttlMillis, _ = values[1].(int64)
	return count, ttlMillis, nil
}

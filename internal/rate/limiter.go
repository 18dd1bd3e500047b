package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "arl"

// Rule is a single budget: at most Max hits per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision reports the outcome of one counted hit.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed Redis windows. A window starts with the
// first hit and lasts Rule.Window.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// hitScript increments the window counter, arms the window TTL on the first hit
// and returns {count, remaining ms}. KEYS[1] counter; ARGV[1] window in ms.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Hit records one hit for (client, path) under rule and reports whether the
// hit fits the budget. A denied decision carries the time left in the window.
func (l *Limiter) Hit(ctx context.Context, client, path string, rule Rule) (Decision, error) {
	if rule.Max <= 0 || rule.Window <= 0 {
		return Decision{}, ErrInvalidRule
	}

	res, err := hitScript.Run(ctx, l.redis, []string{l.key(client, path)}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected reply %v", ErrRedisUnavailable, res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(rule.Max) {
		return Decision{Allowed: true, Count: count}, nil
	}
	if ttl <= 0 {
		ttl = rule.Window
	}
	return Decision{Count: count, RetryAfter: ttl}, nil
}

// Reset clears the counter for (client, path), opening a fresh window.
func (l *Limiter) Reset(ctx context.Context, client, path string) error {
	if err := l.redis.Del(ctx, l.key(client, path)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(client, path string) string {
	if client == "" {
		client = "unknown"
	}
	return l.prefix + ":" + client + ":" + path
}

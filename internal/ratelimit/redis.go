package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript starts a window on the first hit and refuses increments once the limit is reached.
// Returns {allowed, count, ttl_ms}.
var takeScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if count >= limit then
	return {0, count, redis.call("PTTL", KEYS[1])}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, count, redis.call("PTTL", KEYS[1])}
`)

// RedisStore shares windows between instances. Key expiry replaces sweeping.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, ttl time.Duration) (Window, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.prefix + key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Window{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	remainingTTL := time.Duration(res[2]) * time.Millisecond
	if remainingTTL < 0 {
		remainingTTL = ttl
	}

	return Window{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
		ResetAt: s.now().Add(remainingTTL),
	}, nil
}

// Sweep is a no-op, Redis expires windows itself.
func (s *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

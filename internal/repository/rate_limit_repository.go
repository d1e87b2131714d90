package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and arms its expiry on the first hit.
// It returns the new count and the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RateLimitRepository keeps fixed-window counters in Redis so limits hold across replicas.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(client *redis.Client, prefix string) *RateLimitRepository {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Hit counts one call against key in the current window and returns the count so far and
// when the window resets.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	redisKey := r.prefix + ":" + key
	res, err := fixedWindowScript.Run(ctx, r.client, []string{redisKey}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis rate limit %s: unexpected reply %v", key, res)
	}
	return int(res[0]), now.Add(time.Duration(res[1]) * time.Millisecond), nil
}

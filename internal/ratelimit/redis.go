package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window keys expire shortly after their second passes; Redis cleans
// them up on its own.
const redisKeyTTLSeconds = 2

// orderWindowScript atomically counts a placement within the current
// second and stamps the key's expiry on first use.
var orderWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter counts order placements per key in one-second fixed
// windows shared across server instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow checks whether one more placement fits in the current second.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	count, errEval := orderWindowScript.Run(ctx, l.client, []string{l.windowKey(key, sec)}, redisKeyTTLSeconds).Int64()
	if errEval != nil {
		return Result{}, errEval
	}
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}, nil
}

// windowKey namespaces the counter per key and second.
func (l *RedisLimiter) windowKey(key string, sec int64) string {
	if l.prefix == "" {
		return fmt.Sprintf("orders:%s:%d", key, sec)
	}
	return fmt.Sprintf("%s:orders:%s:%d", l.prefix, key, sec)
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters between server instances. Each window gets
// its own key which expires shortly after the window ends.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	rate      int
	window    time.Duration
	now       func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, keyPrefix string, rate int, window time.Duration) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "postfeed:ratelimit:"
	}
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		rate:      rate,
		window:    window,
		now:       time.Now,
	}
}

func (r *RedisLimiter) key(key string) string {
	windowID := r.now().Truncate(r.window).Unix()
	return fmt.Sprintf("%s%s:%d", r.keyPrefix, key, windowID)
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.key(key)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}

	return incr.Val() <= int64(r.rate), nil
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every server instance
// pointing at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	max    int
}

func NewRedisLimiter(client *redis.Client, window time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "dovol:otp:", window: window, max: max}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count > int64(l.max) {
		return common.ErrRateLimited
	}
	return nil
}

package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore counts in Redis with a fixed window per key, so
// ceilings hold across multiple service instances. Each (key, window)
// bucket is one counter; at a window boundary the admitted rate can exceed
// the ceiling by at most one window's worth, which the contract allows.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRateLimitStore(client *redis.Client, prefix string) *RedisRateLimitStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimitStore{client: client, prefix: prefix}
}

func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, cfg RateLimitConfig) (bool, time.Duration, error) {
	windowSecs := int64(cfg.Window.Seconds())
	if windowSecs <= 0 {
		windowSecs = 1
	}

	now := time.Now().Unix()
	bucket := now / windowSecs
	counterKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, bucket)

	count, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		// First hit in this window owns setting the TTL. Double the window
		// so a clock-skewed reader never sees the counter vanish early.
		if err := s.client.Expire(ctx, counterKey, 2*cfg.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(cfg.Requests) {
		retryAfter := time.Duration((bucket+1)*windowSecs-now) * time.Second
		return false, retryAfter, nil
	}
	return true, 0, nil
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts in fixed windows keyed by window start. Limits survive
// restarts and are shared across replicas; the fixed window trades a little
// boundary precision for a single round trip per check.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*Result, error) {
	windowStart := now.Truncate(window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())
	resetAt := windowStart.Add(window)

	pipe := s.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	// Expiry slack covers clock skew between replicas.
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis rate limit check: %w", err)
	}

	n := int(count.Val())
	if n > limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - n,
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("ratelimit:%s:*", key), 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("reset rate limit key: %w", err)
		}
	}
	return iter.Err()
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares window counters across server instances. Counters live
// under a key per window and expire with the window, so Redis cleans up
// after itself.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	if client == nil {
		panic("ratelimit: redis client is required")
	}
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX keeps the original window boundary; only the first hit sets it.
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("incr rate limit counter: %w", err)
	}

	resetAt := time.Now().Add(ttl.Val())
	return incr.Val(), resetAt, nil
}

package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the part of *redis.Client the sink uses.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis stores artifacts as Redis string values under prefix+key.
type Redis struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// NewRedis initializes a Redis-backed sink. A zero ttl keeps keys forever.
func NewRedis(addr, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) Name() string { return "redis" }

// Put writes data with a single SET, which Redis applies atomically.
func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis sink: set %s: %w", r.prefix+key, err)
	}
	return nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

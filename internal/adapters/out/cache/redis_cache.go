// internal/adapters/out/cache/redis_cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	scanCount = 200
	delBatch  = 100
)

// RedisCache implements Remember / DeletePattern on Redis (GET / SET EX / SCAN + DEL).
type RedisCache struct {
	client redis.UniversalClient
	log    *zap.Logger
}

func NewRedisCache(client redis.UniversalClient, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, log: logger.Named("redis_cache")}
}

// Remember returns the cached bytes of key, or computes and stores them for ttl.
// Redis failures are logged and the value is computed directly.
func (c *RedisCache) Remember(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return val, nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	val, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return val, nil
}

// DeletePattern removes every key matching the glob pattern.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, scanCount).Iterator()

	batch := make([]string, 0, delBatch)
	deleted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= delBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return err
	}

	c.log.Debug("cache pattern deleted", zap.String("pattern", pattern), zap.Int("keys", deleted))
	return nil
}

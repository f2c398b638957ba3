package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"userdesk/shared/logger"
)

// Key namespaces. Clear only scans view keys, so counters and foreign data
// are left alone.
const (
	keyPrefix     = "userdesk:view:"
	counterPrefix = "userdesk:gen:"
)

// redisCache is a Cache shared between replicas through Redis.
type redisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to the Redis instance at redisURL.
func NewRedisCache(redisURL string) (Cache, error) {
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger.Info("Redis cache initialized", logger.String("addr", opt.Addr))
	return NewRedisCacheFromClient(redis.NewClient(opt)), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) Cache {
	return &redisCache{client: client}
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration < 0 {
		expiration = 0
	}
	return r.client.Set(ctx, keyPrefix+key, value, expiration).Err()
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = keyPrefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Clear removes every view key this cache owns.
func (r *redisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return r.client.Del(ctx, batch...).Err()
}

func (r *redisCache) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, counterPrefix+key).Result()
}

func (r *redisCache) Counter(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, counterPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

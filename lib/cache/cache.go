package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheKeyNotFound is returned by Get on a miss.
var ErrCacheKeyNotFound = errors.New("cache key not found")

// Cache stores rendered views by key. Counters live in their own namespace
// and survive Clear.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Close() error

	// Incr bumps the counter named key and returns its new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads the counter named key. An absent counter is zero.
	Counter(ctx context.Context, key string) (int64, error)
}

// New builds a cache for the named driver ("memory" or "redis").
func New(driver, redisURL string) (Cache, error) {
	switch driver {
	case "", "memory":
		return NewMemoryCache(time.Minute), nil
	case "redis":
		return NewRedisCache(redisURL)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}

package userdesk

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"userdesk/lib/cache"
	"userdesk/shared/logger"
)

// ViewCache keeps rendered JSON views and drops them when the user
// operations signal that they are stale.
//
// Every view key has a generation counter. Invalidate bumps it before
// deleting the render, and Render discards its own write when the generation
// moved while it was building, so a render that raced a mutation never
// outlives it.
type ViewCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewViewCache stores renders in c for ttl.
func NewViewCache(c cache.Cache, ttl time.Duration) *ViewCache {
	return &ViewCache{cache: c, ttl: ttl}
}

// Invalidate implements users.Invalidator.
func (v *ViewCache) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if _, err := v.cache.Incr(ctx, key); err != nil {
			logger.Warn("Failed to bump view generation", logger.String("key", key), logger.Err(err))
		}
	}
	if err := v.cache.Delete(ctx, keys...); err != nil {
		logger.Warn("Failed to invalidate views", logger.Any("keys", keys), logger.Err(err))
		return
	}
	logger.Debug("Invalidated views", logger.Any("keys", keys))
}

// Reset drops every cached render, including those left by earlier processes.
func (v *ViewCache) Reset(ctx context.Context) error {
	return v.cache.Clear(ctx)
}

// Render returns the cached view for key, or builds, encodes and stores it.
// Build errors are returned untouched and nothing is cached.
func (v *ViewCache) Render(ctx context.Context, key string, build func() (any, error)) ([]byte, error) {
	body, err := v.cache.Get(ctx, key)
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, cache.ErrCacheKeyNotFound) {
		logger.Warn("View cache read failed", logger.String("key", key), logger.Err(err))
	}

	gen, genErr := v.cache.Counter(ctx, key)

	data, err := build()
	if err != nil {
		return nil, err
	}
	body, err = json.Marshal(data)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		logger.Warn("View generation unavailable, not caching", logger.String("key", key), logger.Err(genErr))
		return body, nil
	}
	if !v.current(ctx, key, gen) {
		return body, nil
	}
	if err := v.cache.Set(ctx, key, body, v.ttl); err != nil {
		logger.Warn("View cache write failed", logger.String("key", key), logger.Err(err))
		return body, nil
	}
	// An Invalidate that landed between the check and the write has already
	// run its Delete, so the write must be undone here.
	if !v.current(ctx, key, gen) {
		if err := v.cache.Delete(ctx, key); err != nil {
			logger.Warn("Failed to drop stale view", logger.String("key", key), logger.Err(err))
		}
	}
	return body, nil
}

// current reports whether key is still at generation gen.
func (v *ViewCache) current(ctx context.Context, key string, gen int64) bool {
	now, err := v.cache.Counter(ctx, key)
	if err != nil {
		logger.Warn("View generation unavailable", logger.String("key", key), logger.Err(err))
		return false
	}
	if now != gen {
		logger.Debug("View invalidated during render", logger.String("key", key))
		return false
	}
	return true
}

package cache

import (
	"context"
	"sync"
	"time"

	"userdesk/shared/logger"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// memoryCache is a process-local Cache with a background janitor.
type memoryCache struct {
	data     map[string]*cacheItem
	counters map[string]int64
	mutex    sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates an in-memory cache that sweeps expired entries every interval.
func NewMemoryCache(interval time.Duration) Cache {
	cache := &memoryCache{
		data:     make(map[string]*cacheItem),
		counters: make(map[string]int64),
		stopChan: make(chan struct{}),
	}

	go cache.cleanup(interval)

	logger.Info("Memory cache initialized")
	return cache
}

// Set stores a copy of value. A non-positive expiration never expires.
func (m *memoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[key] = &cacheItem{value: valueCopy, expiresAt: expiresAt}
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.RLock()
	item, exists := m.data[key]
	m.mutex.RUnlock()

	if !exists || item.expired(time.Now()) {
		return nil, ErrCacheKeyNotFound
	}

	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryCache) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = make(map[string]*cacheItem)
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memoryCache) Counter(ctx context.Context, key string) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.counters[key], nil
}

// Close stops the janitor.
func (m *memoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	return nil
}

func (m *memoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopChan:
			return
		}
	}
}

func (m *memoryCache) removeExpired() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for key, item := range m.data {
		if item.expired(now) {
			delete(m.data, key)
		}
	}
}

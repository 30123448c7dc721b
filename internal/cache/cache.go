// SPDX-License-Identifier: MIT

// Package cache provides a simple cache abstraction with TTL support.
// Errors in any backend degrade to a miss; callers must treat the cache
// as non-authoritative.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a TTL key-value store for serialized values.
type Cache interface {
	// Get retrieves a value. The second return is false if the key is
	// absent, expired, or the backend failed.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string)
}

type entry struct {
	value      []byte
	expiration time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// MemoryCache is an in-memory implementation of Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stop    chan struct{}
}

// NewMemoryCache creates an in-memory cache. If cleanupInterval > 0 a
// janitor goroutine evicts expired entries periodically; call Close to
// stop it.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	e := &entry{value: value}
	if ttl > 0 {
		e.expiration = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Close stops the janitor goroutine, if any.
func (c *MemoryCache) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if e.expired(now) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// noopCache discards everything. Used when no KV backend is configured.
type noopCache struct{}

// NewNoopCache returns a cache that never stores anything.
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (noopCache) Set(context.Context, string, []byte, time.Duration) {}

func (noopCache) Delete(context.Context, string) {}

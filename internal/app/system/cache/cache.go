// internal/app/system/cache/cache.go

// Package cache is a small process-local cache with per-entry expiry and
// explicit invalidation. Whoever mutates the underlying data is responsible
// for calling Invalidate or InvalidateAll; there is no coherency protocol.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is safe for concurrent use.
type TTL[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[K]entry[V]
	now     func() time.Time
	gen     uint64 // bumped by every invalidation
}

// New returns a cache whose entries live for ttl. A ttl <= 0 disables
// caching (every Get misses).
func New[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// WithClock swaps the time source. Tests use it to expire entries.
func (c *TTL[K, V]) WithClock(now func() time.Time) *TTL[K, V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the cached value and whether it was present and fresh.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTL[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Generation returns a counter that changes on every invalidation. Read it
// before loading a value and pass it to SetIfCurrent.
func (c *TTL[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfCurrent stores value only if no invalidation happened since gen was
// read, so a value loaded before a write cannot outlive it. It reports
// whether the value was stored.
func (c *TTL[K, V]) SetIfCurrent(key K, value V, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	return true
}

// Invalidate drops one key.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gen++
	c.mu.Unlock()
}

// InvalidateAll drops every key.
func (c *TTL[K, V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of entries, fresh or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

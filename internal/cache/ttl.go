package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a process-local map whose entries expire after a fixed TTL.
// Expired entries are evicted on access; it is never a source of truth.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[K]ttlEntry[V]
}

// NewTTLCache builds a cache; a nil clock uses time.Now
func NewTTLCache[K comparable, V any](ttl time.Duration, clock func() time.Time) *TTLCache[K, V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[K, V]{
		ttl:     ttl,
		now:     clock,
		entries: make(map[K]ttlEntry[V]),
	}
}

// Get returns a live entry and sweeps out expired ones
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)
	c.entries[key] = ttlEntry[V]{value: value, expires: now.Add(c.ttl)}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len counts entries, including any not yet swept
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache[K, V]) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

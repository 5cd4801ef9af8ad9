package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a process-local cache where every entry expires a fixed duration after it was set.
// Concurrent writers of the same key are last-writer-wins, which is safe because callers
// only store freshly computed, equivalent values.
type TTL[K comparable, V any] struct {
	ttl   time.Duration
	now   Clock
	mu    sync.RWMutex
	items map[K]entry[V]
}

// NewTTL creates a cache. A nil clock uses time.Now.
func NewTTL[K comparable, V any](ttl time.Duration, clock Clock) *TTL[K, V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTL[K, V]{
		ttl:   ttl,
		now:   clock,
		items: make(map[K]entry[V]),
	}
}

// Get returns the value for key if it has not expired
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the cache TTL
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete drops key
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// EvictStale removes every expired entry and returns how many were dropped
func (c *TTL[K, V]) EvictStale() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TTL returns the configured entry lifetime
func (c *TTL[K, V]) TTL() time.Duration {
	return c.ttl
}

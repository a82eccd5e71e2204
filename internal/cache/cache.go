// Package cache keeps loaded event snapshots for a bounded time.
package cache

import (
	"sync"
	"time"
)

// Stats holds lookup counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Discarded int64 // sets refused after an invalidation
	Size      int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map whose entries expire after a fixed lifetime.
// Expiry only decides when a value is reloaded; it never changes a value.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
	stats   Stats
	gen     uint64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTTL creates a cache. A positive cleanupInterval starts a janitor
// goroutine that must be released with Close. A ttl of zero disables caching.
func NewTTL[V any](ttl, cleanupInterval time.Duration) *TTL[V] {
	c := &TTL[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 && ttl > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key for the configured lifetime.
func (c *TTL[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.stats.Sets++
}

// Generation identifies the current cache contents. It changes on every
// Invalidate.
func (c *TTL[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores value only if no Invalidate happened since gen was
// read, so a value loaded before an invalidation is never cached after it.
func (c *TTL[V]) SetIfGeneration(key string, value V, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.stats.Discarded++
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.stats.Sets++
	return true
}

// Invalidate drops every entry, e.g. after new readings were imported.
func (c *TTL[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.gen++
}

// Stats returns a copy of the counters.
func (c *TTL[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// Close stops the janitor. Safe to call more than once.
func (c *TTL[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTL[V]) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Evictions += int64(n)
	return n
}

func (c *TTL[V]) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Package cache implements the shared TTL result cache for the portal's
// read path: lazy expiry, prefix invalidation after writes, and
// single-flight fills so concurrent misses for one key cost one backend
// round trip.
package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
)

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a TTL key/value store shared across concurrently active sessions.
// Reads proceed under a read lock; the write of a missing slot is coalesced
// per key via singleflight.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
	clk     clock.Clock
	flight  singleflight.Group
}

func New(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.System()
	}
	return &Cache{
		entries: make(map[string]entry),
		clk:     clk,
	}
}

// Get returns the cached value if the entry exists and its age is below its
// TTL. Expired entries are deleted lazily on this path.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.clk.Now().Sub(e.insertedAt) >= e.ttl {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent fill may have
		// replaced the entry with a fresh one.
		if cur, still := c.entries[key]; still && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL, stamped with the clock's
// current time.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, insertedAt: c.clk.Now(), ttl: ttl}
	c.mu.Unlock()
}

// GetOrFill returns the cached value for key, or runs fill exactly once per
// missing key even under concurrent callers. The second return reports a
// cache hit. Fill errors are returned to every waiting caller and are never
// cached.
func (c *Cache) GetOrFill(key string, ttl time.Duration, fill func() (any, error)) (any, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent flight may have populated the slot between our
		// miss and acquiring the flight.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		gen := c.generation()
		v, err := fill()
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(key, v, ttl, gen)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// setIfCurrent stores a filled value unless an invalidation ran while the
// fill was in flight. A fill started before a write must not re-cache the
// pre-write rows for a full TTL.
func (c *Cache) setIfCurrent(key string, value any, ttl time.Duration, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries[key] = entry{value: value, insertedAt: c.clk.Now(), ttl: ttl}
}

// Invalidate removes every entry whose key starts with prefix. Called after
// any write so the next read reflects it immediately instead of waiting out
// the TTL. In-flight fills are cut off too, keys under the prefix or not;
// they surrender their slot and the next read refetches. Returns the number
// of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep removes all expired entries. Lazy deletion on Get already bounds
// staleness for hot keys; Sweep bounds memory for keys never read again.
func (c *Cache) Sweep() int {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= e.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

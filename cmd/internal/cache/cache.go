// Package cache provides a generic in-memory TTL cache with a pluggable
// miss loader.
//
// Entries carry absolute expiry instants computed from an injectable time
// source, concurrent misses on the same key collapse into a single loader
// call, and expired entries are dropped lazily on access plus by an
// optional periodic sweep.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc computes a fresh value on a cache miss.
type LoaderFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	expiresAt time.Time
	gen       uint64
}

// Cache is a TTL cache keyed by string fingerprints.
//
// The cache owns entry storage; values are replaced by atomic swap, never
// mutated in place.
type Cache[V any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]entry[V]
	// gens tracks per-key invalidation generations so an Invalidate or Put
	// racing an in-flight load wins over the stale load result.
	gens map[string]uint64

	sf singleflight.Group
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithNow replaces the time source. Intended for tests.
func WithNow[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Cache with the given default TTL. The name labels the
// cache in metrics.
func New[V any](name string, ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetOrLoad returns the cached value for key if it has not expired.
// Otherwise it invokes load, stores the result with expiry now+TTL, and
// returns it. Concurrent misses on the same key share one load call.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load LoaderFunc[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		hitsTotal.WithLabelValues(c.name).Inc()
		return v, nil
	}
	missesTotal.WithLabelValues(c.name).Inc()

	res, err, _ := c.sf.Do(key, func() (any, error) {
		// Another flight may have stored the value between our miss and
		// acquiring the flight.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		c.mu.RLock()
		gen := c.gens[key]
		c.mu.RUnlock()

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, v, gen)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Put writes a value directly, e.g. write-through after a mutation.
// A non-positive ttl falls back to the cache default.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl), gen: c.gens[key]}
}

// Invalidate removes an entry immediately regardless of expiry.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	delete(c.entries, key)
}

// Len reports the number of physically present entries, expired included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep drops expired entries and returns the number removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, ent := range c.entries {
		if !ent.expiresAt.After(now) {
			delete(c.entries, key)
			delete(c.gens, key)
			removed++
		}
	}
	if removed > 0 {
		evictionsTotal.WithLabelValues(c.name).Add(float64(removed))
	}
	return removed
}

// StartSweep runs Sweep every interval until ctx is cancelled.
func (c *Cache[V]) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
}

// lookup returns the live value for key, dropping it lazily if expired.
func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	ent, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if !ent.expiresAt.After(now) {
		c.mu.Lock()
		// Re-check: the entry may have been replaced since the read lock.
		if cur, ok := c.entries[key]; ok && cur.gen == ent.gen {
			delete(c.entries, key)
			evictionsTotal.WithLabelValues(c.name).Inc()
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return ent.value, true
}

// storeIfCurrent stores a loaded value unless the key was invalidated or
// overwritten while the load was in flight.
func (c *Cache[V]) storeIfCurrent(key string, value V, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return
	}
	c.gens[key]++
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl), gen: c.gens[key]}
}

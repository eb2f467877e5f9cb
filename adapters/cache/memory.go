package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value  string
	expiry time.Time
}

// MemoryCache is an in-process implementation of the Cache port: a map with
// per-entry expiry. Reads check expiry themselves and evict lazily, so
// correctness never depends on the periodic sweep. Size is unbounded; TTL is
// the only eviction policy.
type MemoryCache struct {
	entries map[string]entry
	mu      sync.Mutex
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
	}
}

// Set stores value under key for ttl. Last write wins.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiry: time.Now().Add(ttl)}
	return nil
}

// Get returns the live value for key. An expired entry behaves as absent and
// is evicted on the spot.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}

	if time.Now().After(e.expiry) {
		delete(c.entries, key)
		return "", false, nil
	}

	return e.value, true, nil
}

// Delete removes an entry. Missing keys are fine.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Incr increments the counter at key. The first increment arms the ttl
// window; later ones keep the original expiry so fixed windows stay fixed.
// The second return value is how long the window still has to run.
func (c *MemoryCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e, ok := c.entries[key]
	if !ok || now.After(e.expiry) {
		c.entries[key] = entry{value: "1", expiry: now.Add(ttl)}
		return 1, ttl, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		// Key held a non-counter value; restart the window.
		c.entries[key] = entry{value: "1", expiry: now.Add(ttl)}
		return 1, ttl, nil
	}

	n++
	c.entries[key] = entry{value: strconv.FormatInt(n, 10), expiry: e.expiry}
	return n, e.expiry.Sub(now), nil
}

// Clear drops everything.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return nil
}

// Sweep purges entries whose expiry has passed and returns how many were
// removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is canceled.
func (c *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len reports the current entry count, including not-yet-swept expired ones.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

package ports

import (
	"context"
	"time"
)

// Cache is a key-value store with per-entry expiry. Nonces, rate counters
// and short-lived read caches live here. Single-instance deployments use the
// in-process adapter; horizontally scaled ones back it with Redis so nonce
// and rate-limit state is visible to every instance.
type Cache interface {
	// Set stores value under key for ttl. Overwrites an existing entry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value and whether a live entry exists. Expired
	// entries behave as absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Incr increments the counter at key and returns the new value plus
	// how long the current window still has to run. The first increment
	// arms the ttl window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)

	// Clear drops every entry owned by this cache.
	Clear(ctx context.Context) error
}

// Package cache stores encoded reduction results keyed by the hash of the
// input document.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entries under a local directory, used by the CLI
//   - [RedisCache]: a shared Redis instance, used by the HTTP server
//   - [NullCache]: stores nothing, used with --no-cache
//
// Keys come from [ReductionKey], so every backend sees the same key for the
// same GraphML bytes.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

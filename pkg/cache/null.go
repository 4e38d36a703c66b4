package cache

import (
	"context"
	"time"
)

// NullCache is a no-op cache that never stores anything.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set does nothing.
func (c *NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (c *NullCache) Delete(context.Context, string) error { return nil }

// Clear removes nothing.
func (c *NullCache) Clear(context.Context) (int, error) { return 0, nil }

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var (
	_ Cache   = (*NullCache)(nil)
	_ Clearer = (*NullCache)(nil)
)

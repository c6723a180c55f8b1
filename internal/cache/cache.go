// Package cache provides a small TTL byte cache used to shield the database
// from repeated aggregate queries (telemetry stats). Two backends exist:
// Ristretto for normal operation and a noop passthrough for when caching is
// disabled or undesired in tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache errors.
var (
	// ErrNotFound is returned when a key does not exist in the cache.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")
)

// Cache is a byte-valued TTL cache. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoConfig sizes the Ristretto backend.
type RistrettoConfig struct {
	// NumCounters is the number of access counters kept for admission.
	// Rule of thumb: 10x the expected number of keys.
	NumCounters int64
	// MaxCost is the total cache budget in bytes.
	MaxCost int64
	// BufferItems is the Get buffer size. 64 is the recommended value.
	BufferItems int64
}

// DefaultRistrettoConfig returns a configuration sized for the handful of
// aggregate keys this tool caches.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1e4,
		MaxCost:     8 << 20, // 8 MB
		BufferItems: 64,
	}
}

type ristrettoCache struct {
	cache  *ristretto.Cache[string, []byte]
	closed atomic.Bool
}

var _ Cache = (*ristrettoCache)(nil)

// NewRistretto creates a Ristretto-backed cache.
func NewRistretto(cfg RistrettoConfig) (Cache, error) {
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}

	backend, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache{cache: backend}, nil
}

func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	value, found := r.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the cached bytes.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	r.cache.SetWithTTL(key, stored, int64(len(stored)), ttl)
	// Ristretto admits asynchronously; Wait makes the write visible to the
	// next Get, which our read-through callers rely on.
	r.cache.Wait()
	return nil
}

func (r *ristrettoCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return ErrClosed
	}
	r.cache.Del(key)
	return nil
}

func (r *ristrettoCache) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.cache.Close()
	}
	return nil
}

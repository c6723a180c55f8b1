package cache

import (
	"context"
	"time"
)

// noopCache is a passthrough used when caching is disabled. Every Get is a
// miss and writes are discarded.
type noopCache struct{}

var _ Cache = (*noopCache)(nil)

// NewNoop returns a cache that stores nothing.
func NewNoop() Cache {
	return &noopCache{}
}

func (n *noopCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNotFound
}

func (n *noopCache) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (n *noopCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (n *noopCache) Close() error {
	return nil
}

package config

import "sync/atomic"

// RuntimeConfig is how components observe configuration that may hot-reload.
// Holding a *Config pointer directly would go stale after a reload.
type RuntimeConfig interface {
	Get() *Config
}

// Runtime provides lock-free atomic access to the current configuration.
// The watcher Stores a new pointer on file change; readers Get per
// operation. In-flight work keeps the pointer it already read.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration atomically.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically replaces the configuration.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)

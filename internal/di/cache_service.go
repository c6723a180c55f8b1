package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/cache"
)

// CacheService wraps the cache implementation.
type CacheService struct {
	Cache cache.Cache
}

// NewCache creates the cache based on configuration.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	if cfgSvc.Config.Telemetry.DisableCache {
		return &CacheService{Cache: cache.NewNoop()}, nil
	}

	c, err := cache.NewRistretto(cache.DefaultRistrettoConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CacheService{Cache: c}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (c *CacheService) Shutdown() error {
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}

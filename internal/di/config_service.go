package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/config"
)

// ConfigService wraps the loaded configuration with hot-reload support.
// Reads go through config.Runtime, an atomic pointer, so in-flight requests
// keep their snapshot while new requests pick up a reloaded config.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	Config  *config.Config
	path    string
}

// Get returns the current configuration via atomic load (lock-free read).
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// StartWatching begins watching the config file for changes and swaps the
// runtime config on each successful reload. Call after the container is
// fully initialized. The context controls the watcher lifecycle.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		c.runtime.Store(newCfg)
		c.Config = newCfg
		log.Info().Str("path", c.path).Msg("config hot-reloaded successfully")
		return nil
	})

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads the configuration from the config path and creates a
// watcher. The watcher is created but not started; call StartWatching()
// after container init.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	svc := &ConfigService{
		runtime: config.NewRuntime(cfg),
		Config:  cfg,
		path:    path,
	}

	// Hot-reload is optional: warn on watcher failure instead of erroring.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}

// Package di wires the application together with samber/do v2. Each
// service lives in its own file and is registered as a lazy singleton.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey names the config file path inside the injector, keeping
// it distinct from other string values.
const ConfigPathKey = "config.path"

// Container holds the injector with every llm-router service registered.
type Container struct {
	injector *do.RootScope
}

// NewContainer builds the injector and registers all providers. Services
// are lazy: nothing is constructed until first resolution.
func NewContainer(configPath string) (*Container, error) {
	injector := do.New()

	do.ProvideNamedValue(injector, ConfigPathKey, configPath)

	RegisterSingletons(injector)

	return &Container{
		injector: injector,
	}, nil
}

// Injector exposes the underlying scope for direct resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service, constructing it on first use.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service or panics. Startup-only; resolution
// failures there are fatal anyway.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// Shutdown tears services down in reverse registration order. Anything
// implementing do.Shutdowner gets its Shutdown called.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	report := c.injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

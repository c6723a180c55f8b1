package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/registry"
)

// RegistryService wraps the provider registry.
type RegistryService struct {
	Registry *registry.Registry
}

// NewRegistry creates the provider registry from the store, resolver, and
// the configured fallback provider id.
func NewRegistry(i do.Injector) (*RegistryService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	settingsSvc := do.MustInvoke[*SettingsService](i)

	reg := registry.New(storeSvc.Store, settingsSvc.Resolver, cfgSvc.Config.Providers.Fallback)

	return &RegistryService{Registry: reg}, nil
}

package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/settings"
)

// SettingsService wraps the settings resolver.
type SettingsService struct {
	Resolver *settings.Resolver
}

// NewSettings creates the settings resolver backed by the store.
func NewSettings(i do.Injector) (*SettingsService, error) {
	storeSvc := do.MustInvoke[*StoreService](i)

	return &SettingsService{Resolver: settings.New(storeSvc.Store)}, nil
}

package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/store"
)

// StoreService wraps the SQLite store.
type StoreService struct {
	Store *store.Store
}

// NewStore opens the SQLite database from configuration.
func NewStore(i do.Injector) (*StoreService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	s, err := store.Open(store.Options{
		Path:        cfgSvc.Config.Database.Path,
		BusyTimeout: cfgSvc.Config.Database.GetBusyTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfgSvc.Config.Database.Path, err)
	}

	return &StoreService{Store: s}, nil
}

// Shutdown implements do.Shutdowner for graceful database cleanup.
func (s *StoreService) Shutdown() error {
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}

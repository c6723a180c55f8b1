package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/omarluq/llm-router/internal/settings"
	"github.com/omarluq/llm-router/internal/store"
)

// Store is the slice of the durable store the registry needs.
type Store interface {
	InsertProvider(ctx context.Context, rec store.ProviderRecord) error
	GetProvider(ctx context.Context, id string) (store.ProviderRecord, error)
	ListProviders(ctx context.Context) ([]store.ProviderRecord, error)
	UpdateProvider(ctx context.Context, rec store.ProviderRecord) error
	DeleteProvider(ctx context.Context, id string) error
}

// SettingsResolver is the slice of the settings layer the registry needs
// for active-provider resolution.
type SettingsResolver interface {
	Get(ctx context.Context, key string) (any, bool, error)
}

// Registry owns provider lifecycle and active-provider resolution.
//
// The registry holds no in-memory provider cache: every resolution re-reads
// the store, so mutations are visible to concurrent requests after at most
// one resolver call and no invalidation protocol is needed. Resolution is
// read-mostly and a local SQLite read is cheap enough.
type Registry struct {
	store    Store
	settings SettingsResolver
	prober   Prober
	fallback string
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithProber overrides the connectivity prober used by Test.
func WithProber(p Prober) Option {
	return func(r *Registry) { r.prober = p }
}

// WithClock overrides the registry clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a Registry. fallbackID is the provider id that active-provider
// resolution returns when the setting is unset or points at a deleted row.
func New(s Store, resolver SettingsResolver, fallbackID string, opts ...Option) *Registry {
	r := &Registry{
		store:    s,
		settings: resolver,
		prober:   NewHTTPProber(nil),
		fallback: fallbackID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new provider. Enabled defaults to true and priority
// to 0 when omitted. Fails with ErrDuplicate when the id is taken and
// ErrInvalidSpec when the payload is malformed.
func (r *Registry) Create(ctx context.Context, spec CreateSpec) (Provider, error) {
	if err := spec.validate(); err != nil {
		return Provider{}, err
	}

	now := r.now().UTC()
	provider := Provider{
		ID:          spec.ID,
		Name:        spec.Name,
		Type:        spec.Type,
		Enabled:     true,
		Priority:    0,
		Description: spec.Description,
		Config:      spec.Config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if spec.Enabled != nil {
		provider.Enabled = *spec.Enabled
	}
	if spec.Priority != nil {
		provider.Priority = *spec.Priority
	}
	if provider.Config == nil {
		provider.Config = map[string]ConfigValue{}
	}

	rec, err := toRecord(provider)
	if err != nil {
		return Provider{}, fmt.Errorf("registry: encode provider: %w", err)
	}
	if err := r.store.InsertProvider(ctx, rec); err != nil {
		return Provider{}, mapStoreErr(err)
	}

	log.Info().Str("provider", provider.ID).Str("type", string(provider.Type)).
		Msg("provider created")
	return provider, nil
}

// Get returns the provider for id, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Provider, error) {
	rec, err := r.store.GetProvider(ctx, id)
	if err != nil {
		return Provider{}, mapStoreErr(err)
	}
	provider, err := fromRecord(rec)
	if err != nil {
		return Provider{}, fmt.Errorf("registry: decode provider %q: %w", id, err)
	}
	return provider, nil
}

// List returns providers matching filter, ordered by priority descending
// then creation time ascending. An empty filter returns everything.
func (r *Registry) List(ctx context.Context, filter Filter) ([]Provider, error) {
	records, err := r.store.ListProviders(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	providers := make([]Provider, 0, len(records))
	for _, rec := range records {
		provider, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("registry: decode provider %q: %w", rec.ID, err)
		}
		providers = append(providers, provider)
	}

	return lo.Filter(providers, func(p Provider, _ int) bool {
		if filter.Type != "" && p.Type != filter.Type {
			return false
		}
		if filter.Enabled != nil && p.Enabled != *filter.Enabled {
			return false
		}
		return true
	}), nil
}

// Update merges spec into the stored provider. Attempts to change id or type
// fail with ErrImmutable.
func (r *Registry) Update(ctx context.Context, id string, spec UpdateSpec) (Provider, error) {
	provider, err := r.Get(ctx, id)
	if err != nil {
		return Provider{}, err
	}

	if spec.ID != "" && spec.ID != provider.ID {
		return Provider{}, fmt.Errorf("%w: cannot change id %q to %q", ErrImmutable, provider.ID, spec.ID)
	}
	if spec.Type != "" && spec.Type != provider.Type {
		return Provider{}, fmt.Errorf("%w: cannot change type %q to %q", ErrImmutable, provider.Type, spec.Type)
	}

	if spec.Name != nil {
		if *spec.Name == "" {
			return Provider{}, invalidSpec("name must not be empty")
		}
		provider.Name = *spec.Name
	}
	if spec.Enabled != nil {
		provider.Enabled = *spec.Enabled
	}
	if spec.Priority != nil {
		provider.Priority = *spec.Priority
	}
	if spec.Description != nil {
		provider.Description = *spec.Description
	}
	if spec.Config != nil {
		provider.Config = spec.Config
	}

	return r.persist(ctx, provider)
}

// Delete removes the provider. When the deleted provider was the active one,
// the active_provider setting is cleared in the same store transaction, so
// resolution falls back instead of pointing at a dangling id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteProvider(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	log.Info().Str("provider", id).Msg("provider deleted")
	return nil
}

// Enable marks the provider enabled. Enabling an already-enabled provider is
// a no-op success.
func (r *Registry) Enable(ctx context.Context, id string) (Provider, error) {
	return r.setEnabled(ctx, id, true)
}

// Disable marks the provider disabled. Idempotent like Enable.
func (r *Registry) Disable(ctx context.Context, id string) (Provider, error) {
	return r.setEnabled(ctx, id, false)
}

func (r *Registry) setEnabled(ctx context.Context, id string, enabled bool) (Provider, error) {
	provider, err := r.Get(ctx, id)
	if err != nil {
		return Provider{}, err
	}
	if provider.Enabled == enabled {
		return provider, nil
	}
	provider.Enabled = enabled
	return r.persist(ctx, provider)
}

// Reload re-reads the provider from durable storage, discarding any copy the
// caller may hold. Used to recover after out-of-band edits to the database.
func (r *Registry) Reload(ctx context.Context, id string) (Provider, error) {
	return r.Get(ctx, id)
}

// ActiveProviderID resolves which provider receives forwarded requests.
// It never fails: an unset setting, an unreadable store, or a dangling id
// all resolve to the configured fallback so forwarding and telemetry never
// stall on resolution.
func (r *Registry) ActiveProviderID(ctx context.Context) string {
	value, _, err := r.settings.Get(ctx, settings.ActiveProviderKey)
	if err != nil {
		if !errors.Is(err, settings.ErrNotFound) {
			log.Warn().Err(err).Msg("active provider setting unreadable, using fallback")
		}
		return r.fallback
	}

	id, ok := value.(string)
	if !ok || id == "" {
		return r.fallback
	}

	if _, err := r.store.GetProvider(ctx, id); err != nil {
		// Dangling or unreadable reference resolves to the fallback,
		// never to an error.
		return r.fallback
	}
	return id
}

func (r *Registry) persist(ctx context.Context, provider Provider) (Provider, error) {
	provider.UpdatedAt = r.now().UTC()
	rec, err := toRecord(provider)
	if err != nil {
		return Provider{}, fmt.Errorf("registry: encode provider: %w", err)
	}
	if err := r.store.UpdateProvider(ctx, rec); err != nil {
		return Provider{}, mapStoreErr(err)
	}
	return provider, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w (%v)", ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w (%v)", ErrDuplicate, err)
	default:
		return err
	}
}

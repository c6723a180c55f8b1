// Package settings resolves effective configuration: compiled-in defaults
// overlaid with overrides stored in the settings table. The resolver also
// classifies keys into categories and tracks which keys require a process
// restart to take effect.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/llm-router/internal/store"
)

// Resolver errors.
var (
	// ErrNotFound is returned when a key has neither a stored override nor
	// a compiled-in default.
	ErrNotFound = errors.New("settings: not found")

	// ErrInvalidValue is returned when a value is not a string, number,
	// or boolean.
	ErrInvalidValue = errors.New("settings: value must be a string, number, or boolean")
)

// Store is the slice of the durable store the resolver needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (store.Setting, error)
	AllSettings(ctx context.Context) ([]store.Setting, error)
	UpsertSetting(ctx context.Context, key, value string, now time.Time) error
	DeleteSetting(ctx context.Context, key string) error
}

// Resolver merges stored overrides over compiled-in defaults.
// A nil store resolves pure defaults, which keeps tests and early startup
// (before the database is opened) working.
type Resolver struct {
	store Store
	now   func() time.Time
}

// New creates a Resolver backed by s. s may be nil.
func New(s Store) *Resolver {
	return &Resolver{store: s, now: time.Now}
}

// Detail is the full description of one resolved key, shaped for the API.
type Detail struct {
	Key             string `json:"key"`
	Value           any    `json:"value"`
	Category        string `json:"category"`
	RequiresRestart bool   `json:"requiresRestart"`
	IsDefault       bool   `json:"isDefault"`
}

// KeyError reports a per-key failure from BulkSet.
type KeyError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BulkResult reports the outcome of a BulkSet: which keys were written,
// which failed and why, and whether any written key requires a restart.
type BulkResult struct {
	Updated         []string   `json:"updated"`
	Errors          []KeyError `json:"errors"`
	RequiresRestart bool       `json:"requiresRestart"`
}

// GetAll returns defaults overlaid with stored overrides, optionally filtered
// to keys whose category equals category. It never fails: if the store is
// absent or unreadable, the pure defaults are returned and the cause logged.
func (r *Resolver) GetAll(ctx context.Context, category string) map[string]any {
	merged := Defaults()

	if r.store != nil {
		stored, err := r.store.AllSettings(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("settings store unreadable, serving defaults")
		}
		for _, setting := range stored {
			merged[setting.Key] = decodeValue(setting.Value)
		}
	}

	if category == "" {
		return merged
	}

	filtered := make(map[string]any)
	for key, value := range merged {
		if Category(key) == category {
			filtered[key] = value
		}
	}
	return filtered
}

// Get resolves one key. The stored override wins over the default. The second
// return reports whether the value came from the store, which also drives the
// isDefault flag in the API.
func (r *Resolver) Get(ctx context.Context, key string) (any, bool, error) {
	if r.store != nil {
		setting, err := r.store.GetSetting(ctx, key)
		switch {
		case err == nil:
			return decodeValue(setting.Value), true, nil
		case errors.Is(err, store.ErrNotFound):
			// Fall through to the default.
		default:
			return nil, false, fmt.Errorf("settings: get %q: %w", key, err)
		}
	}

	if value, ok := defaults[key]; ok {
		return value, false, nil
	}
	return nil, false, fmt.Errorf("setting %q: %w", key, ErrNotFound)
}

// Describe resolves one key with its category, restart, and default flags.
func (r *Resolver) Describe(ctx context.Context, key string) (Detail, error) {
	value, fromStore, err := r.Get(ctx, key)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Key:             key,
		Value:           value,
		Category:        Category(key),
		RequiresRestart: RequiresRestart(key),
		IsDefault:       !fromStore,
	}, nil
}

// Set writes the override for key through to the store and stamps updated_at.
// The bool return tells the caller whether key is restart-required; the
// resolver itself never restarts anything.
func (r *Resolver) Set(ctx context.Context, key string, value any) (bool, error) {
	if r.store == nil {
		return false, errors.New("settings: no store configured")
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return false, fmt.Errorf("settings: set %q: %w", key, err)
	}

	if err := r.store.UpsertSetting(ctx, key, encoded, r.now()); err != nil {
		return false, fmt.Errorf("settings: set %q: %w", key, err)
	}
	return RequiresRestart(key), nil
}

// BulkSet applies each entry independently: one failing key never blocks the
// others. Keys are applied in sorted order so results are deterministic.
func (r *Resolver) BulkSet(ctx context.Context, entries map[string]any) BulkResult {
	result := BulkResult{Updated: []string{}, Errors: []KeyError{}}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		restart, err := r.Set(ctx, key, entries[key])
		if err != nil {
			result.Errors = append(result.Errors, KeyError{Key: key, Error: err.Error()})
			continue
		}
		result.Updated = append(result.Updated, key)
		if restart {
			result.RequiresRestart = true
		}
	}
	return result
}

// Delete removes the stored override so the key reverts to its default.
// Deleting a key with no override succeeds.
func (r *Resolver) Delete(ctx context.Context, key string) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.DeleteSetting(ctx, key); err != nil {
		return fmt.Errorf("settings: delete %q: %w", key, err)
	}
	return nil
}

// encodeValue JSON-encodes a scalar setting value for storage.
func encodeValue(value any) (string, error) {
	switch value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	default:
		return "", ErrInvalidValue
	}
}

// decodeValue turns a stored JSON scalar back into a Go value. Integers come
// back as int64 and other numbers as float64 so round-trips stay comparable.
// Pre-JSON legacy values decode as plain strings.
func decodeValue(encoded string) any {
	decoder := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return encoded
	}

	if number, ok := value.(json.Number); ok {
		if i, err := number.Int64(); err == nil {
			return i
		}
		if f, err := number.Float64(); err == nil {
			return f
		}
	}
	return value
}

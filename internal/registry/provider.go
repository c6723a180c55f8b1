// Package registry owns provider lifecycle for llm-router: registration,
// enable/disable toggles, connectivity testing, reload from storage, and
// resolution of the single active provider.
package registry

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/omarluq/llm-router/internal/store"
)

// Type identifies the kind of upstream backend a provider is.
type Type string

// Recognised provider types.
const (
	// TypeLocalServer is a local inference server (e.g. LM Studio, Ollama).
	TypeLocalServer Type = "local-server"
	// TypeCloudProxy is an authenticated cloud proxy using browser credentials.
	TypeCloudProxy Type = "cloud-proxy"
	// TypeCloudDirect is a cloud API reached directly with an API key.
	TypeCloudDirect Type = "cloud-direct"
)

// Valid reports whether t is a recognised provider type.
func (t Type) Valid() bool {
	switch t {
	case TypeLocalServer, TypeCloudProxy, TypeCloudDirect:
		return true
	default:
		return false
	}
}

// ConfigValue is one entry of a provider's opaque configuration map.
// Sensitive values are masked when a provider is serialised for the API.
type ConfigValue struct {
	Value       string `json:"value"`
	IsSensitive bool   `json:"isSensitive"`
}

// Config key under which a provider's probe/forward endpoint lives.
const configBaseURL = "base_url"

// Provider is a registered upstream backend.
type Provider struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        Type                   `json:"type"`
	Enabled     bool                   `json:"enabled"`
	Priority    int                    `json:"priority"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]ConfigValue `json:"config"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// BaseURL returns the configured endpoint, or "" when not set.
func (p Provider) BaseURL() string {
	return p.Config[configBaseURL].Value
}

// Masked returns a copy of p with sensitive config values replaced by "***".
func (p Provider) Masked() Provider {
	masked := p
	masked.Config = make(map[string]ConfigValue, len(p.Config))
	for key, value := range p.Config {
		if value.IsSensitive {
			value.Value = "***"
		}
		masked.Config[key] = value
	}
	return masked
}

// CreateSpec is the payload for registering a provider.
type CreateSpec struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        Type                   `json:"type"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Priority    *int                   `json:"priority,omitempty"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]ConfigValue `json:"config,omitempty"`
}

// UpdateSpec is the payload for mutating a provider. Nil fields are left
// untouched. ID and Type, when present, must match the stored values:
// both are immutable after creation.
type UpdateSpec struct {
	ID          string                 `json:"id,omitempty"`
	Type        Type                   `json:"type,omitempty"`
	Name        *string                `json:"name,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Priority    *int                   `json:"priority,omitempty"`
	Description *string                `json:"description,omitempty"`
	Config      map[string]ConfigValue `json:"config,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type    Type
	Enabled *bool
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether id is slug-formatted: lowercase alphanumerics
// separated by single hyphens, no leading or trailing hyphen.
func ValidSlug(id string) bool {
	return slugPattern.MatchString(id)
}

func (spec CreateSpec) validate() error {
	if !ValidSlug(spec.ID) {
		return invalidSpec("id %q is not slug-formatted", spec.ID)
	}
	if spec.Name == "" {
		return invalidSpec("name is required")
	}
	if !spec.Type.Valid() {
		return invalidSpec("unrecognised type %q", spec.Type)
	}
	return nil
}

func fromRecord(rec store.ProviderRecord) (Provider, error) {
	provider := Provider{
		ID:          rec.ID,
		Name:        rec.Name,
		Type:        Type(rec.Type),
		Enabled:     rec.Enabled,
		Priority:    rec.Priority,
		Description: rec.Description,
		Config:      map[string]ConfigValue{},
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if len(rec.Config) > 0 {
		if err := json.Unmarshal(rec.Config, &provider.Config); err != nil {
			return Provider{}, err
		}
	}
	return provider, nil
}

func toRecord(p Provider) (store.ProviderRecord, error) {
	config, err := json.Marshal(p.Config)
	if err != nil {
		return store.ProviderRecord{}, err
	}
	return store.ProviderRecord{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Enabled:     p.Enabled,
		Priority:    p.Priority,
		Description: p.Description,
		Config:      config,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

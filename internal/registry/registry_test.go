package registry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/llm-router/internal/registry"
	"github.com/omarluq/llm-router/internal/settings"
	"github.com/omarluq/llm-router/internal/store"
)

const fallbackID = "local-default"

func newRegistry(t *testing.T, opts ...registry.Option) (*registry.Registry, *settings.Resolver) {
	t.Helper()

	s, err := store.Open(store.Options{
		Path: filepath.Join(t.TempDir(), "registry.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	resolver := settings.New(s)
	return registry.New(s, resolver, fallbackID, opts...), resolver
}

func createSpec(id string) registry.CreateSpec {
	return registry.CreateSpec{
		ID:   id,
		Name: "Provider " + id,
		Type: registry.TypeLocalServer,
		Config: map[string]registry.ConfigValue{
			"base_url": {Value: "http://localhost:1234"},
		},
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("defaults enabled true and priority zero", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		provider, err := reg.Create(ctx, createSpec("lm-studio"))
		require.NoError(t, err)
		assert.True(t, provider.Enabled)
		assert.Zero(t, provider.Priority)
		assert.Equal(t, "http://localhost:1234", provider.BaseURL())
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("ollama"))
		require.NoError(t, err)

		_, err = reg.Create(ctx, createSpec("ollama"))
		require.ErrorIs(t, err, registry.ErrDuplicate)
	})

	t.Run("invalid specs rejected", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		cases := map[string]registry.CreateSpec{
			"empty id":     {Name: "x", Type: registry.TypeLocalServer},
			"bad slug":     {ID: "Not A Slug", Name: "x", Type: registry.TypeLocalServer},
			"empty name":   {ID: "ok-id", Type: registry.TypeLocalServer},
			"unknown type": {ID: "ok-id", Name: "x", Type: registry.Type("weird")},
		}
		for name, spec := range cases {
			_, err := reg.Create(ctx, spec)
			require.ErrorIs(t, err, registry.ErrInvalidSpec, name)
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("merges only the provided fields", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("lm-studio"))
		require.NoError(t, err)

		name := "Renamed"
		priority := 3
		provider, err := reg.Update(ctx, "lm-studio", registry.UpdateSpec{
			Name:     &name,
			Priority: &priority,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", provider.Name)
		assert.Equal(t, 3, provider.Priority)
		assert.True(t, provider.Enabled)
		assert.Equal(t, "http://localhost:1234", provider.BaseURL())
	})

	t.Run("id and type are immutable", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("lm-studio"))
		require.NoError(t, err)

		_, err = reg.Update(ctx, "lm-studio", registry.UpdateSpec{ID: "other"})
		require.ErrorIs(t, err, registry.ErrImmutable)

		_, err = reg.Update(ctx, "lm-studio", registry.UpdateSpec{Type: registry.TypeCloudDirect})
		require.ErrorIs(t, err, registry.ErrImmutable)

		// Restating the current values is fine.
		_, err = reg.Update(ctx, "lm-studio", registry.UpdateSpec{
			ID:   "lm-studio",
			Type: registry.TypeLocalServer,
		})
		require.NoError(t, err)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("lm-studio"))
		require.NoError(t, err)

		empty := ""
		_, err = reg.Update(ctx, "lm-studio", registry.UpdateSpec{Name: &empty})
		require.ErrorIs(t, err, registry.ErrInvalidSpec)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Update(ctx, "ghost", registry.UpdateSpec{})
		require.ErrorIs(t, err, registry.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	specLow := createSpec("low-prio")
	lowPriority := 1
	specLow.Priority = &lowPriority

	specHigh := createSpec("high-prio")
	highPriority := 9
	specHigh.Priority = &highPriority

	specCloud := registry.CreateSpec{
		ID:   "cloud",
		Name: "Cloud",
		Type: registry.TypeCloudDirect,
	}
	disabled := false
	specCloud.Enabled = &disabled

	for _, spec := range []registry.CreateSpec{specLow, specHigh, specCloud} {
		_, err := reg.Create(ctx, spec)
		require.NoError(t, err)
	}

	t.Run("orders by priority descending", func(t *testing.T) {
		t.Parallel()
		providers, err := reg.List(ctx, registry.Filter{})
		require.NoError(t, err)
		require.Len(t, providers, 3)
		assert.Equal(t, "high-prio", providers[0].ID)
	})

	t.Run("filters by type", func(t *testing.T) {
		t.Parallel()
		providers, err := reg.List(ctx, registry.Filter{Type: registry.TypeCloudDirect})
		require.NoError(t, err)
		require.Len(t, providers, 1)
		assert.Equal(t, "cloud", providers[0].ID)
	})

	t.Run("filters by enabled", func(t *testing.T) {
		t.Parallel()
		enabled := true
		providers, err := reg.List(ctx, registry.Filter{Enabled: &enabled})
		require.NoError(t, err)
		assert.Len(t, providers, 2)
	})
}

func TestEnableDisable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Create(ctx, createSpec("lm-studio"))
	require.NoError(t, err)

	provider, err := reg.Disable(ctx, "lm-studio")
	require.NoError(t, err)
	assert.False(t, provider.Enabled)

	// Disabling again is a no-op success.
	provider, err = reg.Disable(ctx, "lm-studio")
	require.NoError(t, err)
	assert.False(t, provider.Enabled)

	provider, err = reg.Enable(ctx, "lm-studio")
	require.NoError(t, err)
	assert.True(t, provider.Enabled)

	_, err = reg.Enable(ctx, "ghost")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestActiveProviderID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unset setting resolves to fallback", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		assert.Equal(t, fallbackID, reg.ActiveProviderID(ctx))
	})

	t.Run("setting wins when the provider exists", func(t *testing.T) {
		t.Parallel()
		reg, resolver := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("ollama"))
		require.NoError(t, err)
		_, err = resolver.Set(ctx, settings.ActiveProviderKey, "ollama")
		require.NoError(t, err)

		assert.Equal(t, "ollama", reg.ActiveProviderID(ctx))
	})

	t.Run("dangling setting resolves to fallback", func(t *testing.T) {
		t.Parallel()
		reg, resolver := newRegistry(t)

		_, err := resolver.Set(ctx, settings.ActiveProviderKey, "vanished")
		require.NoError(t, err)

		assert.Equal(t, fallbackID, reg.ActiveProviderID(ctx))
	})

	t.Run("deleting the active provider falls back", func(t *testing.T) {
		t.Parallel()
		reg, resolver := newRegistry(t)

		_, err := reg.Create(ctx, createSpec("ollama"))
		require.NoError(t, err)
		_, err = resolver.Set(ctx, settings.ActiveProviderKey, "ollama")
		require.NoError(t, err)
		require.Equal(t, "ollama", reg.ActiveProviderID(ctx))

		require.NoError(t, reg.Delete(ctx, "ollama"))

		assert.Equal(t, fallbackID, reg.ActiveProviderID(ctx))

		// The setting itself was cleared, not just ignored.
		_, fromStore, err := resolver.Get(ctx, settings.ActiveProviderKey)
		require.ErrorIs(t, err, settings.ErrNotFound)
		assert.False(t, fromStore)
	})
}

func TestMasked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	spec := createSpec("cloud-proxy-1")
	spec.Type = registry.TypeCloudProxy
	spec.Config["api_key"] = registry.ConfigValue{Value: "sk-secret", IsSensitive: true}

	provider, err := reg.Create(ctx, spec)
	require.NoError(t, err)

	masked := provider.Masked()
	assert.Equal(t, "***", masked.Config["api_key"].Value)
	assert.Equal(t, "http://localhost:1234", masked.Config["base_url"].Value)
	// The original is untouched.
	assert.Equal(t, "sk-secret", provider.Config["api_key"].Value)
}

type staticProber struct {
	err error
}

func (p staticProber) Probe(_ context.Context, _ string) error {
	return p.err
}

func TestTest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Test(ctx, "ghost")
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("missing base_url is a failed result", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t)

		_, err := reg.Create(ctx, registry.CreateSpec{
			ID: "bare", Name: "Bare", Type: registry.TypeLocalServer,
		})
		require.NoError(t, err)

		result, err := reg.Test(ctx, "bare")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
		assert.Nil(t, result.LatencyMS)
	})

	t.Run("probe failure is data not error", func(t *testing.T) {
		t.Parallel()
		reg, _ := newRegistry(t, registry.WithProber(staticProber{err: errors.New("conn refused")}))

		_, err := reg.Create(ctx, createSpec("lm-studio"))
		require.NoError(t, err)

		result, err := reg.Test(ctx, "lm-studio")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "conn refused")
	})

	t.Run("reachable endpoint succeeds with latency", func(t *testing.T) {
		t.Parallel()

		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(upstream.Close)

		reg, _ := newRegistry(t)

		spec := createSpec("live")
		spec.Config["base_url"] = registry.ConfigValue{Value: upstream.URL}
		_, err := reg.Create(ctx, spec)
		require.NoError(t, err)

		result, err := reg.Test(ctx, "live")
		require.NoError(t, err)
		assert.True(t, result.Success)
		require.NotNil(t, result.LatencyMS)
		assert.GreaterOrEqual(t, *result.LatencyMS, int64(0))
	})
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	spec := createSpec("cloud")
	spec.Type = registry.TypeCloudProxy
	_, err := reg.Create(ctx, spec)
	require.NoError(t, err)

	t.Run("absent before set", func(t *testing.T) {
		_, _, ok := reg.Credentials(ctx, "cloud")
		assert.False(t, ok)
	})

	t.Run("round-trips token and cookie", func(t *testing.T) {
		require.NoError(t, reg.SetCredentials(ctx, "cloud", "tok-123", "session=abc", time.Time{}))

		token, cookie, ok := reg.Credentials(ctx, "cloud")
		require.True(t, ok)
		require.NotNil(t, token)
		assert.Equal(t, "tok-123", token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.Equal(t, "session=abc", cookie)
	})

	t.Run("credentials are sensitive in masked view", func(t *testing.T) {
		provider, err := reg.Get(ctx, "cloud")
		require.NoError(t, err)

		masked := provider.Masked()
		assert.Equal(t, "***", masked.Config["auth_token"].Value)
	})

	t.Run("unknown provider", func(t *testing.T) {
		err := reg.SetCredentials(ctx, "ghost", "tok", "", time.Time{})
		require.ErrorIs(t, err, registry.ErrNotFound)
	})
}

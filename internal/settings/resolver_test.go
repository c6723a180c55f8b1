package settings_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/llm-router/internal/settings"
	"github.com/omarluq/llm-router/internal/store"
)

func newResolver(t *testing.T) *settings.Resolver {
	t.Helper()

	s, err := store.Open(store.Options{
		Path: filepath.Join(t.TempDir(), "settings.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return settings.New(s)
}

func TestGetAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("pure defaults without a store", func(t *testing.T) {
		t.Parallel()
		resolver := settings.New(nil)

		all := resolver.GetAll(ctx, "")
		assert.Equal(t, settings.Defaults(), all)
	})

	t.Run("override wins over default", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, err := resolver.Set(ctx, "logging.level", "debug")
		require.NoError(t, err)

		all := resolver.GetAll(ctx, "")
		assert.Equal(t, "debug", all["logging.level"])
		// Untouched keys keep their defaults.
		assert.Equal(t, int64(8000), toInt64(t, all["server.port"]))
	})

	t.Run("category filter", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		all := resolver.GetAll(ctx, "logging")
		assert.Contains(t, all, "logging.level")
		assert.Contains(t, all, "logging.logRequests")
		assert.NotContains(t, all, "server.port")
	})
}

// toInt64 normalizes the numeric representations that can come out of the
// resolver: compiled-in defaults keep their Go types while stored overrides
// decode to int64.
func toInt64(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	default:
		t.Fatalf("unexpected numeric type %T", v)
		return 0
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown key errors", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, _, err := resolver.Get(ctx, "nope.nothing")
		require.ErrorIs(t, err, settings.ErrNotFound)
	})

	t.Run("default reports not-from-store", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		value, fromStore, err := resolver.Get(ctx, "server.host")
		require.NoError(t, err)
		assert.False(t, fromStore)
		assert.Equal(t, "0.0.0.0", value)
	})

	t.Run("numbers round-trip as int64", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, err := resolver.Set(ctx, "server.port", 9123)
		require.NoError(t, err)

		value, fromStore, err := resolver.Get(ctx, "server.port")
		require.NoError(t, err)
		assert.True(t, fromStore)
		assert.Equal(t, int64(9123), value)
	})

	t.Run("floats round-trip as float64", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, err := resolver.Set(ctx, "custom.ratio", 0.75)
		require.NoError(t, err)

		value, _, err := resolver.Get(ctx, "custom.ratio")
		require.NoError(t, err)
		assert.Equal(t, 0.75, value)
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver := newResolver(t)

	detail, err := resolver.Describe(ctx, "server.port")
	require.NoError(t, err)
	assert.Equal(t, "server.port", detail.Key)
	assert.Equal(t, "server", detail.Category)
	assert.True(t, detail.RequiresRestart)
	assert.True(t, detail.IsDefault)

	_, err = resolver.Set(ctx, "server.port", 9999)
	require.NoError(t, err)

	detail, err = resolver.Describe(ctx, "server.port")
	require.NoError(t, err)
	assert.False(t, detail.IsDefault)
	assert.Equal(t, int64(9999), detail.Value)
}

func TestSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("restart flag follows the key", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		restart, err := resolver.Set(ctx, "logging.level", "warn")
		require.NoError(t, err)
		assert.True(t, restart)

		restart, err = resolver.Set(ctx, "logging.logRequests", false)
		require.NoError(t, err)
		assert.False(t, restart)
	})

	t.Run("non-scalar values rejected", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, err := resolver.Set(ctx, "custom.key", map[string]any{"nested": true})
		require.ErrorIs(t, err, settings.ErrInvalidValue)

		_, err = resolver.Set(ctx, "custom.key", []int{1, 2})
		require.ErrorIs(t, err, settings.ErrInvalidValue)
	})

	t.Run("unknown keys are storable", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		_, err := resolver.Set(ctx, "experimental.flag", true)
		require.NoError(t, err)

		value, fromStore, err := resolver.Get(ctx, "experimental.flag")
		require.NoError(t, err)
		assert.True(t, fromStore)
		assert.Equal(t, true, value)
	})
}

func TestBulkSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("partial failure keeps the good keys", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		result := resolver.BulkSet(ctx, map[string]any{
			"logging.level":  "debug",
			"system.invalid": map[string]any{"bad": true},
			"server.timeout": 60000,
		})

		assert.ElementsMatch(t, []string{"logging.level", "server.timeout"}, result.Updated)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "system.invalid", result.Errors[0].Key)
		assert.True(t, result.RequiresRestart) // logging.level needs restart

		value, _, err := resolver.Get(ctx, "server.timeout")
		require.NoError(t, err)
		assert.Equal(t, int64(60000), value)
	})

	t.Run("no restart-required keys", func(t *testing.T) {
		t.Parallel()
		resolver := newResolver(t)

		result := resolver.BulkSet(ctx, map[string]any{
			"logging.logRequests":  false,
			"logging.logResponses": false,
		})

		assert.Len(t, result.Updated, 2)
		assert.Empty(t, result.Errors)
		assert.False(t, result.RequiresRestart)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver := newResolver(t)

	_, err := resolver.Set(ctx, "logging.level", "debug")
	require.NoError(t, err)

	require.NoError(t, resolver.Delete(ctx, "logging.level"))

	value, fromStore, err := resolver.Get(ctx, "logging.level")
	require.NoError(t, err)
	assert.False(t, fromStore)
	assert.Equal(t, "info", value)

	// Deleting again is a no-op.
	require.NoError(t, resolver.Delete(ctx, "logging.level"))
}

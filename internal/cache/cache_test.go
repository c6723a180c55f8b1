package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/llm-router/internal/cache"
)

func newRistretto(t *testing.T) cache.Cache {
	t.Helper()

	c, err := cache.NewRistretto(cache.DefaultRistrettoConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRistretto(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("miss returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		_, err := c.Get(ctx, "absent")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		require.NoError(t, c.SetWithTTL(ctx, "stats", []byte(`{"total":3}`), time.Minute))

		value, err := c.Get(ctx, "stats")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"total":3}`), value)
	})

	t.Run("returned bytes are a copy", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		require.NoError(t, c.SetWithTTL(ctx, "k", []byte("original"), time.Minute))

		first, err := c.Get(ctx, "k")
		require.NoError(t, err)
		first[0] = 'X'

		second, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), second)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		require.NoError(t, c.SetWithTTL(ctx, "ephemeral", []byte("x"), 20*time.Millisecond))

		assert.Eventually(t, func() bool {
			_, err := c.Get(ctx, "ephemeral")
			return err != nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("delete removes, deleting absent succeeds", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		require.NoError(t, c.SetWithTTL(ctx, "k", []byte("x"), time.Minute))
		require.NoError(t, c.Delete(ctx, "k"))

		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, cache.ErrNotFound)
		assert.NoError(t, c.Delete(ctx, "never-existed"))
	})

	t.Run("closed cache rejects operations", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, cache.ErrClosed)
		assert.ErrorIs(t, c.SetWithTTL(ctx, "k", nil, time.Minute), cache.ErrClosed)
		assert.ErrorIs(t, c.Delete(ctx, "k"), cache.ErrClosed)
	})

	t.Run("cancelled context wins", func(t *testing.T) {
		t.Parallel()

		c := newRistretto(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.Get(cancelled, "k")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewNoop()

	require.NoError(t, c.SetWithTTL(ctx, "k", []byte("x"), time.Minute))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
}

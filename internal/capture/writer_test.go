package capture_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/llm-router/internal/capture"
	"github.com/omarluq/llm-router/internal/store"
)

// fakeRecordStore collects inserted records and can simulate failures.
type fakeRecordStore struct {
	mu       sync.Mutex
	inserted []store.RequestRecord
	err      error
}

func (f *fakeRecordStore) InsertRequest(_ context.Context, rec store.RequestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRecordStore) all() []store.RequestRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.RequestRecord(nil), f.inserted...)
}

func TestWriter(t *testing.T) {
	t.Parallel()

	t.Run("persists enqueued records in order", func(t *testing.T) {
		t.Parallel()

		fake := &fakeRecordStore{}
		writer := capture.NewWriter(fake, 16)
		writer.Start()

		for i := range 5 {
			ok := writer.Enqueue(store.RequestRecord{RequestID: fmt.Sprintf("req-%d", i)})
			require.True(t, ok)
		}

		require.NoError(t, writer.Close(time.Second))

		records := fake.all()
		require.Len(t, records, 5)
		for i, rec := range records {
			assert.Equal(t, fmt.Sprintf("req-%d", i), rec.RequestID)
		}
	})

	t.Run("full queue drops instead of blocking", func(t *testing.T) {
		t.Parallel()

		// Not started: nothing consumes the queue.
		writer := capture.NewWriter(&fakeRecordStore{}, 2)

		assert.True(t, writer.Enqueue(store.RequestRecord{RequestID: "a"}))
		assert.True(t, writer.Enqueue(store.RequestRecord{RequestID: "b"}))
		assert.False(t, writer.Enqueue(store.RequestRecord{RequestID: "c"}))
	})

	t.Run("duplicate ids are swallowed", func(t *testing.T) {
		t.Parallel()

		fake := &fakeRecordStore{err: store.ErrDuplicate}
		writer := capture.NewWriter(fake, 4)
		writer.Start()

		require.True(t, writer.Enqueue(store.RequestRecord{RequestID: "dup"}))
		require.NoError(t, writer.Close(time.Second))
	})

	t.Run("store failures never escape the pipeline", func(t *testing.T) {
		t.Parallel()

		fake := &fakeRecordStore{err: store.ErrUnavailable}
		writer := capture.NewWriter(fake, 4)
		writer.Start()

		require.True(t, writer.Enqueue(store.RequestRecord{RequestID: "x"}))
		require.NoError(t, writer.Close(time.Second))
	})

	t.Run("enqueue after close is a drop", func(t *testing.T) {
		t.Parallel()

		writer := capture.NewWriter(&fakeRecordStore{}, 4)
		writer.Start()
		require.NoError(t, writer.Close(time.Second))

		assert.False(t, writer.Enqueue(store.RequestRecord{RequestID: "late"}))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		writer := capture.NewWriter(&fakeRecordStore{}, 4)
		writer.Start()

		require.NoError(t, writer.Close(time.Second))
		require.NoError(t, writer.Close(time.Second))
	})
}

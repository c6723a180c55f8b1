package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/llm-router/internal/ro"
	"github.com/omarluq/llm-router/internal/store"
)

// RecordStore persists telemetry rows. *store.Store satisfies this.
type RecordStore interface {
	InsertRequest(ctx context.Context, rec store.RequestRecord) error
}

const (
	defaultWriterBuffer = 256
	writeTimeout        = 5 * time.Second
)

// Writer is the detached persistence pipeline: finalized records are
// enqueued on a bounded channel and written by a single subscriber off the
// request path. The HTTP response is never delayed by a database write.
//
// A full queue drops the record (Enqueue returns false and the caller logs
// it) rather than blocking. Same for a closed writer.
type Writer struct {
	records chan store.RequestRecord
	store   RecordStore
	done    chan struct{}
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewWriter creates a Writer with the given queue capacity.
// A capacity <= 0 gets the default of 256.
func NewWriter(s RecordStore, buffer int) *Writer {
	if buffer <= 0 {
		buffer = defaultWriterBuffer
	}
	return &Writer{
		records: make(chan store.RequestRecord, buffer),
		store:   s,
		done:    make(chan struct{}),
	}
}

// Start launches the subscriber goroutine. It consumes the queue until
// Close is called and the queue drains.
func (w *Writer) Start() {
	stream := ro.StreamFromChannel(w.records)
	go ro.SubscribeWithCallbacks(stream,
		w.persist,
		func(err error) {
			log.Error().Err(err).Msg("telemetry write stream failed")
			close(w.done)
		},
		func() {
			close(w.done)
		},
	)
}

// Enqueue hands a record to the pipeline without blocking.
// Returns false when the queue is full and the record was dropped.
func (w *Writer) Enqueue(rec store.RequestRecord) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}

	select {
	case w.records <- rec:
		return true
	default:
		return false
	}
}

// Close stops accepting records and waits for the queue to drain, bounded
// by timeout. Records still queued past the deadline are lost and counted
// in the returned error.
func (w *Writer) Close(timeout time.Duration) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.records)
	})

	select {
	case <-w.done:
		return nil
	case <-time.After(timeout):
		return errors.New("capture: telemetry writer drain timed out")
	}
}

func (w *Writer) persist(rec store.RequestRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := w.store.InsertRequest(ctx, rec)
	switch {
	case err == nil:
		log.Debug().Str("request_id", rec.RequestID).Msg("request logged")
	case errors.Is(err, store.ErrDuplicate):
		// A requestId collision means two requests shared an id. The first
		// row wins and stays untouched; the collision is only logged.
		log.Warn().Str("request_id", rec.RequestID).Msg("duplicate telemetry request id")
	default:
		// Persistence failures never propagate to the HTTP caller.
		log.Error().Err(err).Str("request_id", rec.RequestID).
			Msg("failed to persist telemetry record")
	}
}

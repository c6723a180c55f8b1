// Package capture implements the request/response telemetry pipeline.
//
// Every proxied exchange is observed by a Handle with exactly three possible
// terminal triggers: an explicit structured reply, a raw reply, or the
// connection finishing with nothing emitted. Whichever fires first wins an
// atomic latch and produces exactly one telemetry row; later triggers are
// no-ops. Persistence happens off the request path and is best-effort:
// a failed write never fails the proxied call.
package capture

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/omarluq/llm-router/internal/store"
)

// UnknownProvider is recorded when active-provider resolution is
// unavailable at capture time.
const UnknownProvider = "unknown"

// Sink receives finalized records for asynchronous persistence.
// Enqueue must not block; it reports false when the record was dropped.
type Sink interface {
	Enqueue(rec store.RequestRecord) bool
}

// ActiveProvider resolves which provider id is active right now.
// *registry.Registry satisfies this.
type ActiveProvider interface {
	ActiveProviderID(ctx context.Context) string
}

// Capture builds telemetry handles for inbound requests.
type Capture struct {
	sink     Sink
	active   ActiveProvider
	excluded map[string]struct{}
	now      func() time.Time
}

// Option configures a Capture.
type Option func(*Capture)

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(c *Capture) { c.now = now }
}

// WithExcludedPaths replaces the denylist of paths that are never persisted.
func WithExcludedPaths(paths ...string) Option {
	return func(c *Capture) {
		c.excluded = make(map[string]struct{}, len(paths))
		for _, path := range paths {
			c.excluded[path] = struct{}{}
		}
	}
}

// New creates a Capture writing to sink and attributing requests via active.
// By default the health probe, the root path, and the metrics scrape
// endpoint are excluded from telemetry.
func New(sink Sink, active ActiveProvider, opts ...Option) *Capture {
	c := &Capture{
		sink:     sink,
		active:   active,
		excluded: map[string]struct{}{"/health": {}, "/": {}, "/metrics": {}},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle tracks one in-flight request from Begin to its terminal trigger.
// The logged latch is the exactly-once invariant: all three triggers
// check-and-set it atomically, so re-entrant or late triggers are no-ops.
type Handle struct {
	capture  *Capture
	rec      store.RequestRecord
	start    time.Time
	logged   atomic.Bool
	excluded bool
}

// Begin starts capturing a request. The active provider id is snapshotted
// here, not at finalize: a provider switch mid-flight must not relabel a
// request that was dispatched to the old provider. Denylisted paths return
// an excluded handle whose triggers all no-op.
func (c *Capture) Begin(ctx context.Context, requestID, method, path string, requestBody []byte) *Handle {
	if _, skip := c.excluded[path]; skip {
		return &Handle{excluded: true}
	}

	providerID := UnknownProvider
	if c.active != nil {
		if id := c.active.ActiveProviderID(ctx); id != "" {
			providerID = id
		}
	}

	return &Handle{
		capture: c,
		start:   c.now(),
		rec: store.RequestRecord{
			RequestID: requestID,
			Provider:  providerID,
			Endpoint:  path,
			Method:    method,
			Request:   jsonBody(Redact(requestBody)),
		},
	}
}

// Excluded reports whether this handle belongs to a denylisted path.
func (h *Handle) Excluded() bool {
	return h.excluded
}

// SetError attaches an upstream error description to the eventual record.
// Must be called before the terminal trigger fires; later calls are lost.
func (h *Handle) SetError(message string) {
	if h.excluded || h.logged.Load() {
		return
	}
	h.rec.Error = message
}

// OnExplicitBody is terminal trigger A: the handler emitted a structured
// JSON reply. The body is captured as the response.
func (h *Handle) OnExplicitBody(body []byte, statusCode int) {
	h.finalize(Redact(body), statusCode)
}

// OnRawBody is terminal trigger B: the handler emitted a non-structured
// reply. When the body happens to be structured JSON it is captured;
// otherwise the response body is recorded as absent.
func (h *Handle) OnRawBody(body []byte, statusCode int) {
	if !isStructured(body) {
		body = nil
	}
	h.finalize(Redact(body), statusCode)
}

// OnConnectionFinished is terminal trigger C: the connection completed
// (normally or aborted) without an explicit emission. Only the status code
// and duration are captured.
func (h *Handle) OnConnectionFinished(statusCode int) {
	h.finalize(nil, statusCode)
}

// finalize runs at most once per handle; the CompareAndSwap is the
// exactly-once gate shared by all three triggers.
func (h *Handle) finalize(responseBody []byte, statusCode int) {
	if h.excluded {
		return
	}
	if !h.logged.CompareAndSwap(false, true) {
		return
	}

	duration := h.capture.now().Sub(h.start).Milliseconds()
	h.rec.Response = jsonBody(responseBody)
	h.rec.StatusCode = &statusCode
	h.rec.DurationMS = &duration
	h.rec.CreatedAt = h.capture.now().UTC()

	if !h.capture.sink.Enqueue(h.rec) {
		log.Error().Str("request_id", h.rec.RequestID).
			Msg("telemetry record dropped: write queue full")
	}
}

// jsonBody normalizes a captured body for storage: valid JSON is kept as
// is, anything else is wrapped in a JSON string so the record always
// serializes cleanly.
func jsonBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if gjson.ValidBytes(body) {
		return body
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}

// isStructured reports whether body parses as a JSON object or array.
func isStructured(body []byte) bool {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}
	parsed := gjson.ParseBytes(body)
	return parsed.IsObject() || parsed.IsArray()
}

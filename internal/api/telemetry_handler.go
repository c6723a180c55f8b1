package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/llm-router/internal/cache"
	"github.com/omarluq/llm-router/internal/store"
)

const statsCacheKey = "telemetry:stats"

// TelemetryStore is the slice of the durable store the handler reads.
type TelemetryStore interface {
	RecentRequests(ctx context.Context, limit int) ([]store.RequestRecord, error)
	RequestsByProvider(ctx context.Context, provider string, limit int) ([]store.RequestRecord, error)
	RequestStats(ctx context.Context) (store.RequestStats, error)
}

// TelemetryHandler serves the /v1/requests routes. Stats responses are
// cached briefly since they aggregate the whole request_logs table.
type TelemetryHandler struct {
	store    TelemetryStore
	cache    cache.Cache
	statsTTL time.Duration
}

// NewTelemetryHandler creates a TelemetryHandler. A nil c disables caching.
func NewTelemetryHandler(s TelemetryStore, c cache.Cache, statsTTL time.Duration) *TelemetryHandler {
	if c == nil {
		c = cache.NewNoop()
	}
	return &TelemetryHandler{store: s, cache: c, statsTTL: statsTTL}
}

// Recent handles GET /v1/requests. Optional ?provider= filters to one
// provider, ?limit= caps the result count.
func (h *TelemetryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	var (
		records []store.RequestRecord
		err     error
	)

	if provider := r.URL.Query().Get("provider"); provider != "" {
		records, err = h.store.RequestsByProvider(r.Context(), provider, limit)
	} else {
		records, err = h.store.RecentRequests(r.Context(), limit)
	}

	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if records == nil {
		records = []store.RequestRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// Stats handles GET /v1/requests/stats.
func (h *TelemetryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.cache.Get(r.Context(), statsCacheKey); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	stats, err := h.store.RequestStats(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	encoded, err := json.Marshal(stats)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if h.statsTTL > 0 {
		if err := h.cache.SetWithTTL(r.Context(), statsCacheKey, encoded, h.statsTTL); err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("stats cache write failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)
}

func parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0
	}
	return limit
}

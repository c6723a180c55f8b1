package store

import (
	"encoding/json"
	"time"
)

// Setting is one stored settings override. Absent keys fall back to
// compiled-in defaults in the settings resolver; the store never sees those.
type Setting struct {
	Key       string
	Value     string // JSON-encoded scalar (string, number, or bool)
	UpdatedAt time.Time
}

// ProviderRecord is one registered upstream backend as persisted.
// Config holds the provider's opaque key/value configuration as JSON.
type ProviderRecord struct {
	ID          string
	Name        string
	Type        string
	Enabled     bool
	Priority    int
	Description string
	Config      []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RequestRecord is one immutable telemetry row for a proxied exchange.
// Optional fields use pointers so absent values round-trip as SQL NULLs.
// Bodies are stored as JSON (the capture layer normalizes non-JSON payloads
// into JSON strings), so the record serializes directly for the API.
type RequestRecord struct {
	// Seq is the insertion surrogate key, assigned by the database.
	Seq        int64           `json:"seq"`
	RequestID  string          `json:"requestId"`
	Provider   string          `json:"provider"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Request    json.RawMessage `json:"request,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	StatusCode *int            `json:"statusCode,omitempty"`
	DurationMS *int64          `json:"durationMs,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ProviderCount is one row of the per-provider request count aggregate.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int64  `json:"count"`
}

// ProviderAvgDuration is one row of the per-provider average duration
// aggregate. Records with no recorded duration are excluded.
type ProviderAvgDuration struct {
	Provider string  `json:"provider"`
	AvgMS    float64 `json:"avg_ms"`
}

// RequestStats aggregates the telemetry table for the stats endpoint.
type RequestStats struct {
	Total       int64                 `json:"total"`
	ByProvider  []ProviderCount       `json:"byProvider"`
	AvgDuration []ProviderAvgDuration `json:"avgDurationByProvider"`
}

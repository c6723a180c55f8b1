package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TestResult is the structured answer of a connectivity probe. Probe
// failures are data, not errors: callers always get a result, and a failed
// upstream never surfaces as a system fault.
type TestResult struct {
	Success   bool   `json:"success"`
	LatencyMS *int64 `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Prober performs a lightweight connectivity check against a provider
// endpoint. Implementations must be fast and side-effect free.
type Prober interface {
	Probe(ctx context.Context, baseURL string) error
}

// HTTPProber probes with a plain GET, accepting any response that is not a
// server error. Local inference servers answer their root path; the probe
// validates reachability, not API compatibility.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates an HTTPProber. A nil client gets a 5s timeout default.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProber{client: client}
}

// Probe performs the HTTP connectivity check.
func (p *HTTPProber) Probe(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// Test probes the provider's configured endpoint and reports the outcome.
// It never mutates stored state. The provider row is snapshotted up front:
// a concurrent Delete does not abort an in-flight test, the stale snapshot's
// result is still returned (testing is read-only and non-authoritative).
func (r *Registry) Test(ctx context.Context, id string) (TestResult, error) {
	provider, err := r.Get(ctx, id)
	if err != nil {
		return TestResult{}, err
	}

	baseURL := provider.BaseURL()
	if baseURL == "" {
		return TestResult{Success: false, Error: "no base_url configured"}, nil
	}

	start := r.now()
	probeErr := r.prober.Probe(ctx, baseURL)
	latency := time.Since(start).Milliseconds()

	if probeErr != nil {
		return TestResult{Success: false, LatencyMS: &latency, Error: probeErr.Error()}, nil
	}
	return TestResult{Success: true, LatencyMS: &latency}, nil
}

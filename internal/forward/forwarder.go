package forward

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/llm-router/internal/api"
	"github.com/omarluq/llm-router/internal/capture"
	"github.com/omarluq/llm-router/internal/metrics"
	"github.com/omarluq/llm-router/internal/registry"
)

// Hop-by-hop headers stripped before forwarding (RFC 9110 section 7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder proxies requests to the active provider's base_url. The request
// and response pass through untouched apart from transport headers and
// credential attachment; payload shapes are never inspected.
type Forwarder struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	client   *http.Client
	timeout  mo.Option[time.Duration]
	breakers *breakerSet
}

// Options configures a Forwarder.
type Options struct {
	// Client is the outbound HTTP client. Nil uses a client without a
	// global timeout so streaming responses are not cut off.
	Client *http.Client

	// Timeout bounds a single upstream exchange. None means unbounded.
	Timeout mo.Option[time.Duration]

	// Logger receives circuit breaker state transitions.
	Logger *zerolog.Logger
}

// New creates a Forwarder routing through reg.
func New(reg *registry.Registry, m *metrics.Metrics, opts Options) *Forwarder {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Forwarder{
		registry: reg,
		metrics:  m,
		client:   client,
		timeout:  opts.Timeout,
		breakers: newBreakerSet(opts.Logger),
	}
}

// ServeHTTP resolves the active provider and relays the request to it.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	activeID := f.registry.ActiveProviderID(ctx)

	provider, err := f.registry.Get(ctx, activeID)
	if err != nil {
		f.reject(ctx, w, activeID, http.StatusBadGateway, "no_active_provider",
			"active provider is not registered: "+activeID)
		return
	}

	if !provider.Enabled {
		f.reject(ctx, w, provider.ID, http.StatusServiceUnavailable, "provider_disabled",
			"active provider is disabled: "+provider.ID)
		return
	}

	baseURL := provider.BaseURL()
	if baseURL == "" {
		f.reject(ctx, w, provider.ID, http.StatusBadGateway, "provider_misconfigured",
			"active provider has no base_url configured: "+provider.ID)
		return
	}

	done, err := f.breakers.allow(provider.ID)
	if err != nil {
		f.reject(ctx, w, provider.ID, http.StatusServiceUnavailable, "upstream_unavailable",
			"provider circuit open: "+provider.ID)
		return
	}

	start := time.Now()
	statusCode, upstreamErr := f.relay(w, r, provider, baseURL)
	done(upstreamErr)

	f.metrics.ObserveRequest(provider.ID, statusCode, time.Since(start))

	if upstreamErr != nil {
		logger.Warn().Err(upstreamErr).
			Str("provider", provider.ID).
			Msg("upstream exchange failed")
	}
}

// relay performs one upstream exchange. The returned error feeds the circuit
// breaker: transport failures and 5xx responses count as failures, everything
// else (4xx included) is the upstream working as designed.
func (f *Forwarder) relay(
	w http.ResponseWriter,
	r *http.Request,
	provider registry.Provider,
	baseURL string,
) (int, error) {
	ctx := r.Context()
	if timeout, ok := f.timeout.Get(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := strings.TrimRight(baseURL, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	outbound, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		f.captureError(ctx, err)
		api.WriteError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return http.StatusBadGateway, err
	}

	copyHeaders(outbound.Header, r.Header)
	f.attachCredentials(ctx, outbound, provider)

	resp, err := f.client.Do(outbound)
	if err != nil {
		f.captureError(ctx, err)
		api.WriteError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return http.StatusBadGateway, err
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if err := streamBody(w, resp.Body, isEventStream(resp.Header)); err != nil {
		// Headers are already out; nothing to write back. The capture
		// record still carries the error.
		f.captureError(ctx, err)
		return resp.StatusCode, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, &upstreamStatusError{status: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

// attachCredentials adds stored auth material for providers that need it.
// Local servers are reached unauthenticated.
func (f *Forwarder) attachCredentials(ctx context.Context, outbound *http.Request, provider registry.Provider) {
	if provider.Type == registry.TypeLocalServer {
		return
	}

	token, cookie, ok := f.registry.Credentials(ctx, provider.ID)
	if !ok {
		return
	}

	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(outbound)
	}
	if cookie != "" {
		outbound.Header.Set("Cookie", cookie)
	}
}

func (f *Forwarder) reject(ctx context.Context, w http.ResponseWriter, provider string, status int, errType, message string) {
	f.captureError(ctx, message)
	f.metrics.ObserveRequest(provider, status, 0)
	api.WriteError(w, status, errType, message)
}

// captureError records an upstream failure on the request's capture handle,
// when one is present.
func (f *Forwarder) captureError(ctx context.Context, cause any) {
	handle := capture.HandleFromContext(ctx)
	if handle == nil {
		return
	}
	switch v := cause.(type) {
	case error:
		handle.SetError(v.Error())
	case string:
		handle.SetError(v)
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	for _, header := range hopByHopHeaders {
		dst.Del(header)
	}
}

const contentTypeSSE = "text/event-stream"

// isEventStream reports whether the upstream reply is a server-sent event
// stream.
func isEventStream(header http.Header) bool {
	return strings.HasPrefix(header.Get("Content-Type"), contentTypeSSE)
}

// streamBody copies the upstream body to the client. Event streams are
// flushed after each chunk so events arrive as they are produced; buffered
// replies flush once when the handler returns, which keeps the telemetry
// layer able to capture their bodies.
func streamBody(w http.ResponseWriter, body io.Reader, flushEach bool) error {
	var flusher http.Flusher
	if flushEach {
		flusher, _ = w.(http.Flusher)
	}
	buf := make([]byte, 32<<10)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

type upstreamStatusError struct {
	status int
}

func (e *upstreamStatusError) Error() string {
	return "upstream returned " + http.StatusText(e.status)
}

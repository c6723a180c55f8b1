package api

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/omarluq/llm-router/internal/cache"
	"github.com/omarluq/llm-router/internal/capture"
	"github.com/omarluq/llm-router/internal/config"
	"github.com/omarluq/llm-router/internal/metrics"
	"github.com/omarluq/llm-router/internal/registry"
	"github.com/omarluq/llm-router/internal/settings"
	"github.com/omarluq/llm-router/internal/version"
)

// Deps carries everything the router needs.
type Deps struct {
	Config    *config.Config
	Settings  *settings.Resolver
	Registry  *registry.Registry
	Telemetry TelemetryStore
	Cache     cache.Cache
	Metrics   *metrics.Metrics
	Capture   *capture.Capture
	Forwarder http.Handler
}

// NewRouter builds the full HTTP handler: admin routes under /v1, health and
// introspection endpoints, Prometheus metrics, and a catch-all that relays
// everything else to the active provider.
//
// Request ID, logging, and telemetry capture wrap the whole mux so every
// inbound request gets one record (the capture denylist skips health,
// root, and metrics). Admin routes add rate limiting, body caps, and auth;
// the forward path adds the concurrency limiter instead.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	admin := adminChain(deps.Config)

	settingsHandler := NewSettingsHandler(deps.Settings)
	mux.Handle("GET /v1/settings", admin(http.HandlerFunc(settingsHandler.GetAll)))
	mux.Handle("PUT /v1/settings", admin(http.HandlerFunc(settingsHandler.BulkSet)))
	mux.Handle("GET /v1/settings/{key}", admin(http.HandlerFunc(settingsHandler.Get)))
	mux.Handle("PUT /v1/settings/{key}", admin(http.HandlerFunc(settingsHandler.Set)))
	mux.Handle("DELETE /v1/settings/{key}", admin(http.HandlerFunc(settingsHandler.Delete)))

	providersHandler := NewProvidersHandler(deps.Registry)
	mux.Handle("GET /v1/providers", admin(http.HandlerFunc(providersHandler.List)))
	mux.Handle("POST /v1/providers", admin(http.HandlerFunc(providersHandler.Create)))
	mux.Handle("GET /v1/providers/active", admin(http.HandlerFunc(providersHandler.Active)))
	mux.Handle("GET /v1/providers/{id}", admin(http.HandlerFunc(providersHandler.Get)))
	mux.Handle("PUT /v1/providers/{id}", admin(http.HandlerFunc(providersHandler.Update)))
	mux.Handle("DELETE /v1/providers/{id}", admin(http.HandlerFunc(providersHandler.Delete)))
	mux.Handle("POST /v1/providers/{id}/enable", admin(http.HandlerFunc(providersHandler.Enable)))
	mux.Handle("POST /v1/providers/{id}/disable", admin(http.HandlerFunc(providersHandler.Disable)))
	mux.Handle("POST /v1/providers/{id}/test", admin(http.HandlerFunc(providersHandler.Test)))
	mux.Handle("POST /v1/providers/{id}/reload", admin(http.HandlerFunc(providersHandler.Reload)))
	mux.Handle("POST /v1/providers/{id}/credentials", admin(http.HandlerFunc(providersHandler.SetCredentials)))

	statsTTL := deps.Config.Telemetry.GetStatsTTL()
	telemetryHandler := NewTelemetryHandler(deps.Telemetry, deps.Cache, statsTTL)
	mux.Handle("GET /v1/requests", admin(http.HandlerFunc(telemetryHandler.Recent)))
	mux.Handle("GET /v1/requests/stats", admin(http.HandlerFunc(telemetryHandler.Stats)))

	mux.Handle("GET /metrics", deps.Metrics.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Health check write error is non-critical
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":           "llm-router",
			"version":        version.Version,
			"activeProvider": deps.Registry.ActiveProviderID(r.Context()),
		})
	}))

	// Everything else relays to the active provider.
	mux.Handle("/", forwardChain(deps)(deps.Forwarder))

	return outerChain(deps)(mux)
}

// outerChain wraps the whole mux: request ID first so every later log line
// and telemetry record carries it, then logging, then capture.
func outerChain(deps Deps) func(http.Handler) http.Handler {
	options := func(ctx context.Context) capture.Options {
		return capture.Options{
			LogRequestBody:  boolSetting(ctx, deps.Settings, "logging.logRequests"),
			LogResponseBody: boolSetting(ctx, deps.Settings, "logging.logResponses"),
		}
	}

	return func(next http.Handler) http.Handler {
		handler := capture.Middleware(deps.Capture, GetRequestID, options)(next)
		handler = LoggingMiddleware()(handler)
		handler = RequestIDMiddleware()(handler)
		return handler
	}
}

func adminChain(cfg *config.Config) func(http.Handler) http.Handler {
	var limiter *rate.Limiter
	if cfg.Server.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit.RPS), cfg.Server.RateLimit.Burst)
	}

	return func(next http.Handler) http.Handler {
		handler := next
		if cfg.Server.APIKey != "" {
			handler = AuthMiddleware(cfg.Server.APIKey)(handler)
		}
		handler = MaxBodyBytesMiddleware(cfg.Server.MaxBodyBytes)(handler)
		handler = RateLimitMiddleware(limiter)(handler)
		return handler
	}
}

func forwardChain(deps Deps) func(http.Handler) http.Handler {
	concurrency := NewConcurrencyLimiter(deps.Config.Server.MaxConcurrent)

	return func(next http.Handler) http.Handler {
		handler := MaxBodyBytesMiddleware(deps.Config.Server.MaxBodyBytes)(next)
		handler = concurrency.Middleware()(handler)
		return handler
	}
}

func boolSetting(ctx context.Context, resolver *settings.Resolver, key string) bool {
	value, _, err := resolver.Get(ctx, key)
	if err != nil {
		return true
	}
	enabled, ok := value.(bool)
	if !ok {
		return true
	}
	return enabled
}

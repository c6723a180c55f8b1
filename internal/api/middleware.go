package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type ctxKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ctxKey = "request_id"

// AddRequestID attaches a request ID to the context and to the zerolog
// context. An empty requestID generates a fresh UUID.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, RequestIDKey, requestID)

	logger := log.Ctx(ctx).With().Str("request_id", requestID).Logger()

	return logger.WithContext(ctx)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}

// RequestIDMiddleware adds X-Request-ID header and logger with request ID to context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			if requestID == "" {
				requestID = GetRequestID(ctx)
			}

			writer.Header().Set("X-Request-ID", requestID)

			request = request.WithContext(ctx)

			next.ServeHTTP(writer, request)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware logs each request with method, path, status and duration.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: writer,
				statusCode:     http.StatusOK,
			}

			requestID := GetRequestID(request.Context())
			shortID := requestID
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}

			logger := zerolog.Ctx(request.Context()).With().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Str("req_id", shortID).
				Logger()

			logger.Info().Msgf("%s %s", request.Method, request.URL.Path)

			next.ServeHTTP(wrapped, request)

			duration := formatDuration(time.Since(start))
			completion := statusSymbol(wrapped.statusCode) + " " +
				http.StatusText(wrapped.statusCode) + " (" + duration + ")"

			completionLogger := logger.With().
				Int("status", wrapped.statusCode).
				Str("duration", duration).
				Logger()

			switch {
			case wrapped.statusCode >= 500:
				completionLogger.Error().Msg(completion)
			case wrapped.statusCode >= 400:
				completionLogger.Warn().Msg(completion)
			default:
				completionLogger.Info().Msg(completion)
			}
		})
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration formats duration in a human-readable form with microsecond
// precision. Uses dynamic units so very fast requests show in µs while longer
// ones show in ms/s.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	duration = duration.Round(time.Microsecond)
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration)/float64(time.Millisecond))
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	default:
		return duration.Truncate(time.Second).String()
	}
}

// AuthMiddleware creates middleware that validates the x-api-key header.
// The expected key is pre-hashed at creation time and compared with
// subtle.ConstantTimeCompare to prevent timing attacks.
func AuthMiddleware(expectedAPIKey string) func(http.Handler) http.Handler {
	expectedHash := sha256.Sum256([]byte(expectedAPIKey))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			providedKey := request.Header.Get("x-api-key")

			if providedKey == "" {
				failAuth(writer, request, "missing x-api-key header")
				return
			}

			providedHash := sha256.Sum256([]byte(providedKey))

			if subtle.ConstantTimeCompare(providedHash[:], expectedHash[:]) != 1 {
				failAuth(writer, request, "invalid x-api-key")
				return
			}

			zerolog.Ctx(request.Context()).Debug().Msg("authentication succeeded")
			next.ServeHTTP(writer, request)
		})
	}
}

func failAuth(writer http.ResponseWriter, request *http.Request, reason string) {
	zerolog.Ctx(request.Context()).Warn().Msg("authentication failed: " + reason)
	WriteError(writer, http.StatusUnauthorized, "authentication_error", reason)
}

// RateLimitMiddleware throttles requests with a shared token bucket.
// A nil limiter passes everything through.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !limiter.Allow() {
				writer.Header().Set("Retry-After", "1")
				WriteError(writer, http.StatusTooManyRequests, "rate_limit_error",
					"Too many requests. Please retry after the specified time.")
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// MaxBodyBytesMiddleware caps request body size. Oversized bodies surface as
// http.MaxBytesError when handlers read them.
func MaxBodyBytesMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)
			next.ServeHTTP(writer, request)
		})
	}
}

// ConcurrencyLimiter enforces a global maximum number of concurrent requests.
// It uses an atomic counter with a configurable limit that supports hot-reload.
// When the limit is reached, new requests receive 503 Service Unavailable.
type ConcurrencyLimiter struct {
	limit   atomic.Int64
	current atomic.Int64
}

// NewConcurrencyLimiter creates a new concurrency limiter with the given max limit.
// A limit of 0 or negative means unlimited.
func NewConcurrencyLimiter(maxLimit int64) *ConcurrencyLimiter {
	limiter := &ConcurrencyLimiter{}
	limiter.limit.Store(maxLimit)
	return limiter
}

// SetLimit updates the concurrency limit for hot-reload support.
func (l *ConcurrencyLimiter) SetLimit(maxLimit int64) {
	l.limit.Store(maxLimit)
}

// CurrentInFlight returns the current number of in-flight requests.
func (l *ConcurrencyLimiter) CurrentInFlight() int64 {
	return l.current.Load()
}

// TryAcquire attempts to acquire a slot for a request.
// Returns true if the request can proceed, false if the limit is reached.
func (l *ConcurrencyLimiter) TryAcquire() bool {
	limit := l.limit.Load()
	if limit <= 0 {
		l.current.Add(1)
		return true
	}

	for {
		current := l.current.Load()
		if current >= limit {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release releases a slot after request completion.
// Must be called after a successful TryAcquire.
func (l *ConcurrencyLimiter) Release() {
	l.current.Add(-1)
}

// Middleware wraps a handler with the concurrency limit.
func (l *ConcurrencyLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !l.TryAcquire() {
				zerolog.Ctx(request.Context()).Warn().
					Int64("in_flight", l.CurrentInFlight()).
					Msg("concurrency limit reached")
				WriteError(writer, http.StatusServiceUnavailable, "overloaded_error",
					"Too many concurrent requests")
				return
			}
			defer l.Release()

			next.ServeHTTP(writer, request)
		})
	}
}

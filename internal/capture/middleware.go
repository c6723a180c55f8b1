package capture

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

// maxBodyCapture bounds how much of a request or response body is retained
// for telemetry. Bodies past the cap are treated as streamed: the exchange
// is still logged, just without the body.
const maxBodyCapture = 64 << 10

type ctxKey struct{}

// HandleFromContext returns the capture handle attached by Middleware,
// or nil outside of it. Handlers use this to attach upstream errors or to
// fire a terminal trigger explicitly.
func HandleFromContext(ctx context.Context) *Handle {
	handle, _ := ctx.Value(ctxKey{}).(*Handle)
	return handle
}

// Options controls which bodies are persisted. Resolved per request so
// settings changes apply without restart.
type Options struct {
	LogRequestBody  bool
	LogResponseBody bool
}

// OptionsProvider returns the current capture options.
type OptionsProvider func(ctx context.Context) Options

// RequestIDFunc extracts the request id placed in the context by the
// request-id middleware.
type RequestIDFunc func(ctx context.Context) string

// Middleware wraps every inbound request in a capture handle and guarantees
// a terminal trigger fires: an explicit JSON reply, a raw reply, or the
// connection finishing (including client aborts) with nothing emitted.
// Exactly one telemetry record results unless the path is denylisted.
func Middleware(c *Capture, requestID RequestIDFunc, options OptionsProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			opts := Options{LogRequestBody: true, LogResponseBody: true}
			if options != nil {
				opts = options(request.Context())
			}

			var requestBody []byte
			if opts.LogRequestBody {
				requestBody = peekBody(request)
			}

			handle := c.Begin(request.Context(), requestID(request.Context()),
				request.Method, request.URL.Path, requestBody)

			ctx := context.WithValue(request.Context(), ctxKey{}, handle)
			request = request.WithContext(ctx)

			wrapped := &captureWriter{
				ResponseWriter: writer,
				statusCode:     http.StatusOK,
				capture:        opts.LogResponseBody,
			}

			next.ServeHTTP(wrapped, request)

			// ServeHTTP returning is the connection-finish event: it covers
			// normal completion, direct streaming, and client aborts. The
			// handle's latch makes this a no-op when a body trigger already
			// fired.
			wrapped.finish(handle)
		})
	}
}

// peekBody reads up to maxBodyCapture bytes of the request body for
// telemetry and restores the full stream for downstream handlers.
func peekBody(request *http.Request) []byte {
	if request.Body == nil {
		return nil
	}

	peeked, err := io.ReadAll(io.LimitReader(request.Body, maxBodyCapture))
	if err != nil || len(peeked) == 0 {
		return nil
	}

	request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(peeked), request.Body))
	return peeked
}

// captureWriter wraps http.ResponseWriter and buffers the response body
// (bounded) so the right terminal trigger can fire when the handler returns.
type captureWriter struct {
	http.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wrote       bool
	overflowed  bool
	streamed    bool
	capture     bool
	headersSent bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.statusCode = code
	w.headersSent = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.wrote = true
	if w.capture && !w.overflowed {
		if w.body.Len()+len(data) > maxBodyCapture {
			w.overflowed = true
			w.body.Reset()
		} else {
			w.body.Write(data)
		}
	}
	return w.ResponseWriter.Write(data)
}

// Flush marks the response as streamed; streamed exchanges are logged
// without a response body.
func (w *captureWriter) Flush() {
	w.streamed = true
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *captureWriter) isJSON() bool {
	contentType := w.Header().Get("Content-Type")
	return strings.HasPrefix(contentType, "application/json")
}

func (w *captureWriter) finish(handle *Handle) {
	switch {
	case !w.wrote:
		handle.OnConnectionFinished(w.statusCode)
	case w.streamed || w.overflowed || !w.capture:
		handle.OnConnectionFinished(w.statusCode)
	case w.isJSON():
		handle.OnExplicitBody(w.body.Bytes(), w.statusCode)
	default:
		handle.OnRawBody(w.body.Bytes(), w.statusCode)
	}
}

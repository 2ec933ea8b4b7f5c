package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
)

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush keeps SSE streams working through the wrapper.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetrics records http_requests_total and http_request_duration_seconds
// for every request. A nil or disabled provider makes it a pass-through.
func HTTPMetrics(provider *instrumentation.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil || !provider.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newResponseWriter(w)
			next.ServeHTTP(rec, r)

			provider.Metrics().RecordHTTPRequest(r.Context(), r.Method, normalizePath(r.URL.Path), rec.statusCode, time.Since(start))
		})
	}
}

// knownRoutes are the only paths the server mounts. Anything else is a scan
// or a typo and is folded into "other" so scanners cannot grow the label set.
var knownRoutes = map[string]struct{}{
	"/mcp":              {},
	"/sse":              {},
	"/message":          {},
	"/healthz":          {},
	"/healthz/detailed": {},
	"/readyz":           {},
	"/metrics":          {},
}

// normalizePath maps a request path onto a bounded label value.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	if strings.HasPrefix(path, "/mcp/") {
		return "/mcp/:session"
	}
	return "other"
}

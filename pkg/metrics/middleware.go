package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap returns the original ResponseWriter for http.ResponseController.
func (w *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// NormalizePath replaces dynamic path segments with placeholders to bound
// metric cardinality.
func NormalizePath(path string) string {
	return uuidPattern.ReplaceAllString(path, "{id}")
}

// HTTPMiddleware returns middleware that records request metrics.
func HTTPMiddleware(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := NormalizePath(r.URL.Path)
			wrapped := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(wrapped, r)

			registry.RecordHTTPRequest(r.Method, path, strconv.Itoa(wrapped.status), time.Since(start))
		})
	}
}

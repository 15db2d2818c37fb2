// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to
// prevent cardinality explosion in metrics. This maps paths like
// /projects/123/locations to /projects/{id}/locations.
func normalizePath(path string) string {
	staticRoutes := map[string]bool{
		"/":         true,
		"/projects": true,
		"/healthz":  true,
		"/readyz":   true,
		"/metrics":  true,
	}

	if staticRoutes[path] {
		return path
	}

	if strings.HasPrefix(path, "/projects/") {
		parts := strings.Split(path, "/")
		// parts[0] is "", parts[1] is "projects", parts[2] is the ID
		if len(parts) >= 3 && parts[2] != "" {
			switch {
			case len(parts) == 3:
				return "/projects/{id}"
			case len(parts) == 4 && (parts[3] == "locations" || parts[3] == "progress" || parts[3] == "refresh"):
				return "/projects/{id}/" + parts[3]
			case len(parts) == 5 && parts[3] == "signals" &&
				(parts[4] == "position" || parts[4] == "scan" || parts[4] == "ws"):
				return "/projects/{id}/signals/" + parts[4]
			}
		}
	}

	if strings.HasPrefix(path, "/locations/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/locations/{id}"
		}
	}

	// Fallback: return as-is so new routes don't silently lose metrics.
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, response sizes, and request counts. Health check
// endpoints (/healthz, /readyz) are excluded to avoid noise.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				mrw.size,
			)
		})
	}
}

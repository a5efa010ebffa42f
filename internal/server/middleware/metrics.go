package middleware

import (
	"net/http"
	"time"

	"github.com/leslieo2/go-hello/internal/observability"
)

// MetricsMiddleware records request counts, latency and sizes. endpoint maps
// the request path to a bounded label value.
func MetricsMiddleware(metrics *observability.Metrics, endpoint func(path string) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.ActiveConnections.Inc()
			defer metrics.ActiveConnections.Dec()

			wrapped := NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}
			metrics.RecordRequest(r.Method, endpoint(r.URL.Path), wrapped.Status(), time.Since(start), requestSize, wrapped.BytesWritten())
		})
	}
}

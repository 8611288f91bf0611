package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fraudscope/transaction-scoring-backend/internal/api/rest"
)

// Prometheus metric definitions for the scoring API

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fds",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fds",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "path"},
	)

	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fds",
			Subsystem: "scoring",
			Name:      "verdicts_total",
			Help:      "Total number of scoring verdicts by outcome",
		},
		[]string{"verdict"},
	)

	streamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fds",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected verdict stream clients",
		},
	)
)

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// HTTPMetricsMiddleware records request count and latency per route.
// Only the route pattern is used as a label; raw paths with entity IDs
// would explode cardinality.
func HTTPMetricsMiddleware() rest.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := routeLabel(r.URL.Path)
			httpRequestsTotal.WithLabelValues(r.Method, path, statusCodeClass(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func routeLabel(path string) string {
	switch {
	case path == "/predict" || path == "/api/v1/score":
		return "score"
	case path == "/api/v1/stream":
		return "stream"
	case path == "/metrics":
		return "metrics"
	case path == "/health" || path == "/healthz" || path == "/ready":
		return "health"
	default:
		if len(path) > len("/api/v1/stats/") && path[:len("/api/v1/stats/")] == "/api/v1/stats/" {
			return "stats"
		}
		return "other"
	}
}

// statusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx)
func statusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// RecordVerdict counts a scoring outcome
func RecordVerdict(verdict string) {
	verdictsTotal.WithLabelValues(verdict).Inc()
}

// UpdateStreamClients updates the connected subscriber gauge
func UpdateStreamClients(count float64) {
	streamClients.Set(count)
}

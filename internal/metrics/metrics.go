// Package metrics provides Prometheus metrics for the EML processing
// pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emlreader",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "emlreader",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "emlreader",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

var (
	// EmailsProcessed counts parsed emails by ingestion source.
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emlreader",
			Subsystem: "processor",
			Name:      "emails_processed_total",
			Help:      "Total number of EML messages successfully processed by source",
		},
		[]string{"source"},
	)

	// ParseFailures counts unparseable inputs by failure stage.
	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emlreader",
			Subsystem: "processor",
			Name:      "parse_failures_total",
			Help:      "Total number of EML parse failures by stage",
		},
		[]string{"stage"},
	)

	// ProcessingDuration measures parse+classify+ingest duration.
	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "emlreader",
			Subsystem: "processor",
			Name:      "processing_duration_seconds",
			Help:      "Duration of parsing, classification and registry ingestion",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// ThreadsActive tracks the number of threads held by the registry.
	ThreadsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "emlreader",
			Subsystem: "registry",
			Name:      "threads_active",
			Help:      "Number of threads currently held in the in-memory registry",
		},
	)

	// MessagesIngested counts registry ingestions.
	MessagesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "emlreader",
			Subsystem: "registry",
			Name:      "messages_ingested_total",
			Help:      "Total number of messages ingested into the thread registry",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		path := getRoutePattern(r)

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// getRoutePattern returns the chi route pattern, falling back to the URL
// path so unmatched requests still get a label.
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

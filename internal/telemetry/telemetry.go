// Package telemetry exposes the Prometheus metrics for the resolution
// pipeline and the delivery path, plus the HTTP middleware for the ops server.
package telemetry

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
	resolverAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "declutter_resolver_attempts_total",
			Help: "Tier attempts, labeled by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	resolveDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "declutter_resolve_duration_seconds",
			Help:    "End-to-end resolve latency, labeled by final tier.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tier"},
	)

	deliveryTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "declutter_delivery_tasks_total",
			Help: "Delivery tasks finished, labeled by status.",
		},
		[]string{"status"},
	)

	deliveryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "declutter_delivery_queue_depth",
			Help: "Delivery tasks waiting across all destinations.",
		},
	)

	deliveryPacingSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "declutter_delivery_pacing_seconds",
			Help:    "Time spent waiting on the per-destination pacing delay.",
			Buckets: []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "declutter_publish_total",
			Help: "Webhook publishes, labeled by status.",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "declutter_http_requests_total",
			Help: "Ops server requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "declutter_http_request_duration_seconds",
			Help:    "Ops server request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// ObserveTierAttempt records one resolver tier attempt.
func ObserveTierAttempt(tier, outcome string) {
	resolverAttemptsTotal.WithLabelValues(tier, outcome).Inc()
}

// ObserveResolve records a completed resolve and the tier that answered.
func ObserveResolve(tier string, duration time.Duration) {
	resolveDurationSeconds.WithLabelValues(tier).Observe(duration.Seconds())
}

// ObserveDeliveryTask records a finished delivery task.
func ObserveDeliveryTask(status string) {
	deliveryTasksTotal.WithLabelValues(status).Inc()
}

// QueueDepthAdd moves the pending-task gauge.
func QueueDepthAdd(delta int) {
	deliveryQueueDepth.Add(float64(delta))
}

// ObservePacingDelay records time spent honoring the pacing interval.
func ObservePacingDelay(d time.Duration) {
	deliveryPacingSeconds.Observe(d.Seconds())
}

// ObservePublish records a webhook publish attempt.
func ObservePublish(status string) {
	publishTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records metrics for an ops server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

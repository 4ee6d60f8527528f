package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages the service's Prometheus metrics.
type Registry struct {
	config   Config
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Webhook delivery metrics
	deliveriesTotal     *prometheus.CounterVec
	deliveryDuration    *prometheus.HistogramVec
	retriesScheduled    *prometheus.CounterVec
	deliveriesExhausted *prometheus.CounterVec
}

// NewRegistry creates a metrics registry with the given configuration.
func NewRegistry(config Config) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		config:   config,
		registry: reg,
	}

	ns := config.Namespace

	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status_code"},
	)

	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	r.deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total number of webhook delivery attempts",
		},
		[]string{"event", "outcome"},
	)

	r.deliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "webhook",
			Name:      "delivery_duration_seconds",
			Help:      "Webhook delivery attempt duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"event"},
	)

	r.retriesScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "webhook",
			Name:      "retries_scheduled_total",
			Help:      "Total number of delivery retries scheduled",
		},
		[]string{"event"},
	)

	r.deliveriesExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "webhook",
			Name:      "deliveries_exhausted_total",
			Help:      "Total number of deliveries that exhausted all attempts",
		},
		[]string{"event"},
	)

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.deliveriesTotal,
		r.deliveryDuration,
		r.retriesScheduled,
		r.deliveriesExhausted,
	)

	if config.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if config.EnableRuntimeMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records one completed HTTP request.
func (r *Registry) RecordHTTPRequest(method, path string, statusCode string, duration time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// DeliveryCompleted records one webhook delivery attempt.
func (r *Registry) DeliveryCompleted(event, outcome string, duration time.Duration) {
	r.deliveriesTotal.WithLabelValues(event, outcome).Inc()
	r.deliveryDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// RetryScheduled records one scheduled retry.
func (r *Registry) RetryScheduled(event string) {
	r.retriesScheduled.WithLabelValues(event).Inc()
}

// DeliveryExhausted records one delivery that ran out of attempts.
func (r *Registry) DeliveryExhausted(event string) {
	r.deliveriesExhausted.WithLabelValues(event).Inc()
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter holds the Prometheus collectors for load runs on a private
// registry, so several exporters can live in one process.
type Exporter struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	activeUsers *prometheus.GaugeVec
}

// NewExporter creates an exporter and registers its collectors
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadgen_requests_total",
				Help: "Requests issued by virtual users",
			},
			[]string{"task", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadgen_request_duration_seconds",
				Help:    "Request round trip time observed by virtual users",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		activeUsers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loadgen_active_users",
				Help: "Virtual users currently cycling",
			},
			[]string{"profile"},
		),
	}
	e.registry.MustRegister(e.requests, e.duration, e.activeUsers)
	return e
}

// Registry returns the private registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) observeRequest(task, status string, latency time.Duration) {
	e.requests.WithLabelValues(task, status).Inc()
	e.duration.WithLabelValues(task).Observe(latency.Seconds())
}

package target

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serviceMetrics holds the service's collectors on a private registry so
// several servers can coexist in one process.
type serviceMetrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	anomalies        prometheus.Counter
	metricsProcessed prometheus.Counter
	zscores          prometheus.Histogram
	rollingAverages  prometheus.Histogram
}

func newServiceMetrics() *serviceMetrics {
	m := &serviceMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_requests_processed_total",
			Help: "Total number of processed requests",
		}, []string{"endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "app_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_anomalies_detected_total",
			Help: "Total number of anomalies detected",
		}),
		metricsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_metrics_processed_total",
			Help: "Total number of metric samples processed",
		}),
		zscores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "app_zscore_values",
			Help:    "Observed z-scores of the latest device value",
			Buckets: prometheus.LinearBuckets(-10, 1, 21),
		}),
		rollingAverages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "app_rolling_average_values",
			Help:    "Observed rolling RPS averages",
			Buckets: prometheus.LinearBuckets(0, 100, 11),
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.anomalies,
		m.metricsProcessed,
		m.zscores,
		m.rollingAverages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *serviceMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

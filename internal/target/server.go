package target

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

const Version = "1.0.0"

// Server exposes the analyzer over HTTP
type Server struct {
	analyzer *Analyzer
	metrics  *serviceMetrics
	router   *mux.Router
	clock    utils.Clock
	started  time.Time
	log      *slog.Logger
}

type ServerOption func(*Server)

func WithServerClock(c utils.Clock) ServerOption {
	return func(s *Server) { s.clock = c }
}

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

func NewServer(analyzer *Analyzer, opts ...ServerOption) *Server {
	s := &Server{
		analyzer: analyzer,
		metrics:  newServiceMetrics(),
		router:   mux.NewRouter(),
		clock:    utils.SystemClock{},
		log:      logger.Component("target"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.clock.Now()
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/metrics", s.handleMetric).Methods(http.MethodPost).Name("post_metrics")
	s.router.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet).Name("get_analytics")
	s.router.HandleFunc("/analytics/{device_id}", s.handleDeviceAnalytics).Methods(http.MethodGet).Name("get_device_analytics")
	s.router.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet).Name("get_summary")
	s.router.HandleFunc("/cache-metrics", s.handleCacheMetrics).Methods(http.MethodGet).Name("get_cache_metrics")
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name("health")
	s.router.HandleFunc("/ready", s.handleProbe("ready")).Methods(http.MethodGet).Name("ready")
	s.router.HandleFunc("/live", s.handleProbe("alive")).Methods(http.MethodGet).Name("live")
	s.router.Handle("/prometheus", s.metrics.handler()).Methods(http.MethodGet)

	s.router.Use(s.loggingMiddleware, s.instrumentMiddleware)
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	var sample models.MetricSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		s.log.Debug("failed to decode metric", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = s.clock.Now().Unix()
	}

	result, err := s.analyzer.Process(r.Context(), sample)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.metrics.metricsProcessed.Inc()
	s.metrics.zscores.Observe(result.ZScore)
	s.metrics.rollingAverages.Observe(result.RollingAverage)
	if result.IsAnomaly {
		s.metrics.anomalies.Inc()
		s.log.Info("anomaly detected",
			"device_id", sample.DeviceID,
			"current", result.CurrentValue,
			"z_score", result.ZScore)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "processed",
		"device_id":    sample.DeviceID,
		"timestamp":    sample.Timestamp,
		"analytics":    result,
		"processed_at": s.clock.Now().UTC(),
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Summary())
}

func (s *Server) handleDeviceAnalytics(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	result, err := s.analyzer.Device(r.Context(), deviceID)
	if err != nil {
		s.log.Error("failed to get analytics", "device_id", deviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get analytics")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.analyzer.Summary()
	if cm, err := s.analyzer.Cache().Metrics(r.Context()); err == nil {
		summary.Cache = &cm
	} else {
		s.log.Warn("cache metrics unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCacheMetrics(w http.ResponseWriter, r *http.Request) {
	cm, err := s.analyzer.Cache().Metrics(r.Context())
	if err != nil {
		s.log.Error("failed to get cache metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get cache metrics")
		return
	}
	writeJSON(w, http.StatusOK, cm)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339),
		Version:   Version,
		Uptime:    utils.FormatDuration(now.Sub(s.started)),
	})
}

func (s *Server) handleProbe(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
			"remote_addr", r.RemoteAddr)
	})
}

func (s *Server) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil || route.GetName() == "" {
			// /prometheus is not instrumented
			next.ServeHTTP(w, r)
			return
		}
		endpoint := route.GetName()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		s.metrics.requests.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

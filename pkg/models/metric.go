package models

import (
	"errors"
	"time"
)

// MetricSample is one device reading as posted to POST /metrics.
// Timestamp is unix seconds.
type MetricSample struct {
	DeviceID  string  `json:"device_id"`
	Timestamp int64   `json:"timestamp"`
	CPU       float64 `json:"cpu"`
	Memory    float64 `json:"memory"`
	RPS       float64 `json:"rps"`
	Network   float64 `json:"network"`
}

var (
	ErrMissingDeviceID = errors.New("device_id is required")
	ErrNegativeRPS     = errors.New("rps cannot be negative")
)

// Validate applies the ingestion checks the target service enforces.
func (m MetricSample) Validate() error {
	if m.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if m.RPS < 0 {
		return ErrNegativeRPS
	}
	return nil
}

// AnalyticsResult is the per-device view returned by GET /analytics/{device_id}
type AnalyticsResult struct {
	Timestamp      time.Time `json:"timestamp"`
	DeviceID       string    `json:"device_id"`
	RollingAverage float64   `json:"rolling_average"`
	StdDev         float64   `json:"std_dev"`
	ZScore         float64   `json:"z_score"`
	IsAnomaly      bool      `json:"is_anomaly"`
	CurrentValue   float64   `json:"current_value"`
	WindowLength   int       `json:"window_length"`
}

// AnalyticsSummary is the aggregate view returned by GET /analytics and GET /summary
type AnalyticsSummary struct {
	TotalDevices int           `json:"total_devices"`
	TotalMetrics int           `json:"total_metrics"`
	AnomalyCount int           `json:"anomaly_count"`
	WindowSize   int           `json:"window_size"`
	Threshold    float64       `json:"threshold"`
	Cache        *CacheMetrics `json:"cache,omitempty"`
}

// CacheMetrics is returned by GET /cache-metrics
type CacheMetrics struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Size    int64  `json:"size"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
}

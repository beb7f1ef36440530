package models

import (
	"time"
)

// RunStatus represents the status of a load run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether a run in this status can no longer change.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run represents one load run as tracked by the control daemon
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RunStats contains aggregated request statistics for a load run
type RunStats struct {
	TotalRequests      int64                 `json:"total_requests"`
	SuccessfulRequests int64                 `json:"successful_requests"`
	FailedRequests     int64                 `json:"failed_requests"`
	LatencyP50         float64               `json:"latency_p50_ms"`
	LatencyP95         float64               `json:"latency_p95_ms"`
	LatencyP99         float64               `json:"latency_p99_ms"`
	LatencyMean        float64               `json:"latency_mean_ms"`
	LatencyMin         float64               `json:"latency_min_ms"`
	LatencyMax         float64               `json:"latency_max_ms"`
	ThroughputRPS      float64               `json:"throughput_rps"`
	Duration           time.Duration         `json:"duration"`
	UsersSpawned       int64                 `json:"users_spawned"`
	ActiveUsers        int64                 `json:"active_users"`
	StatusCounts       map[string]int64      `json:"status_counts,omitempty"` // "error" for transport failures
	Tasks              map[string]*TaskStats `json:"tasks,omitempty"`
}

// TaskStats contains request statistics for a single task
type TaskStats struct {
	Task         string  `json:"task"`
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	Share        float64 `json:"share"` // fraction of all requests
	LatencyP50   float64 `json:"latency_p50_ms"`
	LatencyP95   float64 `json:"latency_p95_ms"`
	LatencyP99   float64 `json:"latency_p99_ms"`
	LatencyMean  float64 `json:"latency_mean_ms"`
	LatencyMin   float64 `json:"latency_min_ms"`
	LatencyMax   float64 `json:"latency_max_ms"`

	StatusCounts map[string]int64 `json:"status_counts,omitempty"`
}

// Aggregation represents aggregated statistics for a series of values
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

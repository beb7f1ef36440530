package target

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

const (
	DefaultWindowSize = 50
	DefaultThreshold  = 2.0
	DefaultCacheTTL   = 5 * time.Minute
	DefaultHistoryTTL = 24 * time.Hour

	cacheKeyPrefix   = "analytics:"
	historyKeyPrefix = "history:"
)

// Analyzer keeps a rolling RPS window per device and scores the latest
// value against it.
type Analyzer struct {
	mu        sync.RWMutex
	window    int
	threshold float64
	cacheTTL  time.Duration
	series    map[string][]float64
	cache     Cache
	clock     utils.Clock
}

type AnalyzerOption func(*Analyzer)

func WithWindowSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 1 {
			a.window = n
		}
	}
}

func WithThreshold(z float64) AnalyzerOption {
	return func(a *Analyzer) {
		if z > 0 {
			a.threshold = z
		}
	}
}

func WithCacheTTL(ttl time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.cacheTTL = ttl }
}

func WithAnalyzerClock(c utils.Clock) AnalyzerOption {
	return func(a *Analyzer) { a.clock = c }
}

// NewAnalyzer creates an analyzer. A nil cache falls back to a MemoryCache.
func NewAnalyzer(cache Cache, opts ...AnalyzerOption) *Analyzer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	a := &Analyzer{
		window:    DefaultWindowSize,
		threshold: DefaultThreshold,
		cacheTTL:  DefaultCacheTTL,
		series:    make(map[string][]float64),
		cache:     cache,
		clock:     utils.SystemClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) WindowSize() int { return a.window }

func (a *Analyzer) Threshold() float64 { return a.threshold }

func (a *Analyzer) Cache() Cache { return a.cache }

// Process appends the sample's RPS to its device window and returns the
// updated analytics. A cache write failure is logged and does not fail
// the ingest.
func (a *Analyzer) Process(ctx context.Context, sample models.MetricSample) (*models.AnalyticsResult, error) {
	if err := sample.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	values := append(a.series[sample.DeviceID], sample.RPS)
	if len(values) > a.window {
		values = append(values[:0:0], values[len(values)-a.window:]...)
	}
	a.series[sample.DeviceID] = values
	result := a.score(sample.DeviceID, values)
	a.mu.Unlock()

	if err := a.cache.Set(ctx, cacheKeyPrefix+sample.DeviceID, result, a.cacheTTL); err != nil {
		logger.Warn("failed to cache analytics", "device_id", sample.DeviceID, "error", err)
	}
	// last raw sample per device
	if err := a.cache.Set(ctx, historyKeyPrefix+sample.DeviceID, sample, DefaultHistoryTTL); err != nil {
		logger.Warn("failed to save history", "device_id", sample.DeviceID, "error", err)
	}
	return result, nil
}

// Device returns the analytics for one device, served from the cache when
// a fresh entry exists. An unknown device yields a zero result.
func (a *Analyzer) Device(ctx context.Context, deviceID string) (*models.AnalyticsResult, error) {
	var cached models.AnalyticsResult
	hit, err := a.cache.Get(ctx, cacheKeyPrefix+deviceID, &cached)
	if err != nil {
		logger.Warn("analytics cache read failed", "device_id", deviceID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	a.mu.RLock()
	values, ok := a.series[deviceID]
	var result *models.AnalyticsResult
	if ok {
		result = a.score(deviceID, values)
	}
	a.mu.RUnlock()

	if !ok {
		return &models.AnalyticsResult{Timestamp: a.clock.Now().UTC(), DeviceID: deviceID}, nil
	}
	if err := a.cache.Set(ctx, cacheKeyPrefix+deviceID, result, a.cacheTTL); err != nil {
		logger.Warn("failed to cache analytics", "device_id", deviceID, "error", err)
	}
	return result, nil
}

// Summary counts devices, retained samples and devices whose latest value
// is anomalous.
func (a *Analyzer) Summary() models.AnalyticsSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	anomalies, retained := 0, 0
	for id, values := range a.series {
		retained += len(values)
		if a.score(id, values).IsAnomaly {
			anomalies++
		}
	}
	return models.AnalyticsSummary{
		TotalDevices: len(a.series),
		TotalMetrics: retained,
		AnomalyCount: anomalies,
		WindowSize:   a.window,
		Threshold:    a.threshold,
	}
}

// score must be called with a.mu held
func (a *Analyzer) score(deviceID string, values []float64) *models.AnalyticsResult {
	current := values[len(values)-1]
	mean := utils.Mean(values)
	stddev := utils.SampleStdDev(values, mean)
	z := utils.ZScore(current, mean, stddev)
	return &models.AnalyticsResult{
		Timestamp:      a.clock.Now().UTC(),
		DeviceID:       deviceID,
		RollingAverage: mean,
		StdDev:         stddev,
		ZScore:         z,
		IsAnomaly:      math.Abs(z) > a.threshold,
		CurrentValue:   current,
		WindowLength:   len(values),
	}
}

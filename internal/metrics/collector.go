package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/client"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

// Collector aggregates request observations during a load run
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	endTime   time.Time

	// task name -> series
	tasks map[string]*taskSeries

	usersSpawned int64
	activeUsers  map[string]int64 // profile -> running users

	exporter *Exporter
}

type taskSeries struct {
	method    string
	route     string
	latencies []float64 // milliseconds
	errors    int64
	statuses  map[string]int64
}

// Option configures a Collector
type Option func(*Collector)

// WithExporter mirrors every observation into Prometheus collectors
func WithExporter(e *Exporter) Option {
	return func(c *Collector) { c.exporter = e }
}

// NewCollector creates a new collector
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		startTime:   time.Now(),
		tasks:       make(map[string]*taskSeries),
		activeUsers: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start marks the start of collection
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// Stop marks the end of collection
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Record stores one request observation
func (c *Collector) Record(res client.Result) {
	latencyMs := utils.TimeToMs(res.Latency)
	status := statusLabel(res)

	c.mu.Lock()
	s := c.tasks[res.Task]
	if s == nil {
		s = &taskSeries{
			method:   res.Method,
			route:    res.Route,
			statuses: make(map[string]int64),
		}
		c.tasks[res.Task] = s
	}
	s.latencies = append(s.latencies, latencyMs)
	s.statuses[status]++
	if res.Failed() {
		s.errors++
	}
	c.mu.Unlock()

	if c.exporter != nil {
		c.exporter.observeRequest(res.Task, status, res.Latency)
	}
}

// UserStarted counts a spawned user of the given profile
func (c *Collector) UserStarted(profile string) {
	c.mu.Lock()
	c.usersSpawned++
	c.activeUsers[profile]++
	c.mu.Unlock()

	if c.exporter != nil {
		c.exporter.activeUsers.WithLabelValues(profile).Inc()
	}
}

// UserStopped counts a user that left its cycle loop
func (c *Collector) UserStopped(profile string) {
	c.mu.Lock()
	if c.activeUsers[profile] > 0 {
		c.activeUsers[profile]--
	}
	c.mu.Unlock()

	if c.exporter != nil {
		c.exporter.activeUsers.WithLabelValues(profile).Dec()
	}
}

// Snapshot returns the run statistics collected so far. It is safe to call
// while the run is still going; duration is then measured up to now.
func (c *Collector) Snapshot() *models.RunStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	end := c.endTime
	if end.IsZero() {
		end = time.Now()
	}

	stats := &models.RunStats{
		Duration:     end.Sub(c.startTime),
		UsersSpawned: c.usersSpawned,
		StatusCounts: make(map[string]int64),
		Tasks:        make(map[string]*models.TaskStats, len(c.tasks)),
	}
	for _, n := range c.activeUsers {
		stats.ActiveUsers += n
	}

	all := make([]float64, 0)
	for _, s := range c.tasks {
		stats.TotalRequests += int64(len(s.latencies))
		stats.FailedRequests += s.errors
		all = append(all, s.latencies...)
		for code, n := range s.statuses {
			stats.StatusCounts[code] += n
		}
	}
	stats.SuccessfulRequests = stats.TotalRequests - stats.FailedRequests

	if agg := calculateAggregation(all); agg != nil {
		stats.LatencyP50 = agg.P50
		stats.LatencyP95 = agg.P95
		stats.LatencyP99 = agg.P99
		stats.LatencyMean = agg.Mean
		stats.LatencyMin = agg.Min
		stats.LatencyMax = agg.Max
	}
	if secs := stats.Duration.Seconds(); secs > 0 {
		stats.ThroughputRPS = float64(stats.TotalRequests) / secs
	}

	for name, s := range c.tasks {
		ts := &models.TaskStats{
			Task:         name,
			Method:       s.method,
			Path:         s.route,
			RequestCount: int64(len(s.latencies)),
			ErrorCount:   s.errors,
			StatusCounts: make(map[string]int64, len(s.statuses)),
		}
		for code, n := range s.statuses {
			ts.StatusCounts[code] = n
		}
		if stats.TotalRequests > 0 {
			ts.Share = float64(ts.RequestCount) / float64(stats.TotalRequests)
		}
		if agg := calculateAggregation(s.latencies); agg != nil {
			ts.LatencyP50 = agg.P50
			ts.LatencyP95 = agg.P95
			ts.LatencyP99 = agg.P99
			ts.LatencyMean = agg.Mean
			ts.LatencyMin = agg.Min
			ts.LatencyMax = agg.Max
		}
		stats.Tasks[name] = ts
	}
	return stats
}

func statusLabel(res client.Result) string {
	if res.StatusCode == 0 {
		return "error"
	}
	return strconv.Itoa(res.StatusCode)
}

// calculateAggregation calculates aggregated statistics from latency values
func calculateAggregation(values []float64) *models.Aggregation {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := utils.Sum(sorted)
	count := int64(len(sorted))

	return &models.Aggregation{
		Count: count,
		Sum:   sum,
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  sum / float64(count),
		P50:   utils.PercentileSorted(sorted, 50),
		P95:   utils.PercentileSorted(sorted, 95),
		P99:   utils.PercentileSorted(sorted, 99),
	}
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/client"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/engine"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/metrics"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store    *RunStore
	exporter *metrics.Exporter
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

// ExecutorOption configures a RunExecutor
type ExecutorOption func(*RunExecutor)

// WithExporter mirrors the request stats of every run into e
func WithExporter(e *metrics.Exporter) ExecutorOption {
	return func(x *RunExecutor) { x.exporter = e }
}

// WithNotifier sets the notifier used for run completion callbacks
func WithNotifier(n *Notifier) ExecutorOption {
	return func(x *RunExecutor) { x.notifier = n }
}

func NewRunExecutor(store *RunStore, opts ...ExecutorOption) *RunExecutor {
	e := &RunExecutor{
		store:    store,
		notifier: NewNotifier(),
		cancels:  make(map[string]context.CancelFunc),
		done:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exporter returns the Prometheus exporter, or nil
func (e *RunExecutor) Exporter() *metrics.Exporter {
	return e.exporter
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error. Concurrent starts of
// the same run launch it once.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	// e.mu is held across the transition so a concurrent Stop either sees
	// the run pending or finds its cancel func.
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, started, err := e.store.MarkRunning(runID)
	if err != nil {
		return nil, err
	}
	if !started {
		return rec, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[runID] = cancel
	e.done[runID] = make(chan struct{})

	go e.runLoad(ctx, runID)
	return rec, nil
}

// Stop requests cancellation for a run and marks it cancelled. Stopping a
// finished run returns its record unchanged.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if err != nil && !errors.Is(err, ErrRunTerminal) {
		return nil, err
	}

	if ok {
		cancel()
	} else if err == nil {
		// never started; nothing else will report it
		e.notify(updated)
	}

	return updated, nil
}

// Wait blocks until the run's users have all stopped or ctx is done.
// A run that is not executing returns immediately.
func (e *RunExecutor) Wait(ctx context.Context, runID string) error {
	e.mu.Lock()
	done, ok := e.done[runID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopAll cancels every executing run, e.g. on daemon shutdown
func (e *RunExecutor) StopAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Stop(id); err != nil {
			logger.Warn("failed to stop run", "run_id", id, "error", err)
		}
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	if done, ok := e.done[runID]; ok {
		close(done)
		delete(e.done, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) fail(runID string, err error) {
	logger.Error("run failed", "run_id", runID, "error", err)
	rec, setErr := e.store.SetStatus(runID, models.RunStatusFailed, err.Error())
	if setErr != nil {
		logger.Error("failed to set failed status", "run_id", runID, "error", setErr)
		return
	}
	e.notify(rec)
}

func (e *RunExecutor) runLoad(ctx context.Context, runID string) {
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	cfg := rec.Config

	profiles, err := workload.ProfilesFromConfig(cfg)
	if err != nil {
		e.fail(runID, fmt.Errorf("invalid profiles: %w", err))
		return
	}
	opts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		e.fail(runID, fmt.Errorf("invalid options: %w", err))
		return
	}
	timeout, err := cfg.GetRequestTimeout()
	if err != nil {
		e.fail(runID, fmt.Errorf("invalid request timeout: %w", err))
		return
	}
	httpClient, err := client.New(cfg.Target, timeout)
	if err != nil {
		e.fail(runID, err)
		return
	}

	var collectorOpts []metrics.Option
	if e.exporter != nil {
		collectorOpts = append(collectorOpts, metrics.WithExporter(e.exporter))
	}
	collector := metrics.NewCollector(collectorOpts...)
	if err := e.store.SetCollector(runID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", runID, "error", err)
	}

	sched, err := engine.NewScheduler(profiles, httpClient, opts,
		engine.WithRecorder(collector),
		engine.WithLogger(logger.Component("engine").With("run_id", runID)))
	if err != nil {
		e.fail(runID, err)
		return
	}

	logger.Info("starting load run", "run_id", runID, "target", cfg.Target,
		"users", opts.Users, "duration", opts.Duration)
	collector.Start()
	runErr := sched.Run(ctx)
	collector.Stop()

	stats := collector.Snapshot()
	if err := e.store.SetStats(runID, stats); err != nil {
		logger.Error("failed to set stats", "run_id", runID, "error", err)
	}

	if runErr != nil && ctx.Err() == nil {
		e.fail(runID, runErr)
		return
	}

	final, err := e.store.SetStatus(runID, models.RunStatusCompleted, "")
	switch {
	case err == nil:
		logger.Info("run completed", "run_id", runID,
			"total_requests", stats.TotalRequests,
			"failed_requests", stats.FailedRequests,
			"throughput_rps", stats.ThroughputRPS)
	case errors.Is(err, ErrRunTerminal):
		logger.Info("run cancelled", "run_id", runID,
			"total_requests", stats.TotalRequests)
	default:
		logger.Error("failed to set completed status", "run_id", runID, "error", err)
		return
	}
	e.notify(final)
}

func (e *RunExecutor) notify(rec *RunRecord) {
	if e.notifier == nil || rec == nil {
		return
	}
	e.notifier.Notify(rec.Input.CallbackURL, rec.Input.CallbackSecret, rec)
}

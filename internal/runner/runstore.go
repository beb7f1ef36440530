package runner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/metrics"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunExists     = errors.New("run already exists")
	ErrRunTerminal   = errors.New("run is terminal")
	ErrRunIDMissing  = errors.New("run_id is required")
	ErrInvalidRunID  = errors.New("invalid run_id")
	ErrInvalidConfig = errors.New("invalid config")
)

// RunInput is what a caller submits to create a run
type RunInput struct {
	ConfigYAML     string `json:"config_yaml"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// RunRecord is a snapshot of one run. Records returned by the store are
// copies and may be read without locking.
type RunRecord struct {
	Run    models.Run
	Input  RunInput
	Config *config.Config
	Stats  *models.RunStats
}

type runEntry struct {
	rec       RunRecord
	collector *metrics.Collector
}

// RunStore keeps runs in memory keyed by ID
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*runEntry
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*runEntry),
	}
}

// Create validates the input config and registers a pending run. An empty
// runID gets a generated one.
func (s *RunStore) Create(runID string, input RunInput) (*RunRecord, error) {
	cfg, err := config.ParseConfigYAMLString(input.ConfigYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := workload.ProfilesFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if runID == "" {
		runID = utils.GenerateRunID()
	} else if err := utils.ValidateRunID(runID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRunID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	e := &runEntry{
		rec: RunRecord{
			Run: models.Run{
				ID:        runID,
				Status:    models.RunStatusPending,
				CreatedAt: time.Now().UTC(),
			},
			Input:  input,
			Config: cfg,
		},
	}
	s.runs[runID] = e
	out := e.rec
	return &out, nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	out := e.rec
	return &out, true
}

// List returns runs ordered by creation time, newest first. An empty
// status matches every run.
func (s *RunStore) List(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	all := make([]*RunRecord, 0, len(s.runs))
	for _, e := range s.runs {
		if status != "" && e.rec.Run.Status != status {
			continue
		}
		rec := e.rec
		all = append(all, &rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Run.CreatedAt.Equal(all[j].Run.CreatedAt) {
			return all[i].Run.ID < all[j].Run.ID
		}
		return all[i].Run.CreatedAt.After(all[j].Run.CreatedAt)
	})

	if offset >= len(all) {
		return []*RunRecord{}
	}
	end := min(offset+limit, len(all))
	return all[offset:end]
}

// SetStatus moves a run to status. Terminal runs never change again;
// attempting it returns ErrRunTerminal with the unchanged record.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if e.rec.Run.Status.Terminal() {
		out := e.rec
		return &out, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	e.transition(status, errMsg)
	out := e.rec
	return &out, nil
}

// MarkRunning moves a pending run to running in one step. started is false
// when the run was already running; a terminal run returns ErrRunTerminal.
func (s *RunStore) MarkRunning(runID string) (rec *RunRecord, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	out := e.rec
	switch {
	case out.Run.Status.Terminal():
		return &out, false, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	case out.Run.Status == models.RunStatusRunning:
		return &out, false, nil
	}

	e.transition(models.RunStatusRunning, "")
	out = e.rec
	return &out, true, nil
}

func (e *runEntry) transition(status models.RunStatus, errMsg string) {
	e.rec.Run.Status = status
	if errMsg != "" {
		e.rec.Run.Error = errMsg
	}

	now := time.Now().UTC()
	switch {
	case status == models.RunStatusRunning:
		if e.rec.Run.StartedAt.IsZero() {
			e.rec.Run.StartedAt = now
		}
	case status.Terminal():
		e.rec.Run.EndedAt = now
	}
}

func (s *RunStore) SetStats(runID string, stats *models.RunStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	e.rec.Stats = stats
	return nil
}

// SetCollector attaches the live collector of a running run
func (s *RunStore) SetCollector(runID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	e.collector = c
	return nil
}

func (s *RunStore) GetCollector(runID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[runID]
	if !ok || e.collector == nil {
		return nil, false
	}
	return e.collector, true
}

// Stats returns final stats for a finished run, or a live snapshot while
// it is running.
func (s *RunStore) Stats(runID string) (*models.RunStats, error) {
	s.mu.RLock()
	e, ok := s.runs[runID]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	stats, collector := e.rec.Stats, e.collector
	s.mu.RUnlock()

	if stats != nil {
		return stats, nil
	}
	if collector != nil {
		return collector.Snapshot(), nil
	}
	return nil, nil
}

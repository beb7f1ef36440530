package runner

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/metrics"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

const minimalConfig = "target: http://localhost:8080\n"

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", RunInput{ConfigYAML: minimalConfig})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if rec.Run.Status != models.RunStatusPending {
		t.Fatalf("expected pending, got %s", rec.Run.Status)
	}
	if rec.Config == nil || rec.Config.Users != 10 {
		t.Fatalf("expected parsed default config, got %+v", rec.Config)
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok || got.Run.ID != rec.Run.ID {
		t.Fatalf("expected to find run %s", rec.Run.ID)
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected missing run")
	}
}

func TestRunStoreCreateErrors(t *testing.T) {
	store := NewRunStore()

	if _, err := store.Create("run-1", RunInput{ConfigYAML: "users: -1\n"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := store.Create("bad:id", RunInput{ConfigYAML: minimalConfig}); !errors.Is(err, ErrInvalidRunID) {
		t.Fatalf("expected ErrInvalidRunID, got %v", err)
	}
	if _, err := store.Create("run-1", RunInput{ConfigYAML: minimalConfig}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create("run-1", RunInput{ConfigYAML: minimalConfig}); !errors.Is(err, ErrRunExists) {
		t.Fatalf("expected ErrRunExists, got %v", err)
	}
}

func TestRunStoreReturnsCopies(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", RunInput{ConfigYAML: minimalConfig})
	rec.Run.Status = models.RunStatusFailed

	got, _ := store.Get("run-1")
	if got.Run.Status != models.RunStatusPending {
		t.Fatalf("mutating a returned record changed the store")
	}
}

func TestRunStoreStatusTransitions(t *testing.T) {
	store := NewRunStore()
	_, _ = store.Create("run-1", RunInput{ConfigYAML: minimalConfig})

	rec, err := store.SetStatus("run-1", models.RunStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus running: %v", err)
	}
	if rec.Run.StartedAt.IsZero() {
		t.Fatalf("expected started_at to be set")
	}

	rec, err = store.SetStatus("run-1", models.RunStatusCancelled, "")
	if err != nil {
		t.Fatalf("SetStatus cancelled: %v", err)
	}
	if rec.Run.EndedAt.IsZero() {
		t.Fatalf("expected ended_at to be set")
	}

	rec, err = store.SetStatus("run-1", models.RunStatusCompleted, "")
	if !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	if rec.Run.Status != models.RunStatusCancelled {
		t.Fatalf("terminal status was overwritten: %s", rec.Run.Status)
	}

	if _, err := store.SetStatus("missing", models.RunStatusRunning, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreMarkRunningOnce(t *testing.T) {
	store := NewRunStore()
	_, _ = store.Create("run-1", RunInput{ConfigYAML: minimalConfig})

	var started atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, ok, err := store.MarkRunning("run-1")
			if err != nil {
				t.Errorf("MarkRunning: %v", err)
				return
			}
			if rec.Run.Status != models.RunStatusRunning {
				t.Errorf("expected running, got %s", rec.Run.Status)
			}
			if ok {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	if started.Load() != 1 {
		t.Fatalf("expected exactly one transition, got %d", started.Load())
	}

	_, _ = store.SetStatus("run-1", models.RunStatusCancelled, "")
	rec, ok, err := store.MarkRunning("run-1")
	if !errors.Is(err, ErrRunTerminal) || ok {
		t.Fatalf("expected ErrRunTerminal for a cancelled run, got %v %v", ok, err)
	}
	if rec.Run.Status != models.RunStatusCancelled {
		t.Fatalf("terminal status was overwritten: %s", rec.Run.Status)
	}
	if _, _, err := store.MarkRunning("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreListFilterAndPaging(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Create(id, RunInput{ConfigYAML: minimalConfig}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	_, _ = store.SetStatus("run-b", models.RunStatusRunning, "")

	all := store.List(10, 0, "")
	if len(all) != 3 || all[0].Run.ID != "run-c" {
		t.Fatalf("expected newest first, got %d runs starting with %s", len(all), all[0].Run.ID)
	}
	running := store.List(10, 0, models.RunStatusRunning)
	if len(running) != 1 || running[0].Run.ID != "run-b" {
		t.Fatalf("expected only run-b running, got %v", running)
	}
	page := store.List(1, 1, "")
	if len(page) != 1 || page[0].Run.ID != "run-b" {
		t.Fatalf("unexpected page %v", page)
	}
	if len(store.List(10, 5, "")) != 0 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestRunStoreStats(t *testing.T) {
	store := NewRunStore()
	_, _ = store.Create("run-1", RunInput{ConfigYAML: minimalConfig})

	stats, err := store.Stats("run-1")
	if err != nil || stats != nil {
		t.Fatalf("expected no stats yet, got %v %v", stats, err)
	}

	c := metrics.NewCollector()
	c.UserStarted("device")
	if err := store.SetCollector("run-1", c); err != nil {
		t.Fatalf("SetCollector: %v", err)
	}
	stats, _ = store.Stats("run-1")
	if stats == nil || stats.UsersSpawned != 1 {
		t.Fatalf("expected live snapshot, got %+v", stats)
	}

	final := &models.RunStats{TotalRequests: 7}
	_ = store.SetStats("run-1", final)
	stats, _ = store.Stats("run-1")
	if stats.TotalRequests != 7 {
		t.Fatalf("expected final stats to win over live snapshot")
	}

	if _, err := store.Stats("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

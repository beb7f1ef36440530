package runner

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

// newTarget starts a stand-in for the metrics service that answers every
// request with 200 and counts them.
func newTarget(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func runConfig(target string, duration string) string {
	return fmt.Sprintf(`
log_level: error
target: %s
users: 2
spawn_rate: 100
duration: %q
seed: 42
request_timeout: 2s
`, target, duration)
}

func waitForStatus(t *testing.T, store *RunStore, runID string, want models.RunStatus) *RunRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(runID)
		if !ok {
			t.Fatalf("run %s disappeared", runID)
		}
		if rec.Run.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := store.Get(runID)
	t.Fatalf("run %s did not reach %s, last status %s", runID, want, rec.Run.Status)
	return nil
}

func waitTick() {
	time.Sleep(10 * time.Millisecond)
}

package utils

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateRunID(t *testing.T) {
	id := GenerateRunID()
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("expected run- prefix, got %s", id)
	}
	// run-YYYYMMDD-HHMMSS-xxxxxxxx
	if len(id) != len("run-20060102-150405-")+8 {
		t.Fatalf("unexpected run id length: %s", id)
	}
	if err := ValidateRunID(id); err != nil {
		t.Fatalf("generated id failed validation: %v", err)
	}
}

func TestValidateRunID(t *testing.T) {
	for _, bad := range []string{"a/b", "a:stop", "a?b", "a b"} {
		if err := ValidateRunID(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	if err := ValidateRunID("nightly-soak"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunIDConcurrency(t *testing.T) {
	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- GenerateRunID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}

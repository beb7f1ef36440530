package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/target"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

func envViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loadgen.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunConfigDefaults(t *testing.T) {
	cfg, err := loadRunConfig("", viper.New())
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	want := config.DefaultConfig()
	if cfg.Target != want.Target || cfg.Users != want.Users || len(cfg.Profiles) != 2 {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadRunConfigFileAndOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: info
target: http://file.example:8080
users: 20
spawn_rate: 5
duration: 30s
`)
	t.Setenv("LOADGEN_USERS", "7")
	t.Setenv("LOADGEN_SPAWN_RATE", "2.5")

	v := envViper()
	v.Set("target", "http://flag.example:9000")

	cfg, err := loadRunConfig(path, v)
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	if cfg.Target != "http://flag.example:9000" {
		t.Fatalf("expected explicit target override, got %s", cfg.Target)
	}
	if cfg.Users != 7 || cfg.SpawnRate != 2.5 {
		t.Fatalf("expected env overrides, got users=%d spawn_rate=%v", cfg.Users, cfg.SpawnRate)
	}
	if cfg.Duration != "30s" {
		t.Fatalf("expected duration from file, got %q", cfg.Duration)
	}
}

func TestRunConfigDrivesLogging(t *testing.T) {
	prev := logger.Default
	t.Cleanup(func() { logger.SetDefault(prev) })

	path := writeConfig(t, `
log_level: debug
log_format: json
target: http://localhost:8080
`)
	cfg, err := loadRunConfig(path, envViper())
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}

	var buf bytes.Buffer
	configureLogging(cfg, &buf)
	logger.Debug("debug from file settings", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "debug from file settings" || entry["level"] != "DEBUG" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestLogOverridesBeatFile(t *testing.T) {
	prev := logger.Default
	t.Cleanup(func() { logger.SetDefault(prev) })

	path := writeConfig(t, `
log_level: debug
log_format: json
target: http://localhost:8080
`)
	t.Setenv("LOADGEN_LOG_LEVEL", "warn")
	v := envViper()
	v.Set("log_format", "text")

	cfg, err := loadRunConfig(path, v)
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "text" {
		t.Fatalf("expected env and flag overrides, got level=%s format=%s", cfg.LogLevel, cfg.LogFormat)
	}

	var buf bytes.Buffer
	configureLogging(cfg, &buf)
	logger.Info("suppressed")
	logger.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "suppressed") || !strings.Contains(out, "msg=kept") {
		t.Fatalf("unexpected text log output: %q", out)
	}
}

func TestLoadRunConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set("users", -1)
	if _, err := loadRunConfig("", v); err == nil {
		t.Fatalf("expected negative users to be rejected")
	}

	if _, err := loadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"), viper.New()); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestRunLoadAgainstTarget(t *testing.T) {
	srv := target.NewServer(target.NewAnalyzer(nil))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.DefaultConfig()
	cfg.Target = ts.URL
	cfg.Users = 4
	cfg.SpawnRate = 100
	cfg.Duration = "400ms"
	cfg.Seed = 11
	cfg.RequestTimeout = "2s"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stats, err := runLoad(ctx, cfg, 0)
	if err != nil {
		t.Fatalf("runLoad: %v", err)
	}
	if stats.UsersSpawned != 4 {
		t.Fatalf("expected 4 users spawned, got %d", stats.UsersSpawned)
	}
	if stats.TotalRequests == 0 || stats.FailedRequests != 0 {
		t.Fatalf("expected successful requests, got total=%d failed=%d", stats.TotalRequests, stats.FailedRequests)
	}
	if _, ok := stats.Tasks[config.TaskSendMetric]; !ok {
		t.Fatalf("expected send_metric in task stats, got %v", stats.Tasks)
	}

	resp, err := http.Get(ts.URL + "/analytics")
	if err != nil {
		t.Fatalf("get analytics: %v", err)
	}
	defer resp.Body.Close()
	var summary models.AnalyticsSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalDevices == 0 || summary.TotalMetrics == 0 {
		t.Fatalf("expected the target to have ingested samples, got %+v", summary)
	}
}

func TestRunLoadInterrupted(t *testing.T) {
	srv := target.NewServer(target.NewAnalyzer(nil))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.DefaultConfig()
	cfg.Target = ts.URL
	cfg.Users = 2
	cfg.SpawnRate = 100

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	stats, err := runLoad(ctx, cfg, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("runLoad: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("interrupted run took too long to stop")
	}
	if stats == nil || stats.UsersSpawned == 0 {
		t.Fatalf("expected partial stats, got %+v", stats)
	}
}

func TestPrintStats(t *testing.T) {
	stats := &models.RunStats{
		TotalRequests: 6,
		Duration:      2 * time.Second,
		ThroughputRPS: 3,
		LatencyMin:    1.5,
		LatencyMax:    42,
		StatusCounts:  map[string]int64{"200": 5, "error": 1},
		Tasks: map[string]*models.TaskStats{
			"send_metric": {Task: "send_metric", Method: "POST", Path: "/metrics", RequestCount: 3, Share: 0.5,
				StatusCounts: map[string]int64{"200": 2, "error": 1}},
			"health_check": {Task: "health_check", Method: "GET", Path: "/health", RequestCount: 3, Share: 0.5,
				StatusCounts: map[string]int64{"200": 3}},
		},
	}

	var buf bytes.Buffer
	if err := printStats(&buf, "text", stats); err != nil {
		t.Fatalf("printStats: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "requests: 6") || !strings.Contains(out, "/metrics") {
		t.Fatalf("unexpected text output:\n%s", out)
	}
	if strings.Index(out, "health_check") > strings.Index(out, "send_metric") {
		t.Fatalf("expected tasks sorted by name:\n%s", out)
	}
	for _, want := range []string{"statuses: 200=5 error=1", "200=2 error=1", "min: 1.50", "max: 42.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in text output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printStats(&buf, "json", stats); err != nil {
		t.Fatalf("printStats json: %v", err)
	}
	var decoded models.RunStats
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded.TotalRequests != 6 {
		t.Fatalf("expected valid json, got %v: %s", err, buf.String())
	}
	if decoded.StatusCounts["error"] != 1 || decoded.Tasks["send_metric"].StatusCounts["200"] != 2 {
		t.Fatalf("expected status counts in json: %s", buf.String())
	}
	if decoded.LatencyMax != 42 {
		t.Fatalf("expected latency_max_ms in json: %s", buf.String())
	}

	if err := printStats(&buf, "text", nil); err == nil {
		t.Fatalf("expected error for nil stats")
	}
}

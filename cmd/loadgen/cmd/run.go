package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/runner"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("target", "", "base URL of the service under test")
	f.Int("users", 0, "number of virtual users")
	f.Float64("spawn-rate", 0, "users spawned per second")
	f.String("duration", "", "run duration, e.g. 60s (empty = until interrupted)")
	f.Int64("seed", 0, "random seed (0 = time seeded)")
	f.String("request-timeout", "", "per-request timeout, e.g. 10s")
	f.Bool("abandon-in-flight", true, "abort in-flight requests on stop")
	f.String("output", "text", "stats output format (text, json)")
	f.Duration("report-interval", 0, "log live stats at this interval (0 = off)")

	for _, name := range []string{
		"target", "users", "spawn-rate", "duration", "seed",
		"request-timeout", "abandon-in-flight", "output", "report-interval",
	} {
		_ = viper.BindPFlag(flagKey(name), f.Lookup(name))
	}
}

var runCmd = &cobra.Command{
	Use:   "run [./path/to/loadgen.yaml]",
	Short: "Run a load test against the target and print the statistics",
	Long: `Run a load test against the target and print the statistics.

Without a config file the default device and admin profiles are used.

	Example loadgen.yaml:

	target: http://localhost:8080
	users: 50
	spawn_rate: 10
	duration: 60s
	profiles:
	  - name: device
	    user_weight: 1
	    identity_prefix: device_
	    think_time: {min: 10ms, max: 50ms}
	    tasks:
	      - {name: send_metric, weight: 3}
	      - {name: get_analytics, weight: 1}
	      - {name: get_summary, weight: 1}
	      - {name: health_check, weight: 1}
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := loadRunConfig(path, viper.GetViper())
		if err != nil {
			return err
		}
		configureLogging(cfg, os.Stderr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats, err := runLoad(ctx, cfg, viper.GetDuration("report_interval"))
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), viper.GetString("output"), stats)
	},
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// loadRunConfig reads the config file (or the defaults) and applies every
// override v has an explicit value for.
func loadRunConfig(path string, v *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("target") {
		cfg.Target = v.GetString("target")
	}
	if v.IsSet("users") {
		cfg.Users = v.GetInt("users")
	}
	if v.IsSet("spawn_rate") {
		cfg.SpawnRate = v.GetFloat64("spawn_rate")
	}
	if v.IsSet("duration") {
		cfg.Duration = v.GetString("duration")
	}
	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
	}
	if v.IsSet("request_timeout") {
		cfg.RequestTimeout = v.GetString("request_timeout")
	}
	if v.IsSet("abandon_in_flight") {
		cfg.AbandonInFlight = v.GetBool("abandon_in_flight")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// configureLogging replaces the bootstrap logger with the run's settings
func configureLogging(cfg *config.Config, w io.Writer) {
	logger.SetDefault(logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, w))
}

// runLoad executes cfg as a single run and blocks until it finishes or ctx
// is cancelled, in which case the run is stopped and its partial stats
// returned.
func runLoad(ctx context.Context, cfg *config.Config, reportEvery time.Duration) (*models.RunStats, error) {
	data, err := config.MarshalYAML(cfg)
	if err != nil {
		return nil, err
	}

	store := runner.NewRunStore()
	executor := runner.NewRunExecutor(store)
	rec, err := store.Create("", runner.RunInput{ConfigYAML: string(data)})
	if err != nil {
		return nil, err
	}
	runID := rec.Run.ID

	if _, err := executor.Start(runID); err != nil {
		return nil, err
	}

	if reportEvery > 0 {
		go reportProgress(ctx, store, runID, reportEvery)
	}

	if err := executor.Wait(ctx, runID); err != nil {
		logger.Info("interrupt received, stopping run", "run_id", runID)
		if _, err := executor.Stop(runID); err != nil {
			return nil, err
		}
		if err := executor.Wait(context.Background(), runID); err != nil {
			return nil, err
		}
	}

	final, ok := store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", runner.ErrRunNotFound, runID)
	}
	if final.Run.Status == models.RunStatusFailed {
		return nil, errors.New(final.Run.Error)
	}
	return store.Stats(runID)
}

func reportProgress(ctx context.Context, store *runner.RunStore, runID string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec, ok := store.Get(runID)
			if !ok || rec.Run.Status.Terminal() {
				return
			}
			stats, err := store.Stats(runID)
			if err != nil || stats == nil {
				continue
			}
			logger.Info("progress", "run_id", runID,
				"users", stats.UsersSpawned,
				"requests", stats.TotalRequests,
				"failed", stats.FailedRequests,
				"rps", stats.ThroughputRPS,
				"p95_ms", stats.LatencyP95)
		}
	}
}

func printStats(w io.Writer, format string, stats *models.RunStats) error {
	if stats == nil {
		return errors.New("run produced no statistics")
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(w, "duration: %s  users: %d  requests: %d  failed: %d  rps: %.2f\n",
		stats.Duration.Round(time.Millisecond), stats.UsersSpawned,
		stats.TotalRequests, stats.FailedRequests, stats.ThroughputRPS)
	fmt.Fprintf(w, "latency ms  min: %.2f  mean: %.2f  p50: %.2f  p95: %.2f  p99: %.2f  max: %.2f\n",
		stats.LatencyMin, stats.LatencyMean, stats.LatencyP50, stats.LatencyP95, stats.LatencyP99, stats.LatencyMax)
	fmt.Fprintf(w, "statuses: %s\n\n", formatStatuses(stats.StatusCounts))

	names := make([]string, 0, len(stats.Tasks))
	for name := range stats.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tMETHOD\tPATH\tCOUNT\tERRORS\tSHARE\tMEAN\tP95\tMAX\tSTATUSES")
	for _, name := range names {
		ts := stats.Tasks[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%s\n",
			ts.Task, ts.Method, ts.Path, ts.RequestCount, ts.ErrorCount,
			ts.Share*100, ts.LatencyMean, ts.LatencyP95, ts.LatencyMax,
			formatStatuses(ts.StatusCounts))
	}
	return tw.Flush()
}

// formatStatuses renders status counts as "200=12 503=1 error=2" in key order
func formatStatuses(counts map[string]int64) string {
	if len(counts) == 0 {
		return "-"
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = fmt.Sprintf("%s=%d", code, counts[code])
	}
	return strings.Join(parts, " ")
}

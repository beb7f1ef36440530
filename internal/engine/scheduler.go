package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/client"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/config"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/utils"
)

// DefaultInFlightGrace bounds how long a request may outlive the stop
// signal when in-flight requests are not abandoned.
const DefaultInFlightGrace = 10 * time.Second

var (
	ErrNoProfiles  = errors.New("no profiles")
	ErrNoExecutor  = errors.New("no executor")
	ErrInvalidRate = errors.New("spawn rate must be positive")
)

// Executor issues one request. *client.Client implements it.
type Executor interface {
	Execute(ctx context.Context, req *workload.Request, route, identity string) client.Result
}

// Recorder receives every observation. *metrics.Collector implements it.
type Recorder interface {
	Record(res client.Result)
	UserStarted(profile string)
	UserStopped(profile string)
}

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options controls population and stop behavior
type Options struct {
	Users     int
	SpawnRate float64 // users per second
	Duration  time.Duration
	Seed      int64

	// AbandonInFlight cancels outstanding requests on stop. Otherwise they
	// are allowed to finish within InFlightGrace.
	AbandonInFlight bool
	InFlightGrace   time.Duration
}

// OptionsFromConfig extracts scheduler options from a validated config
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	duration, err := cfg.GetDuration()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Users:           cfg.Users,
		SpawnRate:       cfg.SpawnRate,
		Duration:        duration,
		Seed:            cfg.Seed,
		AbandonInFlight: cfg.AbandonInFlight,
		InFlightGrace:   DefaultInFlightGrace,
	}, nil
}

// Scheduler spawns virtual users and runs their task cycles
type Scheduler struct {
	profiles []workload.Profile
	exec     Executor
	rec      Recorder
	opts     Options

	master *utils.RandSource
	clock  utils.Clock
	sleep  SleepFunc
	logger *slog.Logger

	nextID  atomic.Int64
	spawned atomic.Int64
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithRecorder sets where observations go
func WithRecorder(r Recorder) SchedulerOption {
	return func(s *Scheduler) { s.rec = r }
}

// WithClock sets the clock used for payload timestamps
func WithClock(c utils.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithSleep replaces the think-time pause
func WithSleep(fn SleepFunc) SchedulerOption {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithLogger sets the scheduler's logger
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a scheduler over the given profiles
func NewScheduler(profiles []workload.Profile, exec Executor, opts Options, extra ...SchedulerOption) (*Scheduler, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	if exec == nil {
		return nil, ErrNoExecutor
	}
	if opts.Users < 0 {
		return nil, fmt.Errorf("users must be non-negative, got %d", opts.Users)
	}
	if opts.Users > 0 && opts.SpawnRate <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, opts.SpawnRate)
	}

	s := &Scheduler{
		profiles: append([]workload.Profile(nil), profiles...),
		exec:     exec,
		rec:      nopRecorder{},
		opts:     opts,
		master:   utils.NewRandSource(opts.Seed),
		clock:    utils.SystemClock{},
		sleep:    sleepContext,
		logger:   logger.Component("engine"),
	}
	for _, o := range extra {
		o(s)
	}
	return s, nil
}

// Spawned returns how many users have been spawned
func (s *Scheduler) Spawned() int64 {
	return s.spawned.Load()
}

// Spawn creates a user of profile p. The user gets its own random source
// forked from the master seed and draws its identity from it once.
func (s *Scheduler) Spawn(p workload.Profile) *VirtualUser {
	rng := s.master.Fork()
	u := &VirtualUser{
		ID:       s.nextID.Add(1),
		Profile:  p,
		rng:      rng,
		Identity: p.NewIdentity(rng),
	}
	s.spawned.Add(1)

	s.logger.Debug("User spawned",
		"user_id", u.ID,
		"profile", p.Name(),
		"identity", u.Identity)
	return u
}

// RunCycle draws one task, issues its request and then pauses for the
// user's think time. It returns the context error if the stop signal
// arrives before the cycle starts or during the pause.
func (s *Scheduler) RunCycle(ctx context.Context, u *VirtualUser) (client.Result, error) {
	if err := ctx.Err(); err != nil {
		return client.Result{}, err
	}

	task := u.Profile.Sampler().Next(u.rng)
	res := s.execute(ctx, u, task)
	u.cycles.Add(1)

	// requests cut off by the stop signal are not observations
	if ctx.Err() == nil || !res.Transport() {
		s.rec.Record(res)
	}
	if res.Failed() {
		s.logger.Debug("Request failed",
			"user_id", u.ID,
			"task", res.Task,
			"status", res.StatusCode,
			"error", res.Err)
	}

	pause := u.Profile.ThinkTime().Sample(u.rng)
	if err := s.sleep(ctx, pause); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Scheduler) execute(ctx context.Context, u *VirtualUser, task workload.Task) client.Result {
	req, err := task.Build(workload.TaskContext{
		Identity: u.Identity,
		Rand:     u.rng,
		Clock:    s.clock,
	})
	if err != nil {
		return client.Result{
			Task:     task.Name,
			Method:   task.Method,
			Route:    task.Path,
			Identity: u.Identity,
			Err:      fmt.Errorf("build %s: %w", task.Name, err),
		}
	}

	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()
	return s.exec.Execute(reqCtx, req, task.Path, u.Identity)
}

// requestContext derives the context for one request from the run context
// according to the in-flight policy.
func (s *Scheduler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.AbandonInFlight {
		return context.WithCancel(ctx)
	}

	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if s.opts.InFlightGrace <= 0 {
		return reqCtx, cancel
	}
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(s.opts.InFlightGrace, cancel)
	})
	return reqCtx, func() {
		stop()
		cancel()
	}
}

// Run spawns the configured population and blocks until every user has
// stopped. Users stop when ctx is cancelled or the run duration elapses.
// Stopping is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Duration)
		defer cancel()
	}

	plan := SpawnPlan(s.profiles, s.opts.Users)
	s.logger.Info("Starting load run",
		"users", len(plan),
		"spawn_rate", s.opts.SpawnRate,
		"duration", s.opts.Duration,
		"abandon_in_flight", s.opts.AbandonInFlight)

	limiter := rate.NewLimiter(rate.Limit(s.opts.SpawnRate), 1)
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range plan {
		if err := limiter.Wait(gctx); err != nil {
			s.logger.Info("Spawning stopped",
				"spawned", s.Spawned(),
				"planned", len(plan))
			break
		}
		u := s.Spawn(p)
		g.Go(func() error {
			s.runUser(gctx, u)
			return nil
		})
	}
	if int(s.Spawned()) == len(plan) {
		s.logger.Info("All users spawned", "users", len(plan))
	}

	err := g.Wait()
	s.logger.Info("Load run stopped", "users", s.Spawned())
	return err
}

func (s *Scheduler) runUser(ctx context.Context, u *VirtualUser) {
	name := u.Profile.Name()
	s.rec.UserStarted(name)
	defer s.rec.UserStopped(name)

	for ctx.Err() == nil {
		if _, err := s.RunCycle(ctx, u); err != nil {
			return
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(client.Result) {}
func (nopRecorder) UserStarted(string)   {}
func (nopRecorder) UserStopped(string)   {}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler drives the pipeline jobs on cron schedules with failure
// isolation: a panicking or failing job is logged and never takes down the
// process or blocks the other jobs. Registering the same job name twice is
// rejected, and calling Start more than once is a no-op, so duplicate wiring
// cannot double-schedule anything.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	started bool

	// startupDelay is how long after Start the run-on-startup jobs fire.
	startupDelay time.Duration
	onStartup    []Job

	ctx context.Context
}

// NewScheduler creates a Scheduler. Jobs run on standard 5-field cron
// expressions; panics inside a job are recovered and logged.
func NewScheduler(logger *slog.Logger) *Scheduler {
	logger = logger.With(slog.String("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(slogPrintf{logger})),
		)),
		logger:       logger,
		jobs:         make(map[string]Job),
		entries:      make(map[string]cron.EntryID),
		startupDelay: 10 * time.Second,
	}
}

// Register schedules job on the given cron expression. It returns an error
// if the name is already registered or the expression does not parse.
func (s *Scheduler) Register(cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", job.Name)
	}

	id, err := s.cron.AddFunc(cronExpr, func() {
		s.invoke(job)
	})
	if err != nil {
		return fmt.Errorf("scheduler: add job %q (%q): %w", job.Name, cronExpr, err)
	}

	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	s.logger.Info("job registered",
		slog.String("job", job.Name),
		slog.String("cron", cronExpr),
	)
	return nil
}

// RunOnStartup marks job to fire once, startupDelay after Start. The job
// must also be registered on a cron expression for its steady-state
// schedule.
func (s *Scheduler) RunOnStartup(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStartup = append(s.onStartup, job)
}

// Start begins the cron loop and fires the startup jobs after a short delay.
// Subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("scheduler already started, ignoring")
		return
	}
	s.started = true
	s.ctx = ctx
	startup := make([]Job, len(s.onStartup))
	copy(startup, s.onStartup)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))

	if len(startup) == 0 {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.startupDelay):
		}
		for _, job := range startup {
			if ctx.Err() != nil {
				return
			}
			s.invoke(job)
		}
	}()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs a registered job immediately, outside its schedule. The run
// happens on the caller's goroutine so the caller observes completion.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("scheduler: job %q not found", name)
	}
	s.invoke(job)
	return nil
}

// invoke runs one job with error isolation and duration logging.
func (s *Scheduler) invoke(job Job) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", job.Name),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("job complete",
		slog.String("job", job.Name),
		slog.Duration("duration", duration),
	)
}

// slogPrintf adapts slog to cron's Printf-style logger, used by the Recover
// chain to report panics.
type slogPrintf struct {
	logger *slog.Logger
}

func (l slogPrintf) Printf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Package scheduler runs scan pipelines on a cron schedule. Each tick starts
// a fresh run; a tick that fires while the previous run is still going is
// skipped rather than queued.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/logging"
)

// RunFunc performs one scheduled run. The context is canceled when the
// scheduler stops.
type RunFunc func(ctx context.Context) error

// Job describes a registered schedule.
type Job struct {
	Name     string
	Schedule string
	EntryID  cron.EntryID
	LastRun  time.Time
	LastErr  error
	Runs     int
}

// Scheduler manages scheduled scan runs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	jobs    map[cron.EntryID]*Job
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler. Overlapping ticks of the same job are
// skipped and panics inside a run are recovered and logged.
func NewScheduler(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("scheduler")
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[cron.EntryID]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under a standard five-field cron expression.
func (s *Scheduler) Add(name, schedule string, fn RunFunc) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return 0, errors.WrapConfigError(errors.CodeValidation,
			fmt.Sprintf("invalid cron expression %q", schedule), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{Name: name, Schedule: schedule}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(job, fn) })
	if err != nil {
		return 0, errors.WrapConfigError(errors.CodeValidation, "failed to schedule job", err)
	}
	job.EntryID = id
	s.jobs[id] = job

	s.logger.Info("job scheduled", "job", name, "schedule", schedule)
	return id, nil
}

func (s *Scheduler) execute(job *Job, fn RunFunc) {
	logger := s.logger.WithFields("job", job.Name)
	logger.Info("scheduled run starting")

	start := time.Now()
	err := fn(s.ctx)

	s.mu.Lock()
	job.LastRun = start
	job.LastErr = err
	job.Runs++
	s.mu.Unlock()

	if err != nil {
		logger.Warn("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("scheduled run finished", "duration", time.Since(start), "next", s.Next(job.EntryID))
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler has been stopped")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next activation time of a job, or the zero time.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// Jobs returns a snapshot of the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	return jobs
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

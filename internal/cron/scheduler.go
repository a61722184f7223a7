// Package cron runs cleanup sweeps on cron schedules.
// It uses robfig/cron/v3; every job triggers a manual cleanup in its mode
// through the cleanup manager, so scheduled sweeps are serialized with the
// monitor loop.
package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/logger"
)

// Runner executes a cleanup in the given mode.
type Runner interface {
	TriggerManualCleanup(ctx context.Context, mode cleanup.Mode) (cleanup.Result, error)
}

// Job represents a scheduled sweep.
type Job struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Schedule  string       `json:"schedule"` // Cron expression (e.g., "0 3 * * *" or "@hourly")
	Mode      cleanup.Mode `json:"mode"`
	LastRun   *time.Time   `json:"last_run,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	Deleted   int          `json:"last_deleted"`
}

// Scheduler manages cron job scheduling and execution
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	runner  Runner
	logger  *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex

	jobs    map[string]Job
	entries map[string]cron.EntryID // Job.ID -> cron.EntryID
}

// newParser accepts 5 or 6 fields and descriptors like @daily.
func newParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ValidateSpec reports whether spec is a valid cron expression.
func ValidateSpec(spec string) error {
	if _, err := newParser().Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// NewScheduler creates a new cron scheduler instance
func NewScheduler(runner Runner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Field{Key: "component", Value: "cron"})

	parser := newParser()
	cronLog := logAdapter{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		parser:  parser,
		runner:  runner,
		logger:  log,
		ctx:     context.Background(),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
}

// LoadFromConfig adds a job for every configured schedule.
func (s *Scheduler) LoadFromConfig(schedules []config.ScheduleConfig) error {
	for i, sc := range schedules {
		mode, err := cleanup.ParseMode(sc.Mode)
		if err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
		if _, err := s.AddJob(Job{Name: sc.Name, Schedule: sc.Spec, Mode: mode}); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
	}
	return nil
}

// Start starts the cron scheduler. Jobs run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()
	s.logger.Info("cron scheduler started", logger.Field{Key: "jobs", Value: len(s.jobs)})

	go func(ctx context.Context) {
		<-ctx.Done()
		s.cron.Stop()
	}(s.ctx)

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// IsStarted reports whether the scheduler is running.
func (s *Scheduler) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// AddJob adds a new job and returns its ID.
func (s *Scheduler) AddJob(job Job) (string, error) {
	switch job.Mode {
	case cleanup.ModeRoutine, cleanup.ModeNormal, cleanup.ModeEmergency, cleanup.ModeIdle:
	default:
		return "", fmt.Errorf("%w: %q", cleanup.ErrInvalidMode, job.Mode)
	}
	if _, err := s.parser.Parse(job.Schedule); err != nil {
		return "", fmt.Errorf("invalid cron expression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Name == "" {
		job.Name = string(job.Mode)
	}
	if _, exists := s.jobs[job.ID]; exists {
		return "", fmt.Errorf("job %s already exists", job.ID)
	}

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.executeJob(jobID) })
	if err != nil {
		return "", fmt.Errorf("invalid cron expression: %w", err)
	}

	s.jobs[job.ID] = job
	s.entries[job.ID] = entryID

	s.logger.Info("cron job added",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "name", Value: job.Name},
		logger.Field{Key: "schedule", Value: job.Schedule},
		logger.Field{Key: "mode", Value: string(job.Mode)})

	return job.ID, nil
}

// RemoveJob removes a job from the scheduler.
func (s *Scheduler) RemoveJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	s.cron.Remove(entryID)
	delete(s.entries, jobID)
	delete(s.jobs, jobID)

	s.logger.Info("cron job removed", logger.Field{Key: "job_id", Value: jobID})
	return nil
}

// ListJobs returns all jobs sorted by name.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].Name == jobs[k].Name {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].Name < jobs[k].Name
	})
	return jobs
}

// GetJob returns a job by ID.
func (s *Scheduler) GetJob(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j, ok
}

// executeJob runs the cleanup of a job and records the outcome.
func (s *Scheduler) executeJob(jobID string) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	ctx := s.ctx
	s.mu.RUnlock()
	if !ok {
		return
	}

	s.logger.Info("cron job started",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "name", Value: job.Name},
		logger.Field{Key: "mode", Value: string(job.Mode)})

	res, err := s.runner.TriggerManualCleanup(ctx, job.Mode)
	now := time.Now()

	s.mu.Lock()
	if cur, ok := s.jobs[jobID]; ok {
		cur.LastRun = &now
		cur.LastError = ""
		cur.Deleted = len(res.Deleted)
		if err != nil {
			cur.LastError = err.Error()
		}
		s.jobs[jobID] = cur
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("cron job failed", err, logger.Field{Key: "job_id", Value: job.ID})
		return
	}
	s.logger.Info("cron job finished",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "deleted", Value: len(res.Deleted)},
		logger.Field{Key: "freed", Value: cleanup.FormatSize(res.BytesFreed)})
}

// logAdapter routes robfig/cron logs through the application logger.
type logAdapter struct {
	log *logger.Logger
}

func (a logAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.log.Debug(msg, toFields(keysAndValues)...)
}

func (a logAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.log.Error(msg, err, toFields(keysAndValues)...)
}

func toFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}

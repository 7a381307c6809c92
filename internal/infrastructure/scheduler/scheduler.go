// Package scheduler runs background jobs on interval or cron schedules:
// the deadline penalty sweep and the leaderboard cache rebuild.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of background work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule decides when a job runs next.
type Schedule interface {
	// Next returns the next run time after t. A zero time disables the job.
	Next(t time.Time) time.Time

	String() string
}

// JobResult describes one execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
	Manual      bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler runs registered jobs when they are due. A job never overlaps
// with itself: a tick that finds it still running skips it.
type Scheduler struct {
	mu sync.RWMutex

	logger       *slog.Logger
	timezone     *time.Location
	tickInterval time.Duration

	jobs      map[string]*scheduledJob
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time

	metrics *SchedulerMetrics
}

type scheduledJob struct {
	job       Job
	schedule  Schedule
	executing bool
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
	last      *JobResult
}

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for schedule calculations (default UTC).
	Timezone *time.Location

	// TickInterval is how often due jobs are checked (default 1s).
	TickInterval time.Duration
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:       slog.Default(),
		Timezone:     time.UTC,
		TickInterval: time.Second,
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	return &Scheduler{
		logger:       config.Logger.With("component", "scheduler"),
		timezone:     config.Timezone,
		tickInterval: config.TickInterval,
		jobs:         make(map[string]*scheduledJob),
		metrics:      NewSchedulerMetrics(),
	}
}

// Register adds a job with its schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.jobs[name] = sj

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"next_run", sj.nextRun.Format(time.RFC3339),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	jobCount := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", jobCount)

	s.wg.Add(1)
	go s.runLoop()
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("scheduler stopped", "uptime", time.Since(s.startedAt).String())
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runDue(time.Now().In(s.timezone))
		}
	}
}

// runDue starts every job whose next run has passed and that is not executing.
func (s *Scheduler) runDue(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	for _, sj := range s.jobs {
		if sj.executing || sj.nextRun.IsZero() || now.Before(sj.nextRun) {
			continue
		}
		sj.executing = true
		sj.lastRun = now
		sj.nextRun = sj.schedule.Next(now)

		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()
			s.execute(s.ctx, sj, false)
		}(sj)
	}
}

// execute runs the job and records the outcome.
func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob, manual bool) JobResult {
	name := sj.job.Name()
	startedAt := time.Now()
	s.logger.Debug("job started", "job", name, "manual", manual)

	err := s.safeRun(ctx, sj.job)

	completedAt := time.Now()
	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
		Error:       err,
		Manual:      manual,
	}
	s.metrics.RecordExecution(name, result.Duration, result.Success)

	s.mu.Lock()
	sj.executing = false
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	sj.last = &result
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			"job", name,
			"duration", result.Duration.String(),
			"error", err,
		)
	} else {
		s.logger.Info("job completed",
			"job", name,
			"duration", result.Duration.String(),
		)
	}
	return result
}

// safeRun converts a panicking job into an error.
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return job.Run(ctx)
}

// RunNow executes a job immediately, outside its schedule. It fails with
// ErrJobBusy when the job is already executing.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.Lock()
	sj, exists := s.jobs[jobName]
	if !exists {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	if sj.executing {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobBusy, jobName)
	}
	sj.executing = true
	s.mu.Unlock()

	result := s.execute(ctx, sj, true)
	return result, result.Error
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	Executing   bool       `json:"executing"`
	LastRun     time.Time  `json:"last_run"`
	NextRun     time.Time  `json:"next_run"`
	RunCount    int64      `json:"run_count"`
	FailCount   int64      `json:"fail_count"`
	LastError   string     `json:"last_error,omitempty"`
	LastResult  *JobResult `json:"-"`
}

// ListJobs returns all registered jobs ordered by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.schedule.String(),
			Executing:   sj.executing,
			LastRun:     sj.lastRun,
			NextRun:     sj.nextRun,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastResult:  sj.last,
		}
		if sj.last != nil && sj.last.Error != nil {
			info.LastError = sj.last.Error.Error()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Metrics returns the scheduler metrics.
func (s *Scheduler) Metrics() *SchedulerMetrics {
	return s.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerMetrics tracks executions.
type SchedulerMetrics struct {
	mu sync.RWMutex

	totalExecutions int64
	totalSuccesses  int64
	totalFailures   int64
	totalDuration   time.Duration
	failuresByJob   map[string]int64
}

// NewSchedulerMetrics creates a new metrics tracker.
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{failuresByJob: make(map[string]int64)}
}

// RecordExecution records one job execution.
func (m *SchedulerMetrics) RecordExecution(jobName string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalExecutions++
	m.totalDuration += duration
	if success {
		m.totalSuccesses++
	} else {
		m.totalFailures++
		m.failuresByJob[jobName]++
	}
}

// MetricsSnapshot is a point-in-time copy of the metrics.
type MetricsSnapshot struct {
	TotalExecutions int64         `json:"total_executions"`
	TotalSuccesses  int64         `json:"total_successes"`
	TotalFailures   int64         `json:"total_failures"`
	SuccessRate     float64       `json:"success_rate"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Snapshot returns the current metrics.
func (m *SchedulerMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalExecutions: m.totalExecutions,
		TotalSuccesses:  m.totalSuccesses,
		TotalFailures:   m.totalFailures,
	}
	if m.totalExecutions > 0 {
		snap.AverageDuration = m.totalDuration / time.Duration(m.totalExecutions)
		snap.SuccessRate = float64(m.totalSuccesses) / float64(m.totalExecutions)
	}
	return snap
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrJobBusy                 = errors.New("job is already executing")
	ErrJobPanicked             = errors.New("job panicked")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/indexrep/pkg/logger"
)

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	maxRetries int
	retryDelay time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetry sets the default retry count and delay between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// New creates a new scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 3,
		retryDelay: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job on its cron schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unschedules a job; its history is kept
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)
	s.logger.WithField("job", name).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs a job synchronously, outside of its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	return s.runJob(ctx, job), nil
}

// NextRun returns the next scheduled time of a job (computed from now before Start)
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	id, exists := s.entries[name]
	s.mu.RUnlock()

	if !exists {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if entry.Next.IsZero() && entry.Schedule != nil {
		return entry.Schedule.Next(time.Now()), true
	}
	return entry.Next, true
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	name := job.Name()
	start := time.Now()

	retries := s.maxRetries
	if r, ok := job.(Retryable); ok {
		retries = r.MaxRetries()
	}

	s.logger.WithField("job", name).Info("Job started")

	var (
		lastErr  error
		attempts int
	)
	for attempt := 0; attempt <= retries; attempt++ {
		attempts++
		lastErr = job.Run(ctx)
		if lastErr == nil || IsPermanent(lastErr) || ctx.Err() != nil {
			break
		}

		if attempt == retries {
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempts,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		select {
		case <-ctx.Done():
		case <-time.After(s.retryDelay):
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Attempts:  attempts,
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[name]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	fields := map[string]interface{}{
		"job":      name,
		"duration": result.Duration,
		"attempts": attempts,
	}
	if result.Success {
		s.logger.WithFields(fields).Info("Job completed successfully")
	} else {
		s.logger.WithFields(fields).WithError(lastErr).Error("Job failed")
	}

	return result
}

// GetJobHistory returns a snapshot of the history for a specific job
func (s *Scheduler) GetJobHistory(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	// runJob 이 계속 추가하므로 복사본 반환
	return &JobHistory{Results: slices.Clone(history.Results)}, nil
}

// Jobs returns the registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStats summarises one job's history
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// GetJobStats returns statistics for all registered jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, job := range s.jobs {
		history := s.history[name]
		failed := len(history.Failed())

		st := JobStats{
			JobName:      name,
			Schedule:     job.Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - failed,
			FailureCount: failed,
			SuccessRate:  history.SuccessRate(),
		}
		if latest := history.Latest(1); len(latest) == 1 {
			st.LastRun = &latest[0].StartTime
			st.LastError = latest[0].Error
		}
		stats[name] = st
	}
	return stats
}

package scheduler

import (
	"context"
	"errors"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule returns the cron expression (seconds field first),
	// optionally prefixed with CRON_TZ=<zone>
	Schedule() string
}

// Retryable lets a job override the scheduler's retry count
type Retryable interface {
	MaxRetries() int
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad input, bad config)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const historyLimit = 100

// JobHistory keeps the latest results of one job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, keeping at most historyLimit entries
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	n = min(n, len(h.Results))
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failed returns every failed result
func (h *JobHistory) Failed() []JobResult {
	failed := make([]JobResult, 0)
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate returns the share of successful runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.Failed())) / float64(len(h.Results))
}

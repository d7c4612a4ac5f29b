package scheduler

import (
	"context"
	"time"
)

// Job is a recurring task over the journal accounts
// ⭐ SSOT: the scheduled job interface is defined only here
type Job interface {
	// Name is the unique job key (hwm_reconcile, supabase_sync)
	Name() string

	// Run walks the accounts once and reports what it changed
	Run(ctx context.Context) (RunReport, error)

	// Schedule returns the cron expression with a leading seconds field,
	// e.g. "0 0 3 * * *" or "@every 15m"
	Schedule() string
}

// RunReport counts the accounts one run visited and the ones it changed
// (HWM advanced, operations written)
type RunReport struct {
	Accounts int `json:"accounts"`
	Changed  int `json:"changed"`
}

// JobResult is one entry of a job history
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Report    RunReport     `json:"report"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the latest results of one job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest returns the newest n results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failed returns the failed results
func (h *JobHistory) Failed() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// SuccessRate is the share of successful runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	ok := 0
	for _, result := range h.Results {
		if result.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.Results))
}

// ChangedAccounts sums the accounts changed by successful runs in the history
func (h *JobHistory) ChangedAccounts() int {
	total := 0
	for _, result := range h.Results {
		if result.Success {
			total += result.Report.Changed
		}
	}
	return total
}

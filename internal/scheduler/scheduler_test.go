package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	runs     int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) (RunReport, error) {
	n := atomic.AddInt32(&j.runs, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return RunReport{Accounts: 2}, errors.New("boom")
	}
	return RunReport{Accounts: 2, Changed: 1}, nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 0 3 * * *"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Empty(t, s.cron.Entries())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobSyncRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", schedule: "@every 1h", failures: 2}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJobSync(context.Background(), "flaky"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.runs))

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 3, history.Results[0].Attempts)
	assert.Equal(t, RunReport{Accounts: 2, Changed: 1}, history.Results[0].Report)
	assert.Equal(t, 1, s.GetJobStats()["flaky"].Changed)
}

func TestRunJobSyncGivesUp(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "@every 1h", failures: 100}
	require.NoError(t, s.AddJob(job))

	err := s.RunJobSync(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.runs))

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
	assert.Equal(t, 0, stats.Changed)
}

func TestRunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.RunJob("missing"))
	assert.Error(t, s.RunJobSync(context.Background(), "missing"))
	_, err := s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestScheduledRun(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	stats := s.GetJobStats()["tick"]
	assert.NotNil(t, stats.NextRun)
}

func TestJobHistoryKeepsLatest(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Attempts: i, Success: i%2 == 0, Report: RunReport{Accounts: 3, Changed: 1}})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, 10, h.Results[0].Attempts)
	assert.Equal(t, 0.5, h.SuccessRate())
	assert.Len(t, h.Latest(5), 5)
	assert.Empty(t, h.Latest(0))
	assert.Len(t, h.Failed(), maxHistory/2)
	// only successful runs count as changes
	assert.Equal(t, maxHistory/2, h.ChangedAccounts())
}

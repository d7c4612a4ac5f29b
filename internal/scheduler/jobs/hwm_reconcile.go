package jobs

import (
	"context"
	"fmt"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/scheduler"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// HWMReconcileJob replays every account history and advances lagging high-water-marks
// ⭐ SSOT: the nightly HWM repair runs only from this job
type HWMReconcileJob struct {
	service  *journal.Service
	schedule string
	logger   *logger.Logger
}

// NewHWMReconcileJob creates a new reconcile job
func NewHWMReconcileJob(svc *journal.Service, schedule string, log *logger.Logger) *HWMReconcileJob {
	if schedule == "" {
		schedule = "0 0 3 * * *"
	}
	return &HWMReconcileJob{
		service:  svc,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *HWMReconcileJob) Name() string {
	return "hwm_reconcile"
}

// Schedule returns the cron schedule (03:00 daily by default)
func (j *HWMReconcileJob) Schedule() string {
	return j.schedule
}

// Run executes the reconciliation
func (j *HWMReconcileJob) Run(ctx context.Context) (scheduler.RunReport, error) {
	recs, err := j.service.ReconcileAll(ctx)

	report := scheduler.RunReport{Accounts: len(recs)}
	for _, r := range recs {
		if r.Advanced {
			report.Changed++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"accounts": report.Accounts,
		"advanced": report.Changed,
	}).Info("High-water-mark reconciliation completed")

	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}
	return report, nil
}

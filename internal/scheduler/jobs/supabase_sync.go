package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/scheduler"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// OperationSource returns the remote operations of one account
type OperationSource interface {
	FetchOperations(ctx context.Context, cuentaID, accountID string) ([]*contracts.Operation, int, error)
}

// SupabaseSyncJob pulls the operaciones table into the local journal.
// Local account IDs are used as the Supabase cuenta_id.
type SupabaseSyncJob struct {
	source   OperationSource
	service  *journal.Service
	schedule string
	logger   *logger.Logger
}

// NewSupabaseSyncJob creates a new sync job
func NewSupabaseSyncJob(source OperationSource, svc *journal.Service, schedule string, log *logger.Logger) *SupabaseSyncJob {
	if schedule == "" {
		schedule = "0 */15 * * * *"
	}
	return &SupabaseSyncJob{
		source:   source,
		service:  svc,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SupabaseSyncJob) Name() string {
	return "supabase_sync"
}

// Schedule returns the cron schedule (every 15 minutes by default)
func (j *SupabaseSyncJob) Schedule() string {
	return j.schedule
}

// Run syncs every local account; one failing account does not stop the others
func (j *SupabaseSyncJob) Run(ctx context.Context) (scheduler.RunReport, error) {
	accounts, err := j.service.ListAccounts(ctx)
	if err != nil {
		return scheduler.RunReport{}, fmt.Errorf("list accounts: %w", err)
	}

	report := scheduler.RunReport{Accounts: len(accounts)}
	var errs []error
	for _, a := range accounts {
		written, err := j.syncAccount(ctx, a.ID)
		if err != nil {
			j.logger.WithAccount(a.ID).WithError(err).Error("Supabase sync failed")
			errs = append(errs, err)
			continue
		}
		if written > 0 {
			report.Changed++
		}
	}
	return report, errors.Join(errs...)
}

func (j *SupabaseSyncJob) syncAccount(ctx context.Context, accountID string) (int, error) {
	ops, skipped, err := j.source.FetchOperations(ctx, accountID, accountID)
	if err != nil {
		return 0, fmt.Errorf("fetch operations: %w", err)
	}
	if len(ops) == 0 {
		return 0, nil
	}

	written, _, err := j.service.ImportOperations(ctx, accountID, ops)
	if err != nil {
		return 0, fmt.Errorf("import operations: %w", err)
	}

	j.logger.WithAccount(accountID).WithFields(map[string]interface{}{
		"fetched": len(ops),
		"skipped": skipped,
		"written": written,
	}).Info("Supabase sync completed")
	return written, nil
}

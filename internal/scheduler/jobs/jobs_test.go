package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/scheduler"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

var jobNow = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

func newJobService(t *testing.T) (*journal.Service, *journal.MemoryStore) {
	t.Helper()
	store := journal.NewMemoryStore()
	svc := journal.NewService(store, logger.Nop(), journal.WithClock(func() time.Time { return jobNow }))
	return svc, store
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := contracts.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestHWMReconcileJob(t *testing.T) {
	svc, store := newJobService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "Evaluation", nil)
	require.NoError(t, err)

	// written behind the service so the persisted mark lags the history
	for i, op := range []struct {
		date   string
		amount float64
	}{
		{"2024-03-04", 3000},
		{"2024-03-05", -1000},
	} {
		require.NoError(t, store.InsertOperation(ctx, &contracts.Operation{
			ID:        string(rune('a' + i)),
			AccountID: account.ID,
			Date:      day(t, op.date),
			Amount:    op.amount,
		}))
	}

	job := NewHWMReconcileJob(svc, "", logger.Nop())
	assert.Equal(t, "hwm_reconcile", job.Name())
	assert.Equal(t, "0 0 3 * * *", job.Schedule())

	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.RunReport{Accounts: 1, Changed: 1}, report)

	hwm, err := store.GetHWM(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, hwm)
	assert.Equal(t, 53000.0, *hwm)

	// second run is a no-op
	report, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.RunReport{Accounts: 1, Changed: 0}, report)
	hwm, err = store.GetHWM(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 53000.0, *hwm)
}

type fakeSource struct {
	ops   map[string][]*contracts.Operation
	fail  map[string]error
	calls []string
}

func (f *fakeSource) FetchOperations(_ context.Context, cuentaID, accountID string) ([]*contracts.Operation, int, error) {
	f.calls = append(f.calls, cuentaID)
	if err := f.fail[cuentaID]; err != nil {
		return nil, 0, err
	}
	out := make([]*contracts.Operation, 0, len(f.ops[cuentaID]))
	for _, op := range f.ops[cuentaID] {
		cp := *op
		cp.AccountID = accountID
		out = append(out, &cp)
	}
	return out, 1, nil
}

func TestSupabaseSyncJob(t *testing.T) {
	svc, _ := newJobService(t)
	ctx := context.Background()

	_, err := svc.CreateAccountWithID(ctx, "cuenta-1", "Remote", nil)
	require.NoError(t, err)
	_, err = svc.CreateAccountWithID(ctx, "cuenta-2", "Empty", nil)
	require.NoError(t, err)

	source := &fakeSource{ops: map[string][]*contracts.Operation{
		"cuenta-1": {
			{ID: "sb-1", Date: day(t, "2024-03-11"), Amount: 800},
			{ID: "sb-2", Date: day(t, "2024-03-12"), Amount: -300},
		},
	}}

	job := NewSupabaseSyncJob(source, svc, "", logger.Nop())
	assert.Equal(t, "supabase_sync", job.Name())
	assert.Equal(t, "0 */15 * * * *", job.Schedule())

	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.RunReport{Accounts: 2, Changed: 1}, report)
	assert.ElementsMatch(t, []string{"cuenta-1", "cuenta-2"}, source.calls)

	ops, err := svc.ListOperations(ctx, "cuenta-1", risk.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	res, err := svc.Evaluate(ctx, "cuenta-1")
	require.NoError(t, err)
	assert.Equal(t, 50500.0, res.CurrentBalance)
	assert.Equal(t, 50800.0, res.HWM)

	// syncing again does not duplicate rows
	_, err = job.Run(ctx)
	require.NoError(t, err)
	ops, err = svc.ListOperations(ctx, "cuenta-1", risk.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestSupabaseSyncJobContinuesAfterFailure(t *testing.T) {
	svc, _ := newJobService(t)
	ctx := context.Background()

	_, err := svc.CreateAccountWithID(ctx, "bad", "Bad", nil)
	require.NoError(t, err)
	_, err = svc.CreateAccountWithID(ctx, "good", "Good", nil)
	require.NoError(t, err)

	source := &fakeSource{
		ops: map[string][]*contracts.Operation{
			"good": {{ID: "sb-9", Date: day(t, "2024-03-12"), Amount: 100}},
		},
		fail: map[string]error{"bad": errors.New("upstream down")},
	}

	report, err := NewSupabaseSyncJob(source, svc, "@every 1m", logger.Nop()).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, scheduler.RunReport{Accounts: 2, Changed: 1}, report)

	ops, err := svc.ListOperations(ctx, "good", risk.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

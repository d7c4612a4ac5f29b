package journal

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// 2024-03-13 is a Wednesday
var serviceNow = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

type recordedEvent struct {
	accountID string
	event     string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(accountID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{accountID, event, payload})
}

func (p *recordingPublisher) last() recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	opts = append([]Option{WithClock(func() time.Time { return serviceNow })}, opts...)
	return NewService(store, logger.Nop(), opts...), store
}

func createTestAccount(t *testing.T, svc *Service) string {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), "Evaluation 50K", nil)
	require.NoError(t, err)
	return account.ID
}

func addOp(t *testing.T, svc *Service, accountID, date string, amount float64) (*contracts.Operation, *risk.Result) {
	t.Helper()
	d, err := contracts.ParseDay(date)
	require.NoError(t, err)
	op, res, err := svc.AddOperation(context.Background(), &contracts.Operation{
		AccountID: accountID,
		Date:      d,
		Amount:    amount,
	})
	require.NoError(t, err)
	return op, res
}

func TestCreateAccountDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "  Funded  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Funded", account.Name)
	assert.NotEmpty(t, account.ID)

	settings, err := svc.GetSettings(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.DefaultSettings(), *settings)

	goals, err := svc.GetGoals(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.Goals{}, *goals)
}

func TestCreateAccountRejectsInvalidSettings(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), "Bad", &contracts.Settings{
		InitialBalance:         50000,
		TrailingDrawdownAmount: 2500,
		ConsistencyPercentage:  0,
	})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = svc.CreateAccount(context.Background(), "", nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestFirstEvaluationPersistsSeed(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	res, err := svc.Evaluate(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, res.CurrentBalance)
	assert.Equal(t, 50000.0, res.HWM)
	assert.Equal(t, 47500.0, res.DrawdownFloor)
	assert.False(t, res.HWMAdvanced)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	require.NotNil(t, hwm)
	assert.Equal(t, 50000.0, *hwm)
}

func TestHWMRatchetsAcrossOperations(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	_, res := addOp(t, svc, accountID, "2024-03-11", 1000)
	assert.True(t, res.HWMAdvanced)
	assert.Equal(t, 51000.0, res.HWM)

	_, res = addOp(t, svc, accountID, "2024-03-12", -500)
	assert.False(t, res.HWMAdvanced)
	assert.Equal(t, 50500.0, res.CurrentBalance)
	assert.Equal(t, 51000.0, res.HWM)
	assert.Equal(t, 48500.0, res.DrawdownFloor)
	assert.Equal(t, 2000.0, res.MarginToFloor)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 51000.0, *hwm)
}

func TestDeletingWinnerKeepsHWM(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	winner, _ := addOp(t, svc, accountID, "2024-03-11", 2000)

	res, err := svc.DeleteOperation(ctx, accountID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, res.CurrentBalance)
	assert.Equal(t, 52000.0, res.HWM)
	assert.Equal(t, 49500.0, res.DrawdownFloor)
}

func TestBreachIsReported(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-11", 1000)
	_, res := addOp(t, svc, accountID, "2024-03-12", -4000)

	assert.Equal(t, 47000.0, res.CurrentBalance)
	assert.Equal(t, 48500.0, res.DrawdownFloor)
	assert.True(t, res.Breached)
	assert.Equal(t, -1500.0, res.MarginToFloor)
}

func TestBackdatedOperationReachesHWM(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-02", -4000)
	_, res := addOp(t, svc, accountID, "2024-03-01", 1000)

	require.NotEmpty(t, res.GrowthSeries)
	last := res.GrowthSeries[len(res.GrowthSeries)-1]
	assert.True(t, res.HWMAdvanced)
	assert.Equal(t, 51000.0, res.HWM)
	assert.Equal(t, last.HWM, res.HWM)
	assert.Equal(t, last.Floor, res.DrawdownFloor)
	assert.Equal(t, 48500.0, res.DrawdownFloor)
	assert.Equal(t, 47000.0, res.CurrentBalance)
	assert.True(t, res.Breached)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 51000.0, *hwm)

	// the nightly pass finds nothing left to repair
	rec, err := svc.ReconcileHWM(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, rec.Advanced)
}

func TestBackdatedUpdateAndDeleteReachHWM(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	loser, _ := addOp(t, svc, accountID, "2024-03-01", -2000)
	winner, _ := addOp(t, svc, accountID, "2024-03-02", 1500)

	// moving the winner before the loser puts the peak at 51500
	moved := *winner
	moved.Date = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	_, res, err := svc.UpdateOperation(ctx, &moved)
	require.NoError(t, err)
	assert.True(t, res.HWMAdvanced)
	assert.Equal(t, 51500.0, res.HWM)

	res, err = svc.DeleteOperation(ctx, accountID, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, 51500.0, res.CurrentBalance)
	assert.Equal(t, 51500.0, res.HWM)
	assert.Equal(t, res.GrowthSeries[len(res.GrowthSeries)-1].HWM, res.HWM)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 51500.0, *hwm)
}

func TestUpdateOperation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	op, _ := addOp(t, svc, accountID, "2024-03-11", 100)
	created := op.CreatedAt

	changed := *op
	changed.Amount = 300
	changed.Kind = "alcista"
	updated, res, err := svc.UpdateOperation(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, contracts.KindBullish, updated.Kind)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, 50300.0, res.CurrentBalance)

	missing := changed
	missing.ID = "missing"
	_, _, err = svc.UpdateOperation(ctx, &missing)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestAddOperationValidation(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := createTestAccount(t, svc)

	_, _, err := svc.AddOperation(context.Background(), &contracts.Operation{
		AccountID: accountID,
		Date:      serviceNow,
		Amount:    math.NaN(),
	})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, _, err = svc.AddOperation(context.Background(), &contracts.Operation{
		AccountID: "ghost",
		Date:      serviceNow,
		Amount:    1,
	})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestUpdateSettingsKeepsPersistedHWM(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-11", 1000)
	addOp(t, svc, accountID, "2024-03-12", -800)

	res, err := svc.UpdateSettings(ctx, accountID, contracts.Settings{
		InitialBalance:         50000,
		TrailingDrawdownAmount: 500,
		ConsistencyPercentage:  40,
	})
	require.NoError(t, err)
	assert.Equal(t, 51000.0, res.HWM)
	assert.Equal(t, 50500.0, res.DrawdownFloor)
	assert.True(t, res.Breached)

	_, err = svc.UpdateSettings(ctx, accountID, contracts.Settings{ConsistencyPercentage: 101})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestGoalsProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-04", 400) // previous week, same month
	addOp(t, svc, accountID, "2024-03-11", 500) // this week

	res, err := svc.UpdateGoals(ctx, accountID, contracts.Goals{Weekly: 1000, Monthly: 3000})
	require.NoError(t, err)
	assert.Equal(t, 500.0, res.WeeklyProfit)
	assert.Equal(t, 50.0, res.WeeklyProgress)
	assert.Equal(t, 900.0, res.MonthlyProfit)
	assert.InDelta(t, 30.0, res.MonthlyProgress, 1e-9)

	_, err = svc.UpdateGoals(ctx, accountID, contracts.Goals{Weekly: -1})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestTodayResolvedInConfiguredLocation(t *testing.T) {
	// 23:30 UTC on Sunday is already Monday in UTC+1
	sunday := time.Date(2024, 3, 17, 23, 30, 0, 0, time.UTC)
	svc, _ := newTestService(t,
		WithClock(func() time.Time { return sunday }),
		WithLocation(time.FixedZone("CET", 3600)),
	)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-17", 700)
	res, err := svc.UpdateGoals(ctx, accountID, contracts.Goals{Weekly: 1000})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-18", res.Goals.Weekly.PeriodStart)
	assert.Equal(t, 0.0, res.WeeklyProfit)
}

func TestImportReplaysHistoryIntoHWM(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	day := func(s string) time.Time {
		d, err := contracts.ParseDay(s)
		require.NoError(t, err)
		return d
	}

	written, res, err := svc.ImportOperations(ctx, accountID, []*contracts.Operation{
		{ID: "csv-1", Date: day("2024-03-01"), Amount: 2000},
		{ID: "csv-2", Date: day("2024-03-04"), Amount: -1500},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, 50500.0, res.CurrentBalance)
	assert.Equal(t, 52000.0, res.HWM)
	assert.Equal(t, 49500.0, res.DrawdownFloor)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 52000.0, *hwm)

	// re-importing the same rows replaces them
	written, res, err = svc.ImportOperations(ctx, accountID, []*contracts.Operation{
		{ID: "csv-2", Date: day("2024-03-04"), Amount: -1000},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 51000.0, res.CurrentBalance)
	assert.Equal(t, 2, res.OperationCount)
}

func TestImportRejectsInvalidBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	_, _, err := svc.ImportOperations(ctx, accountID, []*contracts.Operation{
		{Date: serviceNow, Amount: 1},
		{Amount: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
	assert.Contains(t, err.Error(), "operation 2")

	ops, err := svc.ListOperations(ctx, accountID, risk.Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestReset(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-03-11", 3000)
	_, err := svc.UpdateGoals(ctx, accountID, contracts.Goals{Weekly: 100, Monthly: 200})
	require.NoError(t, err)

	res, err := svc.Reset(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, res.CurrentBalance)
	assert.Equal(t, 50000.0, res.HWM)
	assert.Equal(t, 47500.0, res.DrawdownFloor)
	assert.Equal(t, 0, res.OperationCount)

	goals, err := store.GetGoals(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, contracts.Goals{}, *goals)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, *hwm)
}

func TestListOperationsFilterAndLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	addOp(t, svc, accountID, "2024-02-28", 100)
	first, _ := addOp(t, svc, accountID, "2024-03-01", -50)
	second, _ := addOp(t, svc, accountID, "2024-03-04", 75)

	ops, err := svc.ListOperations(ctx, accountID, risk.Filter{Month: 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, opIDs(ops))

	recent, err := svc.ListOperations(ctx, accountID, risk.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, opIDs(recent))
}

func TestPublishesDashboardOnWrite(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))
	ctx := context.Background()
	accountID := createTestAccount(t, svc)

	_, res := addOp(t, svc, accountID, "2024-03-11", 250)

	ev := pub.last()
	assert.Equal(t, accountID, ev.accountID)
	assert.Equal(t, EventDashboard, ev.event)
	assert.Same(t, res, ev.payload)

	require.NoError(t, svc.DeleteAccount(ctx, accountID))
	assert.Equal(t, EventDeleted, pub.last().event)

	_, err := svc.GetAccount(ctx, accountID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestDashboardWithoutCacheEvaluates(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := createTestAccount(t, svc)
	addOp(t, svc, accountID, "2024-03-11", 250)

	res, err := svc.Dashboard(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 50250.0, res.CurrentBalance)
	assert.True(t, serviceNow.Equal(res.EvaluatedAt))
}

func TestReconcileAll(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	accountID := createTestAccount(t, svc)
	other := createTestAccount(t, svc)

	// write history behind the service so the persisted mark lags
	require.NoError(t, store.InsertOperation(ctx, newOp(accountID, "op-1", "2024-03-01", 4000)))
	require.NoError(t, store.InsertOperation(ctx, newOp(accountID, "op-2", "2024-03-02", -3000)))

	recs, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byAccount := map[string]*Reconciliation{}
	for _, r := range recs {
		byAccount[r.AccountID] = r
	}
	assert.True(t, byAccount[accountID].Advanced)
	assert.Equal(t, 54000.0, byAccount[accountID].Replayed)
	assert.False(t, byAccount[other].Advanced)

	hwm, err := store.GetHWM(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 54000.0, *hwm)

	// a second pass is a no-op
	rec, err := svc.ReconcileHWM(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, rec.Advanced)
	assert.Equal(t, 54000.0, rec.Persisted)
}

func TestConcurrentWritesSerializePerAccount(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := createTestAccount(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddOperation(context.Background(), &contracts.Operation{
				AccountID: accountID,
				Date:      serviceNow,
				Amount:    100,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	res, err := svc.Evaluate(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 52000.0, res.CurrentBalance)
	assert.Equal(t, 52000.0, res.HWM)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlockB := k.Lock("b")
	unlockB()
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

func op(date string, amount float64) *contracts.Operation {
	d, err := contracts.ParseDay(date)
	if err != nil {
		panic(err)
	}
	return &contracts.Operation{AccountID: "acc", Date: d, Amount: amount}
}

func settings(initial, trailing, consistency float64) contracts.Settings {
	return contracts.Settings{
		InitialBalance:         initial,
		TrailingDrawdownAmount: trailing,
		ConsistencyPercentage:  consistency,
	}
}

func ptr(v float64) *float64 { return &v }

// 2024-03-13 is a Wednesday
var wednesday = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

// =============================================================================
// Balance
// =============================================================================

func TestComputeBalance(t *testing.T) {
	ops := []*contracts.Operation{op("2024-01-02", 1000), op("2024-01-03", -250.5), op("2024-01-04", 0)}

	b := ComputeBalance(50000, ops)
	assert.InDelta(t, 749.5, b.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 50749.5, b.CurrentBalance, 1e-9)
	assert.InDelta(t, 1.499, b.ROI, 1e-9)
}

func TestComputeBalanceROIGuard(t *testing.T) {
	ops := []*contracts.Operation{op("2024-01-02", 100)}

	assert.Equal(t, 0.0, ComputeBalance(0, ops).ROI)
	assert.Equal(t, 0.0, ComputeBalance(-10, ops).ROI)
}

func TestComputeBalanceIgnoresNonFinite(t *testing.T) {
	ops := []*contracts.Operation{
		op("2024-01-02", 100),
		op("2024-01-03", math.NaN()),
		op("2024-01-04", math.Inf(-1)),
		nil,
	}

	b := ComputeBalance(1000, ops)
	assert.Equal(t, 100.0, b.TotalProfitLoss)
	assert.Equal(t, 1100.0, b.CurrentBalance)
}

func TestBalanceIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ops := make([]*contracts.Operation, 50)
	for i := range ops {
		// whole cents keep float sums exact enough for InDelta
		ops[i] = op("2024-02-01", float64(rng.Intn(200000)-100000)/100)
	}

	want := ComputeBalance(25000, ops).CurrentBalance
	for i := 0; i < 10; i++ {
		shuffled := append([]*contracts.Operation(nil), ops...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.InDelta(t, want, ComputeBalance(25000, shuffled).CurrentBalance, 1e-6)
	}

	sum := 0.0
	for _, o := range ops {
		sum += o.Amount
	}
	assert.InDelta(t, 25000+sum, want, 1e-6)
}

// =============================================================================
// High-Water-Mark & Drawdown
// =============================================================================

func TestSeedHWM(t *testing.T) {
	assert.Equal(t, 50000.0, SeedHWM(nil, 50000))
	assert.Equal(t, 51000.0, SeedHWM(ptr(51000), 50000))
}

func TestAdvanceHWM(t *testing.T) {
	hwm, advanced := AdvanceHWM(50000, 51000)
	assert.Equal(t, 51000.0, hwm)
	assert.True(t, advanced)

	hwm, advanced = AdvanceHWM(51000, 47000)
	assert.Equal(t, 51000.0, hwm)
	assert.False(t, advanced)

	hwm, advanced = AdvanceHWM(51000, 51000)
	assert.Equal(t, 51000.0, hwm)
	assert.False(t, advanced)
}

func TestComputeDrawdownIdentities(t *testing.T) {
	cases := []struct{ hwm, trailing, current float64 }{
		{51000, 2500, 51000},
		{51000, 2500, 47000},
		{50000, 0, 50000},
		{60000, 10000, 49999.99},
	}

	for _, c := range cases {
		d := ComputeDrawdown(c.hwm, c.trailing, c.current)
		assert.Equal(t, c.hwm-c.trailing, d.Floor)
		assert.Equal(t, c.current-d.Floor, d.MarginToFloor)
		assert.InDelta(t, c.trailing-(c.hwm-c.current), d.MarginToFloor, 1e-9)
		assert.Equal(t, d.MarginToFloor < 0, d.Breached)
	}
}

func TestLoweringTrailingAmountCanBreach(t *testing.T) {
	assert.False(t, ComputeDrawdown(51000, 2500, 49000).Breached)
	assert.True(t, ComputeDrawdown(51000, 1500, 49000).Breached)
}

func TestBreachScenario(t *testing.T) {
	engine := NewEngine()
	s := settings(50000, 2500, 40)
	d1 := op("2024-03-11", 1000)
	d2 := op("2024-03-12", -4000)

	first := engine.Evaluate(Input{Operations: []*contracts.Operation{d1}, Settings: s, Now: wednesday})
	assert.Equal(t, 51000.0, first.CurrentBalance)
	assert.Equal(t, 51000.0, first.HWM)
	assert.True(t, first.HWMAdvanced)
	assert.Equal(t, 48500.0, first.DrawdownFloor)
	assert.Equal(t, 2500.0, first.MarginToFloor)
	assert.False(t, first.Breached)

	second := engine.Evaluate(Input{
		Operations: []*contracts.Operation{d1, d2},
		Settings:   s,
		PriorHWM:   ptr(first.HWM),
		Now:        wednesday,
	})
	assert.Equal(t, 47000.0, second.CurrentBalance)
	assert.Equal(t, 51000.0, second.HWM)
	assert.False(t, second.HWMAdvanced)
	assert.Equal(t, 48500.0, second.DrawdownFloor)
	assert.Equal(t, -1500.0, second.MarginToFloor)
	assert.True(t, second.Breached)
}

func TestHWMMonotonicOverPrefixes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engine := NewEngine()
	s := settings(10000, 500, 40)

	ops := make([]*contracts.Operation, 0, 40)
	var prior *float64
	last := math.Inf(-1)
	for i := 0; i < 40; i++ {
		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		ops = append(ops, &contracts.Operation{AccountID: "acc", Date: day, Amount: float64(rng.Intn(1000) - 500)})

		res := engine.Evaluate(Input{Operations: ops, Settings: s, PriorHWM: prior, Now: wednesday})
		require.GreaterOrEqual(t, res.HWM, last)
		last = res.HWM
		prior = ptr(res.HWM)

		// a persisted HWM driven by every prefix equals the replayed one
		assert.Equal(t, RecomputeHWM(ops, s), res.HWM)
	}
}

// =============================================================================
// Consistency
// =============================================================================

func TestConsistencySingleDay(t *testing.T) {
	ops := []*contracts.Operation{op("2024-03-11", 400), op("2024-03-11", 600)}

	c := CheckConsistency(ops, 40)
	assert.Equal(t, 100.0, c.Percentage)
	assert.False(t, c.Compliant)
	assert.Equal(t, ConsistencyViolation, c.Status)
	assert.Equal(t, "2024-03-11", c.MaxDay)
	assert.Equal(t, 1000.0, c.TotalPositiveProfit)
}

func TestConsistencyTwoDays(t *testing.T) {
	ops := []*contracts.Operation{op("2024-03-11", 600), op("2024-03-12", 400), op("2024-03-12", -900)}

	c := CheckConsistency(ops, 40)
	assert.InDelta(t, 60.0, c.Percentage, 1e-9)
	assert.False(t, c.Compliant)
	assert.Equal(t, 1000.0, c.TotalPositiveProfit)
	assert.Equal(t, "2024-03-11", c.MaxDay)
	assert.Equal(t, []DailyProfit{{Date: "2024-03-11", Profit: 600}, {Date: "2024-03-12", Profit: 400}}, c.Days)
}

func TestConsistencyInsufficientData(t *testing.T) {
	for _, ops := range [][]*contracts.Operation{
		nil,
		{op("2024-03-11", -100), op("2024-03-12", 0)},
	} {
		c := CheckConsistency(ops, 40)
		assert.Equal(t, 0.0, c.Percentage)
		assert.True(t, c.Compliant)
		assert.Equal(t, ConsistencyInsufficientData, c.Status)
		assert.Empty(t, c.MaxDay)
	}
}

func TestConsistencyTiers(t *testing.T) {
	// best day first, then days no larger than it until the total reaches 100
	history := func(best float64) []*contracts.Operation {
		ops := []*contracts.Operation{op("2024-03-01", best)}
		rest := 100 - best
		for i := 0; rest > 0; i++ {
			chunk := math.Min(rest, best)
			day := time.Date(2024, 3, 2+i, 0, 0, 0, 0, time.UTC)
			ops = append(ops, &contracts.Operation{Date: day, Amount: chunk})
			rest -= chunk
		}
		return ops
	}

	tests := []struct {
		name      string
		best      float64
		status    ConsistencyStatus
		compliant bool
	}{
		{"well below", 25, ConsistencyOK, true},
		{"below warning band", 31, ConsistencyOK, true},
		{"near limit", 35, ConsistencyWarning, true},
		{"at limit", 40, ConsistencyWarning, true},
		{"above limit", 41, ConsistencyViolation, false},
		{"far above limit", 75, ConsistencyViolation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CheckConsistency(history(tt.best), 40)
			assert.InDelta(t, tt.best, c.Percentage, 1e-9)
			assert.Equal(t, 100.0, c.TotalPositiveProfit)
			assert.Equal(t, tt.status, c.Status)
			assert.Equal(t, tt.compliant, c.Compliant)
		})
	}
}

func TestConsistencyTieReportsEarliestDay(t *testing.T) {
	ops := []*contracts.Operation{op("2024-03-12", 500), op("2024-03-11", 500)}

	c := CheckConsistency(ops, 60)
	assert.Equal(t, 50.0, c.Percentage)
	assert.Equal(t, "2024-03-11", c.MaxDay)
	assert.Equal(t, 500.0, c.MaxDayProfit)
}

func TestConsistencyPercentageRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		ops := make([]*contracts.Operation, 0, 20)
		for j := 0; j < 20; j++ {
			day := time.Date(2024, 1, 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
			ops = append(ops, &contracts.Operation{Date: day, Amount: float64(rng.Intn(2000) - 1000)})
		}
		c := CheckConsistency(ops, 40)
		if c.TotalPositiveProfit > 0 {
			assert.GreaterOrEqual(t, c.Percentage, 0.0)
			assert.LessOrEqual(t, c.Percentage, 100.0)
		} else {
			assert.Equal(t, 0.0, c.Percentage)
		}
	}
}

// =============================================================================
// Goals
// =============================================================================

func TestWeekAndMonthStart(t *testing.T) {
	assert.Equal(t, "2024-03-11", WeekStart(wednesday).Format(contracts.DateLayout))
	assert.Equal(t, "2024-03-01", MonthStart(wednesday).Format(contracts.DateLayout))

	sunday := time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-11", WeekStart(sunday).Format(contracts.DateLayout))

	monday := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-18", WeekStart(monday).Format(contracts.DateLayout))
}

func TestWeeklyGoalScenario(t *testing.T) {
	goals := contracts.Goals{Weekly: 500}
	ops := []*contracts.Operation{op("2024-03-12", 300)}

	g := ComputeGoals(ops, goals, wednesday)
	assert.Equal(t, 300.0, g.Weekly.Profit)
	assert.InDelta(t, 60.0, g.Weekly.Progress, 1e-9)
	assert.Equal(t, "2024-03-11", g.Weekly.PeriodStart)
	assert.Equal(t, "2024-03-18", g.Weekly.PeriodEnd)
}

func TestGoalPeriods(t *testing.T) {
	goals := contracts.Goals{Weekly: 1000, Monthly: 2000}
	ops := []*contracts.Operation{
		op("2024-02-29", 5000), // previous month
		op("2024-03-04", 400),  // this month, previous week
		op("2024-03-11", 200),  // Monday of this week
		op("2024-03-13", -50),  // today
		op("2024-03-14", 900),  // future, excluded
	}

	g := ComputeGoals(ops, goals, wednesday)
	assert.Equal(t, 150.0, g.Weekly.Profit)
	assert.InDelta(t, 15.0, g.Weekly.Progress, 1e-9)
	assert.Equal(t, 550.0, g.Monthly.Profit)
	assert.InDelta(t, 27.5, g.Monthly.Progress, 1e-9)
	assert.Equal(t, "2024-03-01", g.Monthly.PeriodStart)
	assert.Equal(t, "2024-04-01", g.Monthly.PeriodEnd)
}

func TestGoalProgressCanBeNegativeOrAbove100(t *testing.T) {
	g := ComputeGoals([]*contracts.Operation{op("2024-03-12", -200)}, contracts.Goals{Weekly: 100}, wednesday)
	assert.InDelta(t, -200.0, g.Weekly.Progress, 1e-9)

	g = ComputeGoals([]*contracts.Operation{op("2024-03-12", 300)}, contracts.Goals{Weekly: 100}, wednesday)
	assert.InDelta(t, 300.0, g.Weekly.Progress, 1e-9)
}

func TestZeroGoalYieldsZeroProgress(t *testing.T) {
	for _, amount := range []float64{-1000, 0, 1, 99999} {
		g := ComputeGoals([]*contracts.Operation{op("2024-03-12", amount)}, contracts.Goals{}, wednesday)
		assert.Equal(t, 0.0, g.Weekly.Progress)
		assert.Equal(t, 0.0, g.Monthly.Progress)
		assert.Equal(t, amount, g.Weekly.Profit)
	}
}

func TestGoalsUseNowWallClockDate(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 00:30 Monday in Madrid is still Sunday in UTC
	now := time.Date(2024, 3, 18, 0, 30, 0, 0, madrid)
	g := ComputeGoals([]*contracts.Operation{op("2024-03-18", 100)}, contracts.Goals{Weekly: 100}, now)
	assert.Equal(t, "2024-03-18", g.Weekly.PeriodStart)
	assert.Equal(t, 100.0, g.Weekly.Progress)
}

// =============================================================================
// Growth Series
// =============================================================================

func TestBuildGrowthSeries(t *testing.T) {
	s := settings(50000, 2500, 40)
	ops := []*contracts.Operation{op("2024-03-12", -4000), op("2024-03-11", 1000)}

	series := BuildGrowthSeries(ops, s)
	require.Len(t, series, 3)

	assert.Equal(t, GrowthPoint{Label: GrowthLabelStart, Balance: 50000, HWM: 50000, Floor: 47500}, series[0])
	assert.Equal(t, GrowthPoint{Label: "2024-03-11", Balance: 51000, HWM: 51000, Floor: 48500}, series[1])
	assert.Equal(t, GrowthPoint{Label: "2024-03-12", Balance: 47000, HWM: 51000, Floor: 48500}, series[2])
}

func TestGrowthSeriesSameDayKeepsInsertionOrder(t *testing.T) {
	s := settings(1000, 100, 40)
	ops := []*contracts.Operation{op("2024-03-11", 500), op("2024-03-10", 1), op("2024-03-11", -600)}

	series := BuildGrowthSeries(ops, s)
	require.Len(t, series, 4)
	assert.Equal(t, 1001.0, series[1].Balance)
	assert.Equal(t, 1501.0, series[2].Balance)
	assert.Equal(t, 901.0, series[3].Balance)
	assert.Equal(t, 1501.0, series[3].HWM)
}

func TestGrowthSeriesProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := settings(20000, 1000, 40)

	ops := make([]*contracts.Operation, 60)
	for i := range ops {
		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.Intn(90))
		ops[i] = &contracts.Operation{Date: day, Amount: float64(rng.Intn(1000) - 450)}
	}

	series := BuildGrowthSeries(ops, s)
	require.Len(t, series, len(ops)+1)
	assert.Equal(t, s.InitialBalance, series[0].Balance)
	assert.InDelta(t, ComputeBalance(s.InitialBalance, ops).CurrentBalance, series[len(series)-1].Balance, 1e-6)

	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i].HWM, series[i-1].HWM)
		assert.Equal(t, series[i].HWM-s.TrailingDrawdownAmount, series[i].Floor)
	}
}

func TestGrowthSeriesEmpty(t *testing.T) {
	series := BuildGrowthSeries(nil, settings(50000, 2500, 40))
	require.Len(t, series, 1)
	assert.Equal(t, 50000.0, RecomputeHWM(nil, settings(50000, 2500, 40)))
}

// =============================================================================
// Engine
// =============================================================================

func TestEvaluateEmptyAccount(t *testing.T) {
	res := NewEngine().Evaluate(Input{Settings: contracts.DefaultSettings(), Now: wednesday})

	assert.Equal(t, 50000.0, res.CurrentBalance)
	assert.Equal(t, 0.0, res.TotalProfitLoss)
	assert.Equal(t, 0.0, res.ROI)
	assert.Equal(t, 50000.0, res.HWM)
	assert.False(t, res.HWMAdvanced)
	assert.Equal(t, 47500.0, res.DrawdownFloor)
	assert.Equal(t, 2500.0, res.MarginToFloor)
	assert.False(t, res.Breached)
	assert.True(t, res.ConsistencyCompliant)
	assert.Equal(t, ConsistencyInsufficientData, res.Consistency.Status)
	assert.Len(t, res.GrowthSeries, 1)
	assert.Len(t, res.Weekdays, 7)
	assert.Equal(t, 0, res.OperationCount)
	assert.Equal(t, wednesday, res.EvaluatedAt)
}

func TestEvaluateKeepsPriorHWMAboveBalance(t *testing.T) {
	res := NewEngine().Evaluate(Input{
		Operations: []*contracts.Operation{op("2024-03-11", 100)},
		Settings:   settings(50000, 2500, 40),
		PriorHWM:   ptr(53000),
		Now:        wednesday,
	})

	assert.Equal(t, 53000.0, res.HWM)
	assert.Equal(t, 50500.0, res.DrawdownFloor)
	assert.Equal(t, -400.0, res.MarginToFloor)
	assert.True(t, res.Breached)
}

func TestEvaluateGoalsAndConsistency(t *testing.T) {
	res := NewEngine().Evaluate(Input{
		Operations: []*contracts.Operation{op("2024-03-11", 600), op("2024-03-12", 400)},
		Settings:   settings(50000, 2500, 40),
		Goals:      contracts.Goals{Weekly: 500, Monthly: 4000},
		Now:        wednesday,
	})

	assert.InDelta(t, 60.0, res.ConsistencyPercentage, 1e-9)
	assert.False(t, res.ConsistencyCompliant)
	assert.Equal(t, 1000.0, res.WeeklyProfit)
	assert.InDelta(t, 200.0, res.WeeklyProgress, 1e-9)
	assert.Equal(t, 1000.0, res.MonthlyProfit)
	assert.InDelta(t, 25.0, res.MonthlyProgress, 1e-9)
	assert.Equal(t, 2, res.OperationCount)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	in := Input{
		Operations: []*contracts.Operation{op("2024-03-11", 600), op("2024-03-12", -400)},
		Settings:   settings(50000, 2500, 40),
		PriorHWM:   ptr(50600),
		Now:        wednesday,
	}

	engine := NewEngine()
	assert.Equal(t, engine.Evaluate(in), engine.Evaluate(in))
}

package risk

import (
	"time"
)

// =============================================================================
// Engine - pure calculator
// =============================================================================

// Engine evaluates a journal snapshot into account risk metrics
// ⭐ SSOT: loading snapshots and persisting the advanced HWM belong to the caller
// internal/risk only computes
type Engine struct {
	clock func() time.Time
}

// NewEngine creates a risk engine
func NewEngine() *Engine {
	return &Engine{clock: time.Now}
}

// Evaluate runs every calculation over one snapshot. It never fails:
// breaches and violations are reported states.
func (e *Engine) Evaluate(in Input) *Result {
	now := in.Now
	if now.IsZero() {
		now = e.clock()
	}

	balance := ComputeBalance(in.Settings.InitialBalance, in.Operations)

	seed := SeedHWM(in.PriorHWM, in.Settings.InitialBalance)
	hwm, advanced := AdvanceHWM(seed, balance.CurrentBalance)
	drawdown := ComputeDrawdown(hwm, in.Settings.TrailingDrawdownAmount, balance.CurrentBalance)

	consistency := CheckConsistency(in.Operations, in.Settings.ConsistencyPercentage)
	goals := ComputeGoals(in.Operations, in.Goals, now)

	count := 0
	for _, op := range in.Operations {
		if op != nil {
			count++
		}
	}

	return &Result{
		CurrentBalance:  balance.CurrentBalance,
		TotalProfitLoss: balance.TotalProfitLoss,
		ROI:             balance.ROI,

		HWM:           drawdown.HWM,
		HWMAdvanced:   advanced,
		DrawdownFloor: drawdown.Floor,
		MarginToFloor: drawdown.MarginToFloor,
		Breached:      drawdown.Breached,

		ConsistencyPercentage: consistency.Percentage,
		ConsistencyCompliant:  consistency.Compliant,
		Consistency:           consistency,

		WeeklyProfit:    goals.Weekly.Profit,
		WeeklyProgress:  goals.Weekly.Progress,
		MonthlyProfit:   goals.Monthly.Profit,
		MonthlyProgress: goals.Monthly.Progress,
		Goals:           goals,

		GrowthSeries: BuildGrowthSeries(in.Operations, in.Settings),
		Weekdays:     WeekdayPerformance(in.Operations),
		Settings:     in.Settings,

		OperationCount: count,
		EvaluatedAt:    now,
	}
}

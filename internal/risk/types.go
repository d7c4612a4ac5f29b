package risk

import (
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// =============================================================================
// Evaluation Context
// =============================================================================

// Input is the full snapshot the engine evaluates
// ⭐ SSOT: the engine keeps no state between evaluations; everything arrives here
type Input struct {
	Operations []*contracts.Operation
	Settings   contracts.Settings
	Goals      contracts.Goals
	PriorHWM   *float64  // nil when no high-water-mark was persisted yet
	Now        time.Time // already in the account's timezone
}

// =============================================================================
// Metric Types
// =============================================================================

// Balance is the account balance derived from all operations
type Balance struct {
	CurrentBalance  float64 `json:"current_balance"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
	ROI             float64 `json:"roi"` // percent of the initial balance
}

// Drawdown is the trailing drawdown state for a given high-water-mark
type Drawdown struct {
	HWM           float64 `json:"hwm"`
	Floor         float64 `json:"drawdown_floor"`
	MarginToFloor float64 `json:"margin_to_floor"`
	Breached      bool    `json:"breached"`
}

// ConsistencyStatus is the advisory tier of the consistency rule
type ConsistencyStatus string

const (
	ConsistencyOK               ConsistencyStatus = "ok"
	ConsistencyWarning          ConsistencyStatus = "warning"
	ConsistencyViolation        ConsistencyStatus = "violation"
	ConsistencyInsufficientData ConsistencyStatus = "insufficient_data"
)

// WarningRatio is the share of the limit above which the rule warns
const WarningRatio = 0.8

// DailyProfit is the positive profit realized on one calendar date
type DailyProfit struct {
	Date   string  `json:"date"`
	Profit float64 `json:"profit"`
}

// Consistency is the result of the single-day concentration rule
type Consistency struct {
	Percentage          float64           `json:"percentage"`
	Limit               float64           `json:"limit"`
	Compliant           bool              `json:"compliant"`
	Status              ConsistencyStatus `json:"status"`
	MaxDay              string            `json:"max_day,omitempty"`
	MaxDayProfit        float64           `json:"max_day_profit"`
	TotalPositiveProfit float64           `json:"total_positive_profit"`
	Days                []DailyProfit     `json:"days"`
}

// GoalProgress is realized profit against one period target
type GoalProgress struct {
	Goal        float64 `json:"goal"`
	Profit      float64 `json:"profit"`
	Progress    float64 `json:"progress"` // percent, may be negative or above 100
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"` // exclusive
}

// GoalsProgress holds the weekly and monthly goal progress
type GoalsProgress struct {
	Weekly  GoalProgress `json:"weekly"`
	Monthly GoalProgress `json:"monthly"`
}

// GrowthLabelStart labels the synthetic point before any operation
const GrowthLabelStart = "start"

// GrowthPoint is one step of the capital-growth series
type GrowthPoint struct {
	Label   string  `json:"label"`
	Balance float64 `json:"balance"`
	HWM     float64 `json:"hwm"`
	Floor   float64 `json:"floor"`
}

// WeekdayStats is P/L and win rate for one day of the week
type WeekdayStats struct {
	Weekday    string  `json:"weekday"`
	ProfitLoss float64 `json:"profit_loss"`
	Wins       int     `json:"wins"`
	Total      int     `json:"total"`
	WinRate    float64 `json:"win_rate"`
}

// =============================================================================
// Result
// =============================================================================

// Result is the output contract of one evaluation
type Result struct {
	CurrentBalance  float64 `json:"current_balance"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
	ROI             float64 `json:"roi"`

	HWM           float64 `json:"hwm"`
	HWMAdvanced   bool    `json:"hwm_advanced"`
	DrawdownFloor float64 `json:"drawdown_floor"`
	MarginToFloor float64 `json:"margin_to_floor"`
	Breached      bool    `json:"breached"`

	ConsistencyPercentage float64     `json:"consistency_percentage"`
	ConsistencyCompliant  bool        `json:"consistency_compliant"`
	Consistency           Consistency `json:"consistency"`

	WeeklyProfit    float64       `json:"weekly_profit"`
	WeeklyProgress  float64       `json:"weekly_progress"`
	MonthlyProfit   float64       `json:"monthly_profit"`
	MonthlyProgress float64       `json:"monthly_progress"`
	Goals           GoalsProgress `json:"goals"`

	GrowthSeries []GrowthPoint      `json:"growth_series"`
	Weekdays     []WeekdayStats     `json:"weekdays"`
	Settings     contracts.Settings `json:"settings"`

	OperationCount int       `json:"operation_count"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

package risk

import (
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// WeekStart returns the Monday of now's calendar week as a calendar date
func WeekStart(now time.Time) time.Time {
	today := contracts.Day(now)
	offset := (int(today.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return today.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of now's month as a calendar date
func MonthStart(now time.Time) time.Time {
	today := contracts.Day(now)
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ComputeGoals sums profit over the current week and month, both measured up to today.
// Operations dated after today are not counted.
func ComputeGoals(ops []*contracts.Operation, goals contracts.Goals, now time.Time) GoalsProgress {
	today := contracts.Day(now)

	weekStart := WeekStart(now)
	monthStart := MonthStart(now)

	return GoalsProgress{
		Weekly:  periodProgress(ops, goals.Weekly, weekStart, weekStart.AddDate(0, 0, 7), today),
		Monthly: periodProgress(ops, goals.Monthly, monthStart, monthStart.AddDate(0, 1, 0), today),
	}
}

func periodProgress(ops []*contracts.Operation, goal float64, start, end, today time.Time) GoalProgress {
	profit := 0.0
	for _, op := range ops {
		if op == nil {
			continue
		}
		d := contracts.Day(op.Date)
		if d.Before(start) || d.After(today) || !d.Before(end) {
			continue
		}
		profit += op.SafeAmount()
	}

	return GoalProgress{
		Goal:        goal,
		Profit:      profit,
		Progress:    Progress(profit, goal),
		PeriodStart: start.Format(contracts.DateLayout),
		PeriodEnd:   end.Format(contracts.DateLayout),
	}
}

// Progress is profit as a percentage of goal; 0 when no goal is set
func Progress(profit, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return profit / goal * 100
}

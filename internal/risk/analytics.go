package risk

import (
	"sort"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// =============================================================================
// Journal Analytics
// =============================================================================

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WeekdayPerformance aggregates P/L and win rate per day of week, Monday first.
// All seven days are always present.
func WeekdayPerformance(ops []*contracts.Operation) []WeekdayStats {
	index := make(map[time.Weekday]int, len(weekOrder))
	stats := make([]WeekdayStats, len(weekOrder))
	for i, wd := range weekOrder {
		index[wd] = i
		stats[i].Weekday = wd.String()
	}

	for _, op := range ops {
		if op == nil {
			continue
		}
		s := &stats[index[contracts.Day(op.Date).Weekday()]]
		amount := op.SafeAmount()
		s.ProfitLoss += amount
		s.Total++
		if amount > 0 {
			s.Wins++
		}
	}

	for i := range stats {
		if stats[i].Total > 0 {
			stats[i].WinRate = float64(stats[i].Wins) / float64(stats[i].Total) * 100
		}
	}
	return stats
}

// Result filters for FilterOperations
const (
	ResultWin     = "win"
	ResultLoss    = "loss"
	ResultNeutral = "neutral"
)

// Filter narrows an operation list. Zero values match everything.
type Filter struct {
	Year   int
	Month  int    // 1-12
	Kind   string // "none" matches operations without a kind
	Result string // win, loss, neutral
}

// FilterOperations returns the operations matching f, order preserved
func FilterOperations(ops []*contracts.Operation, f Filter) []*contracts.Operation {
	out := make([]*contracts.Operation, 0, len(ops))
	for _, op := range ops {
		if op == nil || !f.matches(op) {
			continue
		}
		out = append(out, op)
	}
	return out
}

func (f Filter) matches(op *contracts.Operation) bool {
	if f.Year != 0 && op.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(op.Date.Month()) != f.Month {
		return false
	}

	switch f.Kind {
	case "":
	case "none":
		if op.Kind != contracts.KindNone {
			return false
		}
	default:
		if string(op.Kind) != f.Kind {
			return false
		}
	}

	amount := op.SafeAmount()
	switch f.Result {
	case ResultWin:
		return amount > 0
	case ResultLoss:
		return amount < 0
	case ResultNeutral:
		return amount == 0
	}
	return true
}

// Recent returns at most n operations, newest date first.
// n <= 0 returns all of them.
func Recent(ops []*contracts.Operation, n int) []*contracts.Operation {
	sorted := SortChronological(ops)
	// reverse keeps same-day operations newest-inserted first
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Years lists the distinct years present in ops, newest first
func Years(ops []*contracts.Operation) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, op := range ops {
		if op == nil {
			continue
		}
		y := op.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

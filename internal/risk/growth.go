package risk

import (
	"sort"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// SortChronological returns a copy of ops ordered by date ascending.
// Same-day operations keep their relative order.
func SortChronological(ops []*contracts.Operation) []*contracts.Operation {
	sorted := make([]*contracts.Operation, 0, len(ops))
	for _, op := range ops {
		if op != nil {
			sorted = append(sorted, op)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return contracts.Day(sorted[i].Date).Before(contracts.Day(sorted[j].Date))
	})
	return sorted
}

// BuildGrowthSeries replays the history from the initial balance and emits
// one point per operation, preceded by a synthetic starting point
func BuildGrowthSeries(ops []*contracts.Operation, settings contracts.Settings) []GrowthPoint {
	sorted := SortChronological(ops)

	balance := settings.InitialBalance
	hwm := settings.InitialBalance

	series := make([]GrowthPoint, 0, len(sorted)+1)
	series = append(series, GrowthPoint{
		Label:   GrowthLabelStart,
		Balance: balance,
		HWM:     hwm,
		Floor:   hwm - settings.TrailingDrawdownAmount,
	})

	for _, op := range sorted {
		balance += op.SafeAmount()
		hwm, _ = AdvanceHWM(hwm, balance)
		series = append(series, GrowthPoint{
			Label:   op.DateString(),
			Balance: balance,
			HWM:     hwm,
			Floor:   hwm - settings.TrailingDrawdownAmount,
		})
	}

	return series
}

// RecomputeHWM returns the high-water-mark derived from the complete history
func RecomputeHWM(ops []*contracts.Operation, settings contracts.Settings) float64 {
	series := BuildGrowthSeries(ops, settings)
	return series[len(series)-1].HWM
}

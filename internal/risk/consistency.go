package risk

import (
	"sort"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// CheckConsistency measures how much of the total positive profit came from
// the single best day. With no positive profit the rule is vacuously compliant.
func CheckConsistency(ops []*contracts.Operation, limit float64) Consistency {
	byDay := make(map[string]float64)
	for _, op := range ops {
		if op == nil {
			continue
		}
		amount := op.SafeAmount()
		if amount <= 0 {
			continue
		}
		byDay[op.DateString()] += amount
	}

	result := Consistency{
		Limit:     limit,
		Compliant: true,
		Status:    ConsistencyInsufficientData,
		Days:      make([]DailyProfit, 0, len(byDay)),
	}

	for date, profit := range byDay {
		result.Days = append(result.Days, DailyProfit{Date: date, Profit: profit})
	}
	sort.Slice(result.Days, func(i, j int) bool {
		return result.Days[i].Date < result.Days[j].Date
	})

	// ascending date order makes the earliest date win ties
	for _, d := range result.Days {
		result.TotalPositiveProfit += d.Profit
		if d.Profit > result.MaxDayProfit {
			result.MaxDayProfit = d.Profit
			result.MaxDay = d.Date
		}
	}

	if result.TotalPositiveProfit <= 0 {
		return result
	}

	result.Percentage = result.MaxDayProfit / result.TotalPositiveProfit * 100
	result.Compliant = result.Percentage <= limit

	switch {
	case result.Percentage > limit:
		result.Status = ConsistencyViolation
	case result.Percentage > limit*WarningRatio:
		result.Status = ConsistencyWarning
	default:
		result.Status = ConsistencyOK
	}

	return result
}

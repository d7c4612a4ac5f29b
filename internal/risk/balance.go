package risk

import (
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// ComputeBalance sums every operation onto the initial balance.
// Non-finite amounts count as 0.
func ComputeBalance(initialBalance float64, ops []*contracts.Operation) Balance {
	total := 0.0
	for _, op := range ops {
		if op == nil {
			continue
		}
		total += op.SafeAmount()
	}

	roi := 0.0
	if initialBalance > 0 {
		roi = total / initialBalance * 100
	}

	return Balance{
		CurrentBalance:  initialBalance + total,
		TotalProfitLoss: total,
		ROI:             roi,
	}
}

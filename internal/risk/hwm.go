package risk

// =============================================================================
// High-Water-Mark Ratchet
// =============================================================================

// SeedHWM returns the persisted high-water-mark, or the initial balance
// when the account has none yet
func SeedHWM(prior *float64, initialBalance float64) float64 {
	if prior == nil {
		return initialBalance
	}
	return *prior
}

// AdvanceHWM is the ratchet transition: the new mark is max(prior, current).
// advanced reports whether the mark moved and must be persisted.
func AdvanceHWM(prior, current float64) (hwm float64, advanced bool) {
	if current > prior {
		return current, true
	}
	return prior, false
}

// ComputeDrawdown derives the trailing floor and the margin above it
func ComputeDrawdown(hwm, trailingAmount, currentBalance float64) Drawdown {
	floor := hwm - trailingAmount
	margin := currentBalance - floor
	return Drawdown{
		HWM:           hwm,
		Floor:         floor,
		MarginToFloor: margin,
		Breached:      margin < 0,
	}
}

package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Account groups operations, settings, goals and a high-water-mark
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required account fields
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}
	return nil
}

// Settings is the per-account risk configuration
// ⭐ SSOT: immutable during a single evaluation
type Settings struct {
	InitialBalance         float64 `json:"initial_balance" yaml:"initial_balance"`
	TrailingDrawdownAmount float64 `json:"trailing_drawdown_amount" yaml:"trailing_drawdown_amount"`
	ConsistencyPercentage  float64 `json:"consistency_percentage" yaml:"consistency_percentage"`
}

// DefaultSettings mirrors the defaults of a freshly created account
func DefaultSettings() Settings {
	return Settings{
		InitialBalance:         50000,
		TrailingDrawdownAmount: 2500,
		ConsistencyPercentage:  40,
	}
}

// Validate checks the settings invariants
func (s Settings) Validate() error {
	if !finite(s.InitialBalance) {
		return fmt.Errorf("%w: initial_balance must be a finite number", ErrInvalidInput)
	}
	if !finite(s.TrailingDrawdownAmount) || s.TrailingDrawdownAmount < 0 {
		return fmt.Errorf("%w: trailing_drawdown_amount must be a non-negative number", ErrInvalidInput)
	}
	if !finite(s.ConsistencyPercentage) || s.ConsistencyPercentage <= 0 || s.ConsistencyPercentage > 100 {
		return fmt.Errorf("%w: consistency_percentage must be in (0, 100]", ErrInvalidInput)
	}
	return nil
}

// Goals are weekly and monthly profit targets; 0 means no goal
type Goals struct {
	Weekly  float64 `json:"weekly" yaml:"weekly"`
	Monthly float64 `json:"monthly" yaml:"monthly"`
}

// Validate checks that goals are finite and not negative
func (g Goals) Validate() error {
	if !finite(g.Weekly) || g.Weekly < 0 {
		return fmt.Errorf("%w: weekly goal must be a non-negative number", ErrInvalidInput)
	}
	if !finite(g.Monthly) || g.Monthly < 0 {
		return fmt.Errorf("%w: monthly goal must be a non-negative number", ErrInvalidInput)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

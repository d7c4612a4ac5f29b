package accountcfg

import (
	"fmt"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match contracts.ErrInvalidInput
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidInput
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Account.Name == "" {
		return ValidationError{"account.name", "required"}
	}

	s := cfg.Settings
	if s.TrailingDrawdownAmount < 0 {
		return ValidationError{"settings.trailing_drawdown_amount", "must be >= 0"}
	}
	if s.ConsistencyPercentage <= 0 || s.ConsistencyPercentage > 100 {
		return ValidationError{"settings.consistency_percentage", "must be in (0, 100]"}
	}
	if err := s.Validate(); err != nil {
		return ValidationError{"settings", err.Error()}
	}

	if cfg.Goals.Weekly < 0 {
		return ValidationError{"goals.weekly", "must be >= 0"}
	}
	if cfg.Goals.Monthly < 0 {
		return ValidationError{"goals.monthly", "must be >= 0"}
	}
	if err := cfg.Goals.Validate(); err != nil {
		return ValidationError{"goals", err.Error()}
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return ValidationError{"timezone", err.Error()}
		}
	}

	return nil
}

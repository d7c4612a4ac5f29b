package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// AmountPlaces is the precision imported amounts are rounded to
const AmountPlaces = 2

var currencyStripper = strings.NewReplacer(
	"€", "", "$", "", "USD", "", "EUR", "", " ", "", "\u00a0", "", "'", "",
)

// ParseAmount parses a money amount written either way the journal sees it:
// "1234.5", "-1.234,50", "1,234.50", "(250)" or "€ 75,25".
// A single comma with no dot is a decimal comma.
func ParseAmount(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: amount is empty", contracts.ErrInvalidInput)
	}

	v := currencyStripper.Replace(raw)

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	if strings.HasSuffix(v, "-") {
		negative = !negative
		v = strings.TrimSuffix(v, "-")
	}
	if strings.HasPrefix(v, "+") {
		v = v[1:]
	}

	v = normalizeSeparators(v)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", contracts.ErrInvalidInput, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(AmountPlaces).InexactFloat64(), nil
}

func normalizeSeparators(v string) string {
	dot := strings.LastIndex(v, ".")
	comma := strings.LastIndex(v, ",")

	switch {
	case dot >= 0 && comma >= 0:
		// the separator that appears last is the decimal one
		if comma > dot {
			v = strings.ReplaceAll(v, ".", "")
			return strings.Replace(v, ",", ".", 1)
		}
		return strings.ReplaceAll(v, ",", "")
	case comma >= 0:
		if strings.Count(v, ",") > 1 {
			return strings.ReplaceAll(v, ",", "")
		}
		return strings.Replace(v, ",", ".", 1)
	case strings.Count(v, ".") > 1:
		return strings.ReplaceAll(v, ".", "")
	}
	return v
}

// FormatAmount renders an amount with a dot decimal separator and two places
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(AmountPlaces)
}

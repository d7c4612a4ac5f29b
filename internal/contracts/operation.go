package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// =============================================================================
// Operation - one logged trade
// =============================================================================

// Kind is the directional tag of an operation
type Kind string

const (
	KindNone    Kind = ""
	KindBullish Kind = "bullish"
	KindBearish Kind = "bearish"
	KindOther   Kind = "other"
)

// ParseKind normalizes a user supplied kind. Spanish labels from the web
// client ("alcista", "bajista") are accepted as well.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "ninguno", "n/a":
		return KindNone, nil
	case "bullish", "alcista", "long", "buy":
		return KindBullish, nil
	case "bearish", "bajista", "short", "sell":
		return KindBearish, nil
	case "other", "otro":
		return KindOther, nil
	default:
		return KindNone, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, s)
	}
}

// Label returns the display label used by the web client
func (k Kind) Label() string {
	switch k {
	case KindBullish:
		return "Alcista"
	case KindBearish:
		return "Bajista"
	case KindOther:
		return "Otro"
	default:
		return "N/A"
	}
}

// Operation is a single trade with a calendar date and a signed P/L amount
// ⭐ SSOT: the risk engine reads only Date and Amount; every other field is carried through
type Operation struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Kind      Kind      `json:"kind,omitempty"`

	Instrument string `json:"instrument,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
	Contracts  *int   `json:"contracts,omitempty"`
	EntryType  string `json:"entry_type,omitempty"`
	ExitType   string `json:"exit_type,omitempty"`
	EntryTime  string `json:"entry_time,omitempty"` // HH:MM
	ExitTime   string `json:"exit_time,omitempty"`  // HH:MM
	Mood       string `json:"mood,omitempty"`
	Notes      string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DateLayout is the calendar date format used on the wire and in storage
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC.
// The wall-clock date in t's own location is kept.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar date
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// DateString formats the operation date as YYYY-MM-DD
func (o *Operation) DateString() string {
	return o.Date.Format(DateLayout)
}

// Validate checks the operation invariants: finite amount and a valid date
func (o *Operation) Validate() error {
	if o.AccountID == "" {
		return fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	if o.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if math.IsNaN(o.Amount) || math.IsInf(o.Amount, 0) {
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidInput)
	}
	if _, err := ParseKind(string(o.Kind)); err != nil {
		return err
	}
	if o.Contracts != nil && *o.Contracts < 0 {
		return fmt.Errorf("%w: contracts must not be negative", ErrInvalidInput)
	}
	for _, hm := range []string{o.EntryTime, o.ExitTime} {
		if hm == "" {
			continue
		}
		if _, err := time.Parse("15:04", hm); err != nil {
			return fmt.Errorf("%w: invalid time %q (want HH:MM)", ErrInvalidInput, hm)
		}
	}
	return nil
}

// Normalize truncates the date and canonicalizes the kind
func (o *Operation) Normalize() {
	o.Date = Day(o.Date)
	if k, err := ParseKind(string(o.Kind)); err == nil {
		o.Kind = k
	}
	o.Instrument = strings.TrimSpace(o.Instrument)
	o.Strategy = strings.TrimSpace(o.Strategy)
}

// SafeAmount returns the amount, or 0 when it is not finite
func (o *Operation) SafeAmount() float64 {
	if math.IsNaN(o.Amount) || math.IsInf(o.Amount, 0) {
		return 0
	}
	return o.Amount
}

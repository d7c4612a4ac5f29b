package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// Canonical column names, matching the operaciones table of the web client
const (
	ColID        = "id"
	ColDate      = "fecha"
	ColAmount    = "importe"
	ColKind      = "tipo"
	ColAsset     = "activo"
	ColStrategy  = "estrategia"
	ColContracts = "contratos"
	ColEntryType = "tipo_entrada"
	ColExitType  = "tipo_salida"
	ColEntryTime = "hora_entrada"
	ColExitTime  = "hora_salida"
	ColMood      = "animo"
	ColNotes     = "notas"
)

// Columns is the export column order
var Columns = []string{
	ColDate, ColAmount, ColKind, ColAsset, ColStrategy, ColContracts,
	ColEntryType, ColExitType, ColEntryTime, ColExitTime, ColMood, ColNotes, ColID,
}

var aliases = map[string]string{
	"id": ColID, "operation_id": ColID,

	"fecha": ColDate, "date": ColDate, "dia": ColDate, "day": ColDate, "trade_date": ColDate,

	"importe": ColAmount, "amount": ColAmount, "pnl": ColAmount, "p&l": ColAmount, "p/l": ColAmount,
	"profit": ColAmount, "resultado": ColAmount, "net_p&l": ColAmount, "net_pnl": ColAmount, "realized_pl": ColAmount,

	"tipo": ColKind, "kind": ColKind, "type": ColKind, "direction": ColKind, "side": ColKind,

	"activo": ColAsset, "instrument": ColAsset, "symbol": ColAsset, "simbolo": ColAsset, "asset": ColAsset,

	"estrategia": ColStrategy, "strategy": ColStrategy, "setup": ColStrategy,

	"contratos": ColContracts, "contracts": ColContracts, "qty": ColContracts, "quantity": ColContracts, "size": ColContracts,

	"tipo_entrada": ColEntryType, "entry_type": ColEntryType,
	"tipo_salida": ColExitType, "exit_type": ColExitType,
	"hora_entrada": ColEntryTime, "entry_time": ColEntryTime,
	"hora_salida": ColExitTime, "exit_time": ColExitTime,

	"animo": ColMood, "mood": ColMood, "estado_animo": ColMood,
	"notas": ColNotes, "notes": ColNotes, "comentarios": ColNotes, "comments": ColNotes,
}

var headerCleaner = strings.NewReplacer(
	"\ufeff", "", " ", "_", "-", "_",
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
)

// canonicalColumn maps a raw header cell to a canonical column, or ""
func canonicalColumn(header string) string {
	h := headerCleaner.Replace(strings.ToLower(strings.TrimSpace(header)))
	return aliases[h]
}

// columnIndex maps canonical columns to their position in a header row.
// The first occurrence of a column wins.
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, h := range header {
		col := canonicalColumn(h)
		if col == "" {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}

	for _, required := range []string{ColDate, ColAmount} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", contracts.ErrInvalidInput, required)
		}
	}
	return idx, nil
}

func (c columnIndex) get(row []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var dateLayouts = []string{
	contracts.DateLayout,
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts ISO dates and the day-first formats a Spanish spreadsheet produces
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", contracts.ErrInvalidInput, s)
}

func parseClock(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("%w: invalid time %q", contracts.ErrInvalidInput, s)
}

// toOperation converts one data row. Only date and amount are required.
func (c columnIndex) toOperation(row []string, accountID string) (*contracts.Operation, error) {
	date, err := ParseDate(c.get(row, ColDate))
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(c.get(row, ColAmount))
	if err != nil {
		return nil, err
	}
	kind, err := contracts.ParseKind(c.get(row, ColKind))
	if err != nil {
		return nil, err
	}

	op := &contracts.Operation{
		ID:         c.get(row, ColID),
		AccountID:  accountID,
		Date:       date,
		Amount:     amount,
		Kind:       kind,
		Instrument: c.get(row, ColAsset),
		Strategy:   c.get(row, ColStrategy),
		EntryType:  c.get(row, ColEntryType),
		ExitType:   c.get(row, ColExitType),
		Mood:       c.get(row, ColMood),
		Notes:      c.get(row, ColNotes),
	}

	if v := c.get(row, ColContracts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid contracts %q", contracts.ErrInvalidInput, v)
		}
		op.Contracts = &n
	}

	if op.EntryTime, err = parseClock(c.get(row, ColEntryTime)); err != nil {
		return nil, err
	}
	if op.ExitTime, err = parseClock(c.get(row, ColExitTime)); err != nil {
		return nil, err
	}

	return op, nil
}

package supabase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/importer"
)

// IDPrefix marks operations that came from Supabase, so repeated syncs upsert
const IDPrefix = "sb-"

// Row is one record of the operaciones table as the web client wrote it
type Row struct {
	ID          json.Number `json:"id"`
	Fecha       string      `json:"fecha"`
	Tipo        string      `json:"tipo"`
	Activo      string      `json:"activo"`
	Estrategia  string      `json:"estrategia"`
	Contratos   json.Number `json:"contratos"`
	TipoEntrada string      `json:"tipo_entrada"`
	TipoSalida  string      `json:"tipo_salida"`
	HoraEntrada string      `json:"hora_entrada"`
	HoraSalida  string      `json:"hora_salida"`
	Importe     json.Number `json:"importe"`
	Animo       string      `json:"animo"`
	Notas       string      `json:"notas"`
	MediaURL    string      `json:"media_url"`
	UserID      string      `json:"user_id"`
	CuentaID    string      `json:"cuenta_id"`
}

// UnmarshalJSON accepts ids and numbers encoded either as JSON numbers or strings
func (r *Row) UnmarshalJSON(data []byte) error {
	type plain Row
	var raw struct {
		plain
		ID        interface{} `json:"id"`
		Contratos interface{} `json:"contratos"`
		Importe   interface{} `json:"importe"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Row(raw.plain)
	r.ID = toNumber(raw.ID)
	r.Contratos = toNumber(raw.Contratos)
	r.Importe = toNumber(raw.Importe)
	return nil
}

func toNumber(v interface{}) json.Number {
	switch n := v.(type) {
	case nil:
		return ""
	case json.Number:
		return n
	case string:
		return json.Number(n)
	case float64:
		return json.Number(strconv.FormatFloat(n, 'f', -1, 64))
	default:
		return json.Number(fmt.Sprint(n))
	}
}

// ToOperation maps a row onto an operation of accountID
func (r Row) ToOperation(accountID string) (*contracts.Operation, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("%w: row without id", contracts.ErrInvalidInput)
	}

	date, err := importer.ParseDate(r.Fecha)
	if err != nil {
		return nil, err
	}
	amount, err := importer.ParseAmount(r.Importe.String())
	if err != nil {
		return nil, err
	}
	kind, err := contracts.ParseKind(r.Tipo)
	if err != nil {
		kind = contracts.KindOther
	}

	op := &contracts.Operation{
		ID:         IDPrefix + r.ID.String(),
		AccountID:  accountID,
		Date:       date,
		Amount:     amount,
		Kind:       kind,
		Instrument: r.Activo,
		Strategy:   r.Estrategia,
		EntryType:  r.TipoEntrada,
		ExitType:   r.TipoSalida,
		EntryTime:  clock(r.HoraEntrada),
		ExitTime:   clock(r.HoraSalida),
		Mood:       r.Animo,
		Notes:      r.Notas,
	}

	if r.Contratos != "" {
		n, err := r.Contratos.Int64()
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid contratos %q", contracts.ErrInvalidInput, r.Contratos)
		}
		c := int(n)
		op.Contracts = &c
	}

	return op, nil
}

// clock trims PostgREST time values ("09:30:00") to HH:MM
func clock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 && s[2] == ':' {
		return s[:5]
	}
	return s
}

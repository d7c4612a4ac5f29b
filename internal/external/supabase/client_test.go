package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/config"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/httputil"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.SupabaseConfig{
		URL:            srv.URL + "/",
		APIKey:         "anon-key",
		Table:          "operaciones",
		RequestsPerSec: 1000,
	}
	return NewClient(cfg, httputil.New(logger.Nop()).DisableRetry(), logger.Nop())
}

func TestFetchOperationsMapsColumns(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/operaciones", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.cuenta-1", r.URL.Query().Get("cuenta_id"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 17, "fecha": "2024-03-04", "tipo": "Alcista", "activo": "NQ", "estrategia": "ORB",
			 "contratos": 2, "tipo_entrada": "limit", "tipo_salida": "target", "hora_entrada": "09:31:00",
			 "hora_salida": "09:58:00", "importe": 412.5, "animo": "tranquilo", "notas": "ok",
			 "media_url": null, "user_id": "u-1", "cuenta_id": "cuenta-1"},
			{"id": "18", "fecha": "2024-03-05", "tipo": null, "importe": "-125,25", "contratos": null},
			{"id": 19, "fecha": "not a date", "importe": 1}
		]`)
	})

	ops, skipped, err := client.FetchOperations(context.Background(), "cuenta-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, ops, 2)

	first := ops[0]
	assert.Equal(t, "sb-17", first.ID)
	assert.Equal(t, "acc-1", first.AccountID)
	assert.Equal(t, "2024-03-04", first.DateString())
	assert.Equal(t, 412.5, first.Amount)
	assert.Equal(t, contracts.KindBullish, first.Kind)
	assert.Equal(t, "NQ", first.Instrument)
	assert.Equal(t, "ORB", first.Strategy)
	require.NotNil(t, first.Contracts)
	assert.Equal(t, 2, *first.Contracts)
	assert.Equal(t, "09:31", first.EntryTime)
	assert.Equal(t, "09:58", first.ExitTime)
	assert.Equal(t, "tranquilo", first.Mood)
	assert.NoError(t, first.Validate())

	second := ops[1]
	assert.Equal(t, "sb-18", second.ID)
	assert.Equal(t, -125.25, second.Amount)
	assert.Equal(t, contracts.KindNone, second.Kind)
	assert.Nil(t, second.Contracts)
}

func TestFetchRowsPaginates(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		n := PageSize
		if offset >= PageSize {
			n = 3
		}
		fmt.Fprint(w, "[")
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id": %d, "fecha": "2024-03-04", "importe": 1}`, offset+i)
		}
		fmt.Fprint(w, "]")
	})

	rows, err := client.FetchRows(context.Background(), "cuenta-1")
	require.NoError(t, err)
	assert.Len(t, rows, PageSize+3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "502", rows[len(rows)-1].ID.String())
}

func TestFetchRowsErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Invalid API key"}`)
	})

	_, err := client.FetchRows(context.Background(), "cuenta-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestUnknownTipoBecomesOther(t *testing.T) {
	op, err := Row{ID: "5", Fecha: "2024-03-04", Tipo: "lateral", Importe: "10"}.ToOperation("acc-1")
	require.NoError(t, err)
	assert.Equal(t, contracts.KindOther, op.Kind)

	_, err = Row{Fecha: "2024-03-04", Importe: "10"}.ToOperation("acc-1")
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

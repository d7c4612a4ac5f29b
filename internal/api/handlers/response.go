package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// =============================================================================
// Response helpers
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps the contracts sentinel errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError answers with the mapped status. Internal errors are logged
// and replaced by message so storage details do not leak to clients.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error(message)
		respondError(w, status, message)
		return
	}
	respondError(w, status, err.Error())
}

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func accountID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// =============================================================================
// Query parsing
// =============================================================================

// parseFilter reads year, month, kind and result from the query string
func parseFilter(r *http.Request) (risk.Filter, error) {
	q := r.URL.Query()
	var f risk.Filter

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 {
			return f, errors.New("invalid 'year' (expected a positive integer)")
		}
		f.Year = year
	}

	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return f, errors.New("invalid 'month' (expected 1-12)")
		}
		f.Month = month
	}

	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		kind, err := contracts.ParseKind(v)
		if err != nil {
			return f, err
		}
		if kind == contracts.KindNone {
			f.Kind = "none"
		} else {
			f.Kind = string(kind)
		}
	}

	switch v := strings.ToLower(q.Get("result")); v {
	case "", risk.ResultWin, risk.ResultLoss, risk.ResultNeutral:
		f.Result = v
	default:
		return f, errors.New("invalid 'result' (expected win, loss or neutral)")
	}

	return f, nil
}

// parseLimit reads the optional limit query parameter; 0 means no limit
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid 'limit' (expected a non-negative integer)")
	}
	return limit, nil
}

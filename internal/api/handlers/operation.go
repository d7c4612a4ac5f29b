package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// OperationHandler handles operation CRUD endpoints
type OperationHandler struct {
	service *journal.Service
	logger  *logger.Logger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(svc *journal.Service, log *logger.Logger) *OperationHandler {
	return &OperationHandler{
		service: svc,
		logger:  log,
	}
}

// OperationRequest is the body of operation create and update calls
type OperationRequest struct {
	Date      string   `json:"date"` // YYYY-MM-DD
	Amount    *float64 `json:"amount"`
	Kind      string   `json:"kind,omitempty"`
	Contracts *int     `json:"contracts,omitempty"`

	Instrument string `json:"instrument,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
	EntryType  string `json:"entry_type,omitempty"`
	ExitType   string `json:"exit_type,omitempty"`
	EntryTime  string `json:"entry_time,omitempty"`
	ExitTime   string `json:"exit_time,omitempty"`
	Mood       string `json:"mood,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (req *OperationRequest) toOperation(accountID string) (*contracts.Operation, error) {
	date, err := contracts.ParseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if req.Amount == nil {
		return nil, contracts.ErrInvalidInput
	}
	kind, err := contracts.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	return &contracts.Operation{
		AccountID:  accountID,
		Date:       date,
		Amount:     *req.Amount,
		Kind:       kind,
		Contracts:  req.Contracts,
		Instrument: req.Instrument,
		Strategy:   req.Strategy,
		EntryType:  req.EntryType,
		ExitType:   req.ExitType,
		EntryTime:  strings.TrimSpace(req.EntryTime),
		ExitTime:   strings.TrimSpace(req.ExitTime),
		Mood:       req.Mood,
		Notes:      req.Notes,
	}, nil
}

// OperationResponse renders the date as YYYY-MM-DD
type OperationResponse struct {
	*contracts.Operation
	Date string `json:"date"`
}

func newOperationResponse(op *contracts.Operation) OperationResponse {
	return OperationResponse{Operation: op, Date: op.DateString()}
}

// MutationResponse is returned by every operation write
type MutationResponse struct {
	Operation *OperationResponse `json:"operation,omitempty"`
	Dashboard *risk.Result       `json:"dashboard"`
}

// List returns the filtered operations of an account
// GET /api/accounts/{id}/operations?year=&month=&kind=&result=&limit=
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ops, err := h.service.ListOperations(r.Context(), accountID(r), filter, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list operations")
		return
	}

	out := make([]OperationResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, newOperationResponse(op))
	}
	respondJSON(w, http.StatusOK, out)
}

// Years returns the years that hold operations, for the year filter
// GET /api/accounts/{id}/years
func (h *OperationHandler) Years(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.ListYears(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list years")
		return
	}
	respondJSON(w, http.StatusOK, years)
}

// Create records a new operation
// POST /api/accounts/{id}/operations
func (h *OperationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	op, err := req.toOperation(accountID(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid operation: 'date' (YYYY-MM-DD) and 'amount' are required")
		return
	}

	op, res, err := h.service.AddOperation(r.Context(), op)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record operation")
		return
	}

	view := newOperationResponse(op)
	respondJSON(w, http.StatusCreated, MutationResponse{Operation: &view, Dashboard: res})
}

// Update replaces an operation
// PUT /api/accounts/{id}/operations/{opID}
func (h *OperationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req OperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	op, err := req.toOperation(accountID(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid operation: 'date' (YYYY-MM-DD) and 'amount' are required")
		return
	}
	op.ID = mux.Vars(r)["opID"]

	op, res, err := h.service.UpdateOperation(r.Context(), op)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update operation")
		return
	}

	view := newOperationResponse(op)
	respondJSON(w, http.StatusOK, MutationResponse{Operation: &view, Dashboard: res})
}

// Delete removes an operation
// DELETE /api/accounts/{id}/operations/{opID}
func (h *OperationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteOperation(r.Context(), accountID(r), mux.Vars(r)["opID"])
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete operation")
		return
	}
	respondJSON(w, http.StatusOK, MutationResponse{Dashboard: res})
}

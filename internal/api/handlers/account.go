package handlers

import (
	"net/http"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// AccountHandler handles account, settings, goals and dashboard endpoints
// ⭐ SSOT: account API handlers live only in this struct
type AccountHandler struct {
	service *journal.Service
	logger  *logger.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(svc *journal.Service, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		service: svc,
		logger:  log,
	}
}

// CreateAccountRequest is the body of POST /api/accounts
type CreateAccountRequest struct {
	ID       string              `json:"id,omitempty"` // optional, e.g. a Supabase cuenta_id
	Name     string              `json:"name"`
	Settings *contracts.Settings `json:"settings,omitempty"`
}

// List returns every account
// GET /api/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list accounts")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// Create creates an account with default or explicit settings
// POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		account *contracts.Account
		err     error
	)
	if req.ID != "" {
		account, err = h.service.CreateAccountWithID(r.Context(), req.ID, req.Name, req.Settings)
	} else {
		account, err = h.service.CreateAccount(r.Context(), req.Name, req.Settings)
	}
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create account")
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// Get returns one account
// GET /api/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// Delete removes an account and all of its data
// DELETE /api/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), accountID(r)); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the risk settings
// GET /api/accounts/{id}/settings
func (h *AccountHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the risk settings and returns the new dashboard
// PUT /api/accounts/{id}/settings
func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings contracts.Settings
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.UpdateSettings(r.Context(), accountID(r), settings)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update settings")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetGoals returns the weekly and monthly goals
// GET /api/accounts/{id}/goals
func (h *AccountHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.GetGoals(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get goals")
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

// UpdateGoals replaces the goals and returns the new dashboard
// PUT /api/accounts/{id}/goals
func (h *AccountHandler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	var goals contracts.Goals
	if err := decodeJSON(r, &goals); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.UpdateGoals(r.Context(), accountID(r), goals)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update goals")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Dashboard returns the evaluation of the account
// GET /api/accounts/{id}/dashboard
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Dashboard(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to evaluate account")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Reset deletes every operation, clears goals and rewinds the high-water-mark
// POST /api/accounts/{id}/reset
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Reset(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to reset account")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

package handlers

import (
	"net/http"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// Streamer upgrades a request into a live event stream; *realtime.Hub implements it
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, accountID string)
}

// StreamHandler serves the dashboard websocket
type StreamHandler struct {
	service  *journal.Service
	streamer Streamer
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(svc *journal.Service, streamer Streamer, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:  svc,
		streamer: streamer,
		logger:   log,
	}
}

// Stream pushes the dashboard after every mutation of the account
// GET /api/accounts/{id}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := accountID(r)
	if _, err := h.service.GetAccount(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}
	h.streamer.ServeWS(w, r, id)
}

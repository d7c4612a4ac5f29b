package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/chart"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// ChartHandler renders account charts
type ChartHandler struct {
	service *journal.Service
	logger  *logger.Logger
}

// NewChartHandler creates a new chart handler
func NewChartHandler(svc *journal.Service, log *logger.Logger) *ChartHandler {
	return &ChartHandler{
		service: svc,
		logger:  log,
	}
}

// Growth renders balance, high-water-mark and floor as a PNG
// GET /api/accounts/{id}/chart.png
func (h *ChartHandler) Growth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := accountID(r)

	account, err := h.service.GetAccount(ctx, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}
	res, err := h.service.Dashboard(ctx, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to evaluate account")
		return
	}

	var buf bytes.Buffer
	if err := chart.WritePNG(&buf, account.Name, res.GrowthSeries); err != nil {
		if errors.Is(err, chart.ErrEmptySeries) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.WithAccount(id).WithError(err).Error("Failed to render growth chart")
		respondError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

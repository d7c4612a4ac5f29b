package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/importer"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/redis"
)

// maxUploadSize caps statement uploads
const maxUploadSize = 10 << 20

// RateLimiter is satisfied by *redis.RateLimiter
type RateLimiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig) (bool, int, error)
}

// StatementHandler handles statement import and CSV export
type StatementHandler struct {
	service *journal.Service
	limiter RateLimiter
	limit   int
	window  time.Duration
	logger  *logger.Logger
}

// NewStatementHandler creates a new statement handler. A nil limiter disables
// the per-account upload limit.
func NewStatementHandler(svc *journal.Service, limiter RateLimiter, limit int, window time.Duration, log *logger.Logger) *StatementHandler {
	return &StatementHandler{
		service: svc,
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  log,
	}
}

// ImportResponse reports one statement upload
type ImportResponse struct {
	Rows      int                 `json:"rows"`
	Imported  int                 `json:"imported"`
	Errors    []importer.RowError `json:"errors"`
	Dashboard *risk.Result        `json:"dashboard"`
}

// Import parses an uploaded CSV or HTML statement and upserts its operations
// POST /api/accounts/{id}/import (multipart field "file")
func (h *StatementHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := accountID(r)

	if !h.allow(ctx, w, id) {
		respondError(w, http.StatusTooManyRequests, "Too many imports, try again later")
		return
	}

	if _, err := h.service.GetAccount(ctx, id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	parsed, err := importer.Parse(file, header.Filename, id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	written, res, err := h.service.ImportOperations(ctx, id, parsed.Operations)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to import operations")
		return
	}

	h.logger.WithAccount(id).WithFields(map[string]interface{}{
		"file":    header.Filename,
		"summary": parsed.Summary(),
	}).Info("Statement imported")

	errs := parsed.Errors
	if errs == nil {
		errs = []importer.RowError{}
	}
	respondJSON(w, http.StatusOK, ImportResponse{
		Rows:      parsed.Rows,
		Imported:  written,
		Errors:    errs,
		Dashboard: res,
	})
}

// allow applies the per-account upload limit. Limiter failures let the request through.
func (h *StatementHandler) allow(ctx context.Context, w http.ResponseWriter, id string) bool {
	if h.limiter == nil || h.limit <= 0 {
		return true
	}

	allowed, remaining, err := h.limiter.Allow(ctx, redis.ImportRateLimit(id, h.limit, h.window))
	if err != nil {
		h.logger.WithAccount(id).WithError(err).Warn("Import rate limit check failed")
		return true
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	return allowed
}

// Export writes the account operations as CSV in the import column layout
// GET /api/accounts/{id}/export.csv
func (h *StatementHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := accountID(r)

	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ops, err := h.service.ListOperations(ctx, id, filter, 0)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list operations")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "operaciones-"+id+".csv"))
	if err := importer.WriteCSV(w, ops); err != nil {
		h.logger.WithAccount(id).WithError(err).Error("Failed to write CSV export")
	}
}

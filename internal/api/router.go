package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/api/handlers"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
)

// Handlers bundles every endpoint group served by the router
type Handlers struct {
	Accounts   *handlers.AccountHandler
	Operations *handlers.OperationHandler
	Statements *handlers.StatementHandler
	Charts     *handlers.ChartHandler
	Stream     *handlers.StreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are declared only in this function
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Accounts
	api.HandleFunc("/accounts", h.Accounts.List).Methods("GET")
	api.HandleFunc("/accounts", h.Accounts.Create).Methods("POST")
	api.HandleFunc("/accounts/{id}", h.Accounts.Get).Methods("GET")
	api.HandleFunc("/accounts/{id}", h.Accounts.Delete).Methods("DELETE")
	api.HandleFunc("/accounts/{id}/settings", h.Accounts.GetSettings).Methods("GET")
	api.HandleFunc("/accounts/{id}/settings", h.Accounts.UpdateSettings).Methods("PUT")
	api.HandleFunc("/accounts/{id}/goals", h.Accounts.GetGoals).Methods("GET")
	api.HandleFunc("/accounts/{id}/goals", h.Accounts.UpdateGoals).Methods("PUT")
	api.HandleFunc("/accounts/{id}/dashboard", h.Accounts.Dashboard).Methods("GET")
	api.HandleFunc("/accounts/{id}/reset", h.Accounts.Reset).Methods("POST")

	// Operations
	api.HandleFunc("/accounts/{id}/operations", h.Operations.List).Methods("GET")
	api.HandleFunc("/accounts/{id}/operations", h.Operations.Create).Methods("POST")
	api.HandleFunc("/accounts/{id}/operations/{opID}", h.Operations.Update).Methods("PUT")
	api.HandleFunc("/accounts/{id}/operations/{opID}", h.Operations.Delete).Methods("DELETE")
	api.HandleFunc("/accounts/{id}/years", h.Operations.Years).Methods("GET")

	// Statements, charts, live stream
	api.HandleFunc("/accounts/{id}/import", h.Statements.Import).Methods("POST")
	api.HandleFunc("/accounts/{id}/export.csv", h.Statements.Export).Methods("GET")
	api.HandleFunc("/accounts/{id}/chart.png", h.Charts.Growth).Methods("GET")
	api.HandleFunc("/accounts/{id}/stream", h.Stream.Stream).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "trading-journal-api",
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

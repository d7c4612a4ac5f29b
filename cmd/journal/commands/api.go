package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/api"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/api/handlers"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/realtime"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET    /health
  GET    /api/accounts                         - List accounts
  POST   /api/accounts                         - Create account
  GET    /api/accounts/{id}/dashboard          - Risk metrics
  GET    /api/accounts/{id}/operations         - List operations (year, month, kind, result, limit)
  POST   /api/accounts/{id}/operations         - Record operation
  POST   /api/accounts/{id}/import             - Import CSV/HTML statement
  GET    /api/accounts/{id}/export.csv         - Export operations
  GET    /api/accounts/{id}/chart.png          - Growth chart
  POST   /api/accounts/{id}/reset              - Reset account
  GET    /api/accounts/{id}/stream             - WebSocket dashboard stream

Example:
  go run ./cmd/journal api
  go run ./cmd/journal api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run the scheduled jobs in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading Journal API Server ===")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Load config
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Live dashboard hub; the service publishes into it after every write
	hub := realtime.NewHub(log)
	defer hub.Close()

	// 3. Store, cache, service
	a, err := buildApp(ctx, cfg, log, journal.WithPublisher(hub))
	if err != nil {
		return err
	}
	defer a.Close()

	// 4. Import rate limit (no-op without redis)
	var limiter handlers.RateLimiter
	if a.redis.Enabled() {
		limiter = redis.NewRateLimiter(a.redis, cachePrefix)
	}

	// 5. Handlers and router
	router := api.NewRouter(api.Handlers{
		Accounts:   handlers.NewAccountHandler(a.service, log),
		Operations: handlers.NewOperationHandler(a.service, log),
		Statements: handlers.NewStatementHandler(a.service, limiter, a.cfg.Redis.ImportLimit, a.cfg.Redis.ImportWindow, log),
		Charts:     handlers.NewChartHandler(a.service, log),
		Stream:     handlers.NewStreamHandler(a.service, hub, log),
	}, log)

	// 6. Optional in-process scheduler
	if apiWithScheduler {
		sched, err := initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 7. Start server with graceful shutdown
	server := api.New(a.cfg, log, router, api.WithLiveStreams(hub))
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

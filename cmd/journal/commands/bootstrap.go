package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/config"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/database"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/redis"
)

// cachePrefix namespaces every Redis key the journal writes
const cachePrefix = "journal"

// app holds the wired dependencies shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   contracts.Store
	redis   *redis.Client
	service *journal.Service
}

// loadConfig loads the environment and applies the global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	if storageBackend != "" {
		// set before Load so validation sees the chosen backend
		if err := os.Setenv("STORAGE_BACKEND", storageBackend); err != nil {
			return nil, nil, fmt.Errorf("set storage backend: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp loads configuration, opens the store and builds the service
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, log)
}

// buildApp opens the store and builds the service. Extra service options
// (e.g. a publisher) are appended last.
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...journal.Option) (*app, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	serviceOpts := []journal.Option{
		journal.WithDefaults(contracts.Settings{
			InitialBalance:         cfg.Defaults.InitialBalance,
			TrailingDrawdownAmount: cfg.Defaults.TrailingDrawdownAmount,
			ConsistencyPercentage:  cfg.Defaults.ConsistencyPercentage,
		}),
		journal.WithLocation(cfg.Location()),
	}
	if rdb.Enabled() {
		serviceOpts = append(serviceOpts, journal.WithCache(redis.NewCache(rdb, cachePrefix), cfg.Redis.DashboardTTL))
		log.Info("Dashboard cache enabled")
	}
	serviceOpts = append(serviceOpts, opts...)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		redis:   rdb,
		service: journal.NewService(store, log, serviceOpts...),
	}, nil
}

// Close releases the store and the Redis connection
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// openStore builds the configured persistence backend.
// Postgres migrations are applied on open; they are idempotent.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("Connected to database")
		return &pgStore{PostgresStore: journal.NewPostgresStore(db.Pool), db: db}, nil

	case "sqlite":
		store, err := journal.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Storage.SQLitePath).Info("Opened sqlite store")
		return store, nil

	case "memory":
		log.Warn("Using in-memory store; data is lost on exit")
		return journal.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// pgStore closes the pool together with the store
type pgStore struct {
	*journal.PostgresStore
	db *database.DB
}

func (s *pgStore) Close() error {
	s.db.Close()
	return nil
}

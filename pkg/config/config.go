package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Storage  StorageConfig
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External sources
	Supabase SupabaseConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Defaults applied to newly created accounts
	Defaults AccountDefaults

	// Timezone used to resolve "today" for weekly/monthly goals
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend    string // postgres, sqlite, memory
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	DashboardTTL time.Duration
	ImportLimit  int
	ImportWindow time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SupabaseConfig holds the PostgREST endpoint the original web client wrote operations to
type SupabaseConfig struct {
	URL            string
	APIKey         string
	Table          string
	RequestsPerSec float64
}

// Enabled reports whether a Supabase source is configured
func (s SupabaseConfig) Enabled() bool {
	return s.URL != "" && s.APIKey != ""
}

// SchedulerConfig holds cron expressions (seconds field included)
type SchedulerConfig struct {
	HWMReconcile string
	SupabaseSync string
}

// AccountDefaults are the settings a new account starts with
type AccountDefaults struct {
	InitialBalance         float64
	TrailingDrawdownAmount float64
	ConsistencyPercentage  float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			Backend:    getEnv("STORAGE_BACKEND", "postgres"),
			SQLitePath: getEnv("SQLITE_PATH", "journal.db"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			DashboardTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", "1m"),
			ImportLimit:  getEnvAsInt("IMPORT_RATE_LIMIT", 10),
			ImportWindow: getEnvAsDuration("IMPORT_RATE_WINDOW", "1m"),
		},

		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			APIKey:         getEnv("SUPABASE_KEY", ""),
			Table:          getEnv("SUPABASE_TABLE", "operaciones"),
			RequestsPerSec: getEnvAsFloat("SUPABASE_RPS", 5),
		},

		Scheduler: SchedulerConfig{
			HWMReconcile: getEnv("HWM_RECONCILE_SCHEDULE", "0 0 3 * * *"),
			SupabaseSync: getEnv("SUPABASE_SYNC_SCHEDULE", "0 */15 * * * *"),
		},

		Defaults: AccountDefaults{
			InitialBalance:         getEnvAsFloat("DEFAULT_INITIAL_BALANCE", 50000),
			TrailingDrawdownAmount: getEnvAsFloat("DEFAULT_TRAILING_DRAWDOWN", 2500),
			ConsistencyPercentage:  getEnvAsFloat("DEFAULT_CONSISTENCY_PERCENTAGE", 40),
		},

		Timezone: getEnv("TIMEZONE", "Europe/Madrid"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: postgres, sqlite, memory")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Defaults.ConsistencyPercentage <= 0 || c.Defaults.ConsistencyPercentage > 100 {
		return fmt.Errorf("DEFAULT_CONSISTENCY_PERCENTAGE must be in (0, 100]")
	}
	if c.Defaults.TrailingDrawdownAmount < 0 {
		return fmt.Errorf("DEFAULT_TRAILING_DRAWDOWN must not be negative")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/mjhmc/internal/sampler"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Directory holding runs.db, always absolute
	LogLevel   string
	Port       int
	DevMode    bool
	Workers    int // sampler worker pool size per run
	MaxSamples int // cap on dims × particles × steps per run
	Epsilon    float64
	Beta       float64

	// MaintenanceSchedule is a cron expression with seconds for the WAL
	// checkpoint and retention jobs.
	MaintenanceSchedule string
	RetentionDays       int // 0 keeps runs forever
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("MJHMC_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:    absDataDir,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Port:       getEnvAsInt("MJHMC_PORT", 8002),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		Workers:    getEnvAsInt("MJHMC_WORKERS", 10),
		MaxSamples: getEnvAsInt("MJHMC_MAX_SAMPLES", 1_000_000),
		Epsilon:    getEnvAsFloat("MJHMC_EPSILON", 0.1),
		Beta:       getEnvAsFloat("MJHMC_BETA", 0.1),

		MaintenanceSchedule: getEnv("MJHMC_MAINTENANCE_SCHEDULE", "0 0 * * * *"),
		RetentionDays:       getEnvAsInt("MJHMC_RETENTION_DAYS", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must be set")
	}
	if c.Port <= 0 || c.Port > math.MaxUint16 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("max samples must be > 0, got %d", c.MaxSamples)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention days must be >= 0, got %d", c.RetentionDays)
	}
	defaults := sampler.Params{Epsilon: c.Epsilon, Beta: c.Beta}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("default sampler parameters: %w", err)
	}
	return nil
}

// DatabasePath returns the location of the run store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Retention returns how long runs are kept, or 0 to keep them forever.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

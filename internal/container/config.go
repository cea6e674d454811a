// Package container provides dependency injection and lifecycle management
// for the co-selection lifecycle service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Sweeper configuration
	Sweeper SweeperConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the sqlite lock
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// SweeperConfig holds settings for the time-driven passes.
type SweeperConfig struct {
	// Enabled starts the background sweep worker
	Enabled bool

	// Interval between sweep runs
	Interval time.Duration

	// PassTimeout bounds a single run
	PassTimeout time.Duration

	// LockPeriod is the default time a new transaction waits before locking
	LockPeriod time.Duration

	// BatchSize bounds how many entities one pass reads
	BatchSize int
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// DefaultConfig returns a configuration with sensible defaults.
// The auth secret has no default and must be set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/coselection.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			BusyTimeout:  5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "coselection",
			TokenTTL: 24 * time.Hour,
		},
		Sweeper: SweeperConfig{
			Enabled:     true,
			Interval:    time.Minute,
			PassTimeout: 30 * time.Second,
			LockPeriod:  24 * time.Hour,
			BatchSize:   500,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "coselection",
		},
	}
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}
	if c.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("sweeper batch size must be positive")
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}
	return nil
}

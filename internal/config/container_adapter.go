package config

import (
	"github.com/garyjia/coselection/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			AllowedOrigins:  c.Server.AllowedOrigins,
		},
		Auth: container.AuthConfig{
			Secret:   c.Auth.Secret,
			Issuer:   c.Auth.Issuer,
			TokenTTL: c.Auth.TokenTTL,
		},
		Sweeper: container.SweeperConfig{
			Enabled:     c.Sweeper.Enabled,
			Interval:    c.Sweeper.Interval,
			PassTimeout: c.Sweeper.PassTimeout,
			LockPeriod:  c.Sweeper.LockPeriod,
			BatchSize:   c.Sweeper.BatchSize,
		},
		Metrics: container.MetricsConfig{
			Enabled:   c.Metrics.Enabled,
			Namespace: c.Metrics.Namespace,
		},
	}
}

package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/service"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/infrastructure/auth"
	"github.com/garyjia/coselection/internal/infrastructure/metrics"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/repository"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/coselection/internal/infrastructure/worker"
	httpserver "github.com/garyjia/coselection/internal/interfaces/http"
	"github.com/garyjia/coselection/migrations"
	"github.com/garyjia/coselection/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the sqlite file, applies the embedded migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Lead:        repository.NewLeadRepository(db.DB, logger),
		Transaction: repository.NewTransactionRepository(db.DB, logger),
		Payout:      repository.NewPayoutRepository(db.DB, logger),
		Dispute:     repository.NewDisputeRepository(db.DB, logger),
		Account:     repository.NewAccountRepository(db.DB, logger),
		Timeline:    repository.NewTimelineRepository(db.DB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit log.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	)
	d.SubscribeAll("audit_log", auditLogHandler(logger.Named("audit")))
	return d, nil
}

// auditLogHandler writes every committed timeline event to the structured log
func auditLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, env *event.Envelope) error {
		if env == nil {
			return fmt.Errorf("envelope cannot be nil")
		}
		evt := env.Event
		fields := []zap.Field{
			zap.String("entity_kind", env.EntityKind),
			zap.String("entity_id", env.EntityID),
			zap.String("event_id", evt.ID),
			zap.String("kind", string(evt.Kind)),
			zap.String("actor_id", evt.Actor.ID),
			zap.String("actor_role", string(evt.Actor.Role)),
			zap.Time("occurred_at", evt.OccurredAt),
		}
		if evt.ReasonCode != "" {
			fields = append(fields, zap.String("reason_code", evt.ReasonCode))
		}
		for k, v := range evt.Metadata {
			fields = append(fields, zap.String("meta."+k, v))
		}
		logger.Info(evt.Description, fields...)
		return nil
	}
}

// ProvideMetrics creates the Prometheus recorder, or nil when metrics are disabled.
func ProvideMetrics(cfg *MetricsConfig) *metrics.Recorder {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return metrics.New(cfg.Namespace)
}

// ProvideTokenService creates the bearer token issuer and verifier.
func ProvideTokenService(cfg *AuthConfig) (*auth.TokenService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return auth.NewTokenService(cfg.Secret, cfg.Issuer, cfg.TokenTTL)
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  *sqlite.DB
	Dispatcher dispatcher.Dispatcher
	Metrics    *metrics.Recorder
	Sweeper    *SweeperConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Sweeper == nil {
		return nil, fmt.Errorf("sweeper config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}
	var opts []service.Option
	if deps.Metrics != nil {
		opts = append(opts, service.WithMetrics(deps.Metrics))
	}

	repos := deps.Repos
	return &ServiceBundle{
		Lead: service.NewLeadService(
			repos.Lead, repos.Timeline, deps.TxManager, deps.Dispatcher, serviceLogger, opts...,
		),
		Earnings: service.NewEarningsService(
			repos.Transaction, repos.Account, repos.Timeline, deps.TxManager, deps.Dispatcher, serviceLogger,
			deps.Sweeper.LockPeriod, deps.Sweeper.BatchSize, opts...,
		),
		Payout: service.NewPayoutService(
			repos.Payout, repos.Account, repos.Timeline, deps.TxManager, deps.Dispatcher, serviceLogger, opts...,
		),
		Dispute: service.NewDisputeService(
			repos.Dispute, repos.Transaction, repos.Timeline, deps.TxManager, deps.Dispatcher, serviceLogger,
			deps.Sweeper.BatchSize, opts...,
		),
		Account: service.NewAccountService(repos.Account, serviceLogger, opts...),
	}, nil
}

// ProvideWorkers creates the sweep worker and a manager that runs it when enabled.
// The sweep worker is returned even when disabled so it can be run on demand.
func ProvideWorkers(cfg *SweeperConfig, services *ServiceBundle, logger *zap.Logger) (*worker.Manager, *worker.SweepWorker, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("sweeper config is required")
	}
	if services == nil {
		return nil, nil, fmt.Errorf("services are required")
	}
	if logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	sweepCfg := worker.DefaultSweepConfig()
	if cfg.Interval > 0 {
		sweepCfg.Interval = cfg.Interval
	}
	if cfg.PassTimeout > 0 {
		sweepCfg.PassTimeout = cfg.PassTimeout
	}

	sweeper := worker.NewSweepWorker(sweepCfg, services.Earnings, services.Dispute, logger)

	manager := worker.NewManager(logger)
	if cfg.Enabled {
		manager.Register(sweeper)
	}
	return manager, sweeper, nil
}

// ServerDeps holds dependencies required for creating the HTTP server.
type ServerDeps struct {
	Config   *ServerConfig
	Services *ServiceBundle
	Sweeper  *worker.SweepWorker
	Tokens   *auth.TokenService
	Metrics  *metrics.Recorder
	Logger   *zap.Logger
}

// ProvideHTTPServer creates the HTTP adapter over the application services.
func ProvideHTTPServer(deps *ServerDeps) (*httpserver.Server, error) {
	if deps == nil || deps.Config == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var m httpserver.Metrics
	if deps.Metrics != nil {
		m = deps.Metrics
	}
	var sweeper httpserver.Sweeper
	if deps.Sweeper != nil {
		sweeper = deps.Sweeper
	}

	return httpserver.NewServer(
		httpserver.ServerConfig{
			Host:            deps.Config.Host,
			Port:            deps.Config.Port,
			ReadTimeout:     deps.Config.ReadTimeout,
			WriteTimeout:    deps.Config.WriteTimeout,
			ShutdownTimeout: deps.Config.ShutdownTimeout,
			AllowedOrigins:  deps.Config.AllowedOrigins,
		},
		httpserver.Services{
			Leads:    deps.Services.Lead,
			Earnings: deps.Services.Earnings,
			Payouts:  deps.Services.Payout,
			Disputes: deps.Services.Dispute,
			Accounts: deps.Services.Account,
			Sweeper:  sweeper,
		},
		deps.Tokens,
		m,
		&zapLoggerAdapter{logger: deps.Logger.Named("http")},
	), nil
}

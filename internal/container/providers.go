// Package container provides dependency injection and lifecycle management
// for the referral workflow service following Clean Architecture principles.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/application/service"
	"github.com/garyjia/referral-workflow/internal/application/workflow"
	"github.com/garyjia/referral-workflow/internal/infrastructure/events"
	"github.com/garyjia/referral-workflow/internal/infrastructure/notifier"
	"github.com/garyjia/referral-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/referral-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/referral-workflow/internal/infrastructure/report"
	"github.com/garyjia/referral-workflow/migrations"
	"github.com/garyjia/referral-workflow/pkg/database"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// EventBundle holds the dispatcher and the optional Redis connection behind it.
type EventBundle struct {
	Dispatcher dispatcher.Dispatcher
	Redis      *redis.Client
}

// ProvideDatabase opens the SQLite database and applies pending migrations.
// Embedded migrations are used unless cfg.MigrationsDir is set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(ctx, database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		_, err = migrator.ApplyDir(ctx, cfg.MigrationsDir)
	} else {
		_, err = migrator.Apply(ctx, migrations.FS)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Referral: repository.NewReferralRepository(sqlDB, logger),
		Earning:  repository.NewEarningRepository(sqlDB, logger),
		Limit:    repository.NewReferralLimitRepository(sqlDB, logger),
		History:  repository.NewHistoryRepository(sqlDB, logger),
		Employee: repository.NewEmployeeRepository(sqlDB, logger),
		Job:      repository.NewJobRepository(sqlDB, logger),
	}, nil
}

// ProvideNotifier creates the notifier for the configured channel.
// Missing credentials are reported per send, not here.
func ProvideNotifier(cfg *NotifierConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notifier config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	n, err := notifier.New(notifier.Config{
		Channel:       notifier.Channel(cfg.Channel),
		Host:          cfg.Host,
		Port:          cfg.Port,
		User:          cfg.User,
		Secret:        cfg.Secret,
		UseTLS:        cfg.UseTLS,
		From:          cfg.From,
		LarkAppID:     cfg.LarkAppID,
		LarkAppSecret: cfg.LarkAppSecret,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	return n, nil
}

// ProvideEvents creates the dispatcher and registers the event handlers.
// When cfg.RedisURL is set, events are also published to Redis.
func ProvideEvents(ctx context.Context, cfg *EventsConfig, logger *zap.Logger) (*EventBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("events config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	disp := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger.Named("dispatcher"))),
	)

	bundle := &EventBundle{Dispatcher: disp}

	var publisher port.EventPublisher
	if cfg.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := events.NewRedisClient(connectCtx, cfg.RedisURL)
		if err != nil {
			disp.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		bundle.Redis = client
		publisher = events.NewRedisPublisher(client, logger)
	}

	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = events.DefaultChannelPrefix
	}
	events.Register(disp, publisher, prefix, logger)

	return bundle, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Notifier   port.Notifier
	Dispatcher dispatcher.Dispatcher
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
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKeyValueLogger(deps.Logger)

	return &ServiceBundle{
		Referral: service.NewReferralService(
			deps.Repos.Referral,
			deps.Repos.Earning,
			deps.Repos.History,
			deps.Repos.Job,
			report.NewEarningsXLSX(deps.Logger),
			serviceLogger,
		),
		Limit: service.NewLimitService(
			deps.Repos.Limit,
			deps.Repos.Employee,
			deps.TxManager,
			deps.Dispatcher,
			serviceLogger,
		),
		Notification: service.NewNotificationService(
			deps.Notifier,
			serviceLogger,
		),
	}, nil
}

// EngineDeps holds dependencies required for creating the referral engine.
type EngineDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Notifier   port.Notifier
	Dispatcher dispatcher.Dispatcher
	Workflow   *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideEngine creates the referral transition engine.
func ProvideEngine(deps *EngineDeps) (workflow.ReferralEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("engine dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Workflow != nil && deps.Workflow.TimeZone != "" {
		loc, err := time.LoadLocation(deps.Workflow.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("failed to load time zone %q: %w", deps.Workflow.TimeZone, err)
		}
		opts = append(opts, workflow.WithLocation(loc))
	}

	return workflow.NewEngine(
		deps.Repos.Referral,
		deps.Repos.Earning,
		deps.Repos.History,
		deps.TxManager,
		deps.Notifier,
		deps.Logger.Named("engine"),
		opts...,
	), nil
}

package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/application/service"
	"github.com/garyjia/referral-workflow/internal/application/workflow"
	"github.com/garyjia/referral-workflow/internal/infrastructure/persistence/sqlite"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	notifier port.Notifier
	redis    *redis.Client

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.ReferralEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Referral port.ReferralRepository
	Earning  port.EarningRepository
	Limit    port.ReferralLimitRepository
	History  port.HistoryRepository
	Employee port.EmployeeRepository
	Job      port.JobRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Referral     service.ReferralService
	Limit        service.LimitService
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Notifier
// 3. Event dispatcher and publishers
// 4. Application services
// 5. Referral engine
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(c.ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initNotifier(); err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	c.logger.Info("Notifier initialized", zap.String("channel", c.config.Notifier.Channel))

	if err := c.initEvents(); err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	c.logger.Info("Event dispatcher initialized", zap.Bool("redis", c.redis != nil))

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initEngine(); err != nil {
		return fmt.Errorf("failed to initialize referral engine: %w", err)
	}
	c.logger.Info("Referral engine initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Drain in-flight event handlers before their Redis connection goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		} else {
			c.logger.Info("Redis closed")
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Ping(); err != nil {
			set("database", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	} else {
		set("database", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	if c.redis != nil {
		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.redis.Ping(ctx).Err(); err != nil {
			set("redis", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("redis", ComponentHealth{Healthy: true})
		}
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	if c.engine != nil {
		set("engine", ComponentHealth{Healthy: true})
	} else {
		set("engine", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	return status
}

// HealthFunc adapts Health to the HTTP health endpoint.
func (c *Container) HealthFunc() (bool, interface{}) {
	status := c.Health()
	return status.Overall, status.Components
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.sqlDB.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initNotifier creates the notification transport.
func (c *Container) initNotifier() error {
	n, err := ProvideNotifier(&c.config.Notifier, c.logger.Named("notifier"))
	if err != nil {
		return err
	}
	c.notifier = n
	return nil
}

// initEvents creates the dispatcher and, when configured, the Redis publisher.
func (c *Container) initEvents() error {
	bundle, err := ProvideEvents(c.ctx, &c.config.Events, c.logger.Named("events"))
	if err != nil {
		return err
	}
	c.dispatcher = bundle.Dispatcher
	c.redis = bundle.Redis
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Notifier:   c.notifier,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initEngine creates the referral engine.
func (c *Container) initEngine() error {
	engine, err := ProvideEngine(&EngineDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Notifier:   c.notifier,
		Dispatcher: c.dispatcher,
		Workflow:   &c.config.Workflow,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Notifier returns the configured notifier.
func (c *Container) Notifier() port.Notifier {
	return c.notifier
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the referral engine.
func (c *Container) Engine() workflow.ReferralEngine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

package container

import (
	"fmt"
	"time"
)

// Config holds all configuration needed by the container.
type Config struct {
	Database DatabaseConfig
	Notifier NotifierConfig
	Events   EventsConfig
	Workflow WorkflowConfig
	Server   ServerConfig
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

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// NotifierConfig holds notification transport settings.
type NotifierConfig struct {
	// Channel selects smtp, lark or log
	Channel string

	Host   string
	Port   int
	User   string
	Secret string
	UseTLS bool
	From   string

	// Lark app credentials for the lark channel
	LarkAppID     string
	LarkAppSecret string
}

// EventsConfig holds domain event publishing settings.
type EventsConfig struct {
	// RedisURL enables Redis publishing when non-empty
	RedisURL string

	// ChannelPrefix is prepended to the event type to form the Redis channel
	ChannelPrefix string
}

// WorkflowConfig holds referral engine settings.
type WorkflowConfig struct {
	// TimeZone is the IANA zone used to render interview times
	TimeZone string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/referrals.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Notifier: NotifierConfig{
			Channel: "smtp",
			Port:    587,
			UseTLS:  true,
		},
		Events: EventsConfig{
			ChannelPrefix: "referrals:",
		},
		Workflow: WorkflowConfig{
			TimeZone: "UTC",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
// Notifier credentials are optional.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := time.LoadLocation(c.Workflow.TimeZone); err != nil {
		return fmt.Errorf("workflow.time_zone is invalid: %w", err)
	}
	return nil
}

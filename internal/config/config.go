package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded migrations
}

// NotifierConfig holds outbound notification settings.
// Credentials may be empty; sends then fail with a configuration error.
type NotifierConfig struct {
	Channel string `mapstructure:"channel"` // smtp, lark or log
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Secret  string `mapstructure:"secret"`
	UseTLS  bool   `mapstructure:"use_tls"`
	From    string `mapstructure:"from"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// RedisConfig holds the event bus connection. An empty URL disables publishing.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// EventsConfig holds domain event publishing settings
type EventsConfig struct {
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// WorkflowConfig holds referral workflow settings
type WorkflowConfig struct {
	TimeZone string `mapstructure:"time_zone"` // IANA name used to render interview times
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"notifier.host":   "SMTP_HOST",
	"notifier.port":   "SMTP_PORT",
	"notifier.user":   "SMTP_USER",
	"notifier.secret": "SMTP_PASS",
	"lark.app_id":     "LARK_APP_ID",
	"lark.app_secret": "LARK_APP_SECRET",
	"redis.url":       "REDIS_URL",
	"database.path":   "DATABASE_PATH",
}

// Load loads configuration from a .env file, the YAML config file and
// environment variables, in increasing order of precedence.
// A missing .env file is not an error.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/referrals.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Notifier defaults
	v.SetDefault("notifier.channel", "smtp")
	v.SetDefault("notifier.port", 587)
	v.SetDefault("notifier.use_tls", true)

	v.SetDefault("events.channel_prefix", "referrals:")
	v.SetDefault("workflow.time_zone", "UTC")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Notifier.Port <= 0 || c.Notifier.Port > 65535 {
		return fmt.Errorf("notifier.port must be between 1 and 65535")
	}
	switch strings.ToLower(c.Notifier.Channel) {
	case "", "smtp", "lark", "log":
	default:
		return fmt.Errorf("notifier.channel must be one of smtp, lark, log")
	}
	if _, err := time.LoadLocation(c.Workflow.TimeZone); err != nil {
		return fmt.Errorf("workflow.time_zone: %w", err)
	}
	return nil
}

package config

import (
	"github.com/garyjia/referral-workflow/internal/container"
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
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Notifier: container.NotifierConfig{
			Channel:       c.Notifier.Channel,
			Host:          c.Notifier.Host,
			Port:          c.Notifier.Port,
			User:          c.Notifier.User,
			Secret:        c.Notifier.Secret,
			UseTLS:        c.Notifier.UseTLS,
			From:          c.Notifier.From,
			LarkAppID:     c.Lark.AppID,
			LarkAppSecret: c.Lark.AppSecret,
		},
		Events: container.EventsConfig{
			RedisURL:      c.Redis.URL,
			ChannelPrefix: c.Events.ChannelPrefix,
		},
		Workflow: container.WorkflowConfig{
			TimeZone: c.Workflow.TimeZone,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}

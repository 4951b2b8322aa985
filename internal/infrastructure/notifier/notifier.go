// Package notifier delivers referral notifications over SMTP, Lark IM or the log.
//
// Credentials are resolved once at construction but only checked when a
// message is sent, so a service with no mail setup still starts and every
// send reports ErrConfiguration.
package notifier

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
)

var (
	// ErrConfiguration means required notifier settings are missing
	ErrConfiguration = errors.New("notifier is not configured")

	// ErrDelivery means the transport rejected or failed the message
	ErrDelivery = errors.New("notification delivery failed")
)

// Channel names a delivery transport
type Channel string

const (
	ChannelSMTP Channel = "smtp"
	ChannelLark Channel = "lark"
	ChannelLog  Channel = "log"
)

// DefaultSMTPPort is the submission port used when none is configured
const DefaultSMTPPort = 587

// Config holds notifier configuration
type Config struct {
	Channel Channel

	// SMTP
	Host   string
	Port   int
	User   string
	Secret string
	UseTLS bool
	From   string

	// Lark
	LarkAppID     string
	LarkAppSecret string
}

// sender returns the From address, falling back to the SMTP user
func (c Config) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

// New creates the notifier for the configured channel
func New(cfg Config, logger *zap.Logger) (port.Notifier, error) {
	switch Channel(strings.ToLower(string(cfg.Channel))) {
	case ChannelSMTP, "":
		return NewSMTPNotifier(cfg, logger), nil
	case ChannelLark:
		return NewLarkNotifier(cfg, logger), nil
	case ChannelLog:
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier channel %q", cfg.Channel)
	}
}

func missing(fields map[string]string) error {
	var names []string
	for _, name := range []string{"host", "user", "secret", "app_id", "app_secret"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(names, ", "))
}

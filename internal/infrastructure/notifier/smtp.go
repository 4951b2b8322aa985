package notifier

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends plain-text mail through an SMTP relay
type SMTPNotifier struct {
	cfg    Config
	dialer func(cfg Config) mailSender
	logger *zap.Logger
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(cfg Config, logger *zap.Logger) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	return &SMTPNotifier{
		cfg:    cfg,
		dialer: newDialer,
		logger: logger,
	}
}

func newDialer(cfg Config) mailSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Secret)
	if cfg.UseTLS {
		// Port 465 speaks TLS from the first byte; other ports upgrade with STARTTLS
		d.SSL = cfg.Port == 465
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return d
}

// Send delivers one message
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := missing(map[string]string{
		"host":   n.cfg.Host,
		"user":   n.cfg.User,
		"secret": n.cfg.Secret,
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.sender())
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer(n.cfg).DialAndSend(m); err != nil {
		n.logger.Error("Failed to send email",
			zap.String("to", to),
			zap.String("host", n.cfg.Host),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	n.logger.Debug("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

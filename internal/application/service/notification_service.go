package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

const (
	defaultTestSubject = "Referral notification test"
	defaultTestBody    = "This is a test message from the referral workflow service.\n\nIf you received it, outbound notifications are configured correctly."
)

// NotificationService sends operator-triggered notifications
type NotificationService interface {
	// SendTest delivers a test message; empty subject or body use defaults
	SendTest(ctx context.Context, to, subject, body string) error
}

type notificationServiceImpl struct {
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notifier: notifier,
		logger:   logger,
	}
}

// SendTest sends a test notification to a single address
func (s *notificationServiceImpl) SendTest(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if err := utils.ValidateEmail(to); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if strings.TrimSpace(subject) == "" {
		subject = defaultTestSubject
	}
	if strings.TrimSpace(body) == "" {
		body = defaultTestBody
	}

	s.logger.Info("Sending test notification", "to", to, "subject", subject)

	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logger.Error("Failed to send test notification", "error", err, "to", to)
		return fmt.Errorf("send test notification: %w", err)
	}

	s.logger.Info("Test notification sent successfully", "to", to)
	return nil
}

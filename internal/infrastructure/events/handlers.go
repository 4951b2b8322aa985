package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/event"
)

// DefaultChannelPrefix namespaces published channels, e.g. "referrals:referral.status_changed"
const DefaultChannelPrefix = "referrals:"

// PublishedTypes lists the event types forwarded to the external publisher
var PublishedTypes = []event.Type{
	event.TypeReferralStatusChanged,
	event.TypeEarningRecorded,
	event.TypeLimitUpdated,
}

// PublishHandler forwards events as JSON to channelPrefix + event type
func PublishHandler(publisher port.EventPublisher, channelPrefix string) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		payload, err := evt.Marshal()
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", evt.ID, err)
		}
		return publisher.Publish(ctx, channelPrefix+evt.Type.String(), payload)
	}
}

// LogHandler writes every event to the log
func LogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type.String()),
			zap.Int64("referral_id", evt.ReferralID),
			zap.String("correlation_id", evt.CorrelationID),
			zap.Any("payload", evt.Payload))
		return nil
	}
}

// Register subscribes the log handler and, when publisher is non-nil, the publish handler
func Register(d dispatcher.Dispatcher, publisher port.EventPublisher, channelPrefix string, logger *zap.Logger) {
	for _, t := range PublishedTypes {
		d.Subscribe(t, "event-log", LogHandler(logger))
		if publisher != nil {
			d.Subscribe(t, "redis-publisher", PublishHandler(publisher, channelPrefix))
		}
	}
}

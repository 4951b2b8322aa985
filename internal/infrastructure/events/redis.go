package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
)

// NewRedisClient creates and verifies a Redis client connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// redisPublisher is satisfied by *redis.Client
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher implements port.EventPublisher with Redis pub/sub
type RedisPublisher struct {
	client redisPublisher
	logger *zap.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(client redisPublisher, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		logger: logger,
	}
}

// Publish sends payload to channel and reports how many subscribers received it
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		zap.String("channel", channel),
		zap.Int64("receivers", receivers))
	return nil
}

// Verify interface compliance
var _ port.EventPublisher = (*RedisPublisher)(nil)

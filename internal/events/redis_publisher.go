package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher forwards events to a Redis channel for out-of-process
// consumers (audit trail, webhooks, email fan-out). Failures are logged
// and dropped.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher creates the publisher.
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Handle serializes the event and publishes it. Registered against every
// event type via Subscribe.
func (p *RedisPublisher) Handle(ctx context.Context, event Event) error {
	if p.client == nil || p.channel == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("event marshal failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("event_id", event.ID),
			zap.String("channel", p.channel),
			zap.Error(err))
	}
	return nil
}

// SubscribeAll registers the publisher for every engine event type.
func (p *RedisPublisher) SubscribeAll(dispatcher Dispatcher) {
	for _, eventType := range []EventType{
		EventTicketCreated,
		EventAgentAssigned,
		EventMessageAdded,
		EventStatusChanged,
		EventSLABreached,
	} {
		dispatcher.Subscribe(eventType, p.Handle)
	}
}

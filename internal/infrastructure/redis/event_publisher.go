package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

const DefaultChannel = "auction_notifications"

// EventPublisher is the notification gateway: every event goes onto one
// pub/sub channel as JSON. Delivery is best effort, an event published while
// no subscriber is connected is lost.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

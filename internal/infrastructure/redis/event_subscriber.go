package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type EventSubscriber struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

func NewEventSubscriber(client *redis.Client, channel string, log logger.Logger) *EventSubscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &EventSubscriber{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Subscribe delivers every event on the channel to handler until ctx is
// cancelled. Malformed payloads and handler errors are logged and skipped.
func (s *EventSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.channel, err)
	}
	ch := pubsub.Channel()

	s.log.Info("Subscribed to notification events", "channel", s.channel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				s.log.Error("Failed to handle event", "type", event.Type,
					"target_user_id", event.TargetUserID, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

package services

import (
	"context"
	"fmt"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// EventListener delivers notification events from the broker to the
// target user's open websocket connections.
type EventListener struct {
	notifier domain.UserNotifier
	log      logger.Logger
}

func NewEventListener(notifier domain.UserNotifier, log logger.Logger) *EventListener {
	return &EventListener{
		notifier: notifier,
		log:      log,
	}
}

// Start blocks until ctx is cancelled or the subscription fails.
func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.Subscribe(ctx, func(event *domain.Event) error {
		return el.HandleEvent(ctx, event)
	})
}

func (el *EventListener) HandleEvent(ctx context.Context, event *domain.Event) error {
	el.log.Debug("Handling notification event",
		"type", event.Type, "listing_id", event.ListingID, "target_user_id", event.TargetUserID)

	switch event.Type {
	case domain.OutbidNotification, domain.AuctionWon, domain.AuctionLost, domain.AuthRequestAssigned:
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	if event.TargetUserID == "" {
		return fmt.Errorf("event %s for listing %s has no target user", event.Type, event.ListingID)
	}

	return el.notifier.NotifyUser(ctx, event.TargetUserID, clientMessage(event))
}

// clientMessage flattens the event into the message shape clients receive.
func clientMessage(event *domain.Event) map[string]interface{} {
	msg := make(map[string]interface{}, len(event.Payload)+3)
	for k, v := range event.Payload {
		msg[k] = v
	}
	msg["type"] = string(event.Type)
	msg["item_id"] = event.ListingID
	msg["timestamp"] = event.OccurredAt
	return msg
}

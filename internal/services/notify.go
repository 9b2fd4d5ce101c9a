package services

import (
	"context"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/pkg/logger"
)

// safeNotify publishes event and swallows any failure after logging it.
// Notification delivery must never undo or fail a committed state change.
func safeNotify(ctx context.Context, gw domain.NotificationGateway, log logger.Logger, event *domain.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := gw.Publish(ctx, event); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(event.Type), "error").Inc()
		log.Error("Failed to publish notification",
			"type", event.Type,
			"listing_id", event.ListingID,
			"target_user_id", event.TargetUserID,
			"error", err)
		return
	}

	metrics.NotificationsTotal.WithLabelValues(string(event.Type), "sent").Inc()
}

package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// OutbidScanner recomputes, from the bid ledger, which open listings a user
// is no longer leading. It keeps no state, so every call notifies again.
type OutbidScanner struct {
	store    domain.Store
	notifier domain.NotificationGateway
	log      logger.Logger
	now      func() time.Time
}

func NewOutbidScanner(store domain.Store, notifier domain.NotificationGateway, log logger.Logger) *OutbidScanner {
	return &OutbidScanner{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *OutbidScanner) Scan(ctx context.Context, userID string) ([]domain.OutbidNotice, error) {
	var positions []*domain.BidderPosition
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		positions, err = repos.Bids.ListBidderPositions(ctx, userID, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list bidder positions: %w", err)
	}

	notices := make([]domain.OutbidNotice, 0)
	for _, position := range positions {
		if position.LatestBid == nil || !position.CurrentBid.GreaterThan(position.LatestBid.Amount) {
			continue
		}

		notice := domain.OutbidNotice{
			ListingID:   position.ListingID,
			ListingName: position.ListingName,
			YourBid:     position.LatestBid.Amount,
			OutbidPrice: position.CurrentBid,
		}
		notices = append(notices, notice)

		safeNotify(ctx, s.notifier, s.log, &domain.Event{
			Type:         domain.OutbidNotification,
			ListingID:    position.ListingID,
			TargetUserID: userID,
			Payload: map[string]interface{}{
				"item_id":      notice.ListingID,
				"item_name":    notice.ListingName,
				"outbid_price": notice.OutbidPrice.StringFixed(2),
			},
		})
	}

	s.log.Debug("Outbid scan finished", "user_id", userID, "positions", len(positions), "outbid", len(notices))
	return notices, nil
}

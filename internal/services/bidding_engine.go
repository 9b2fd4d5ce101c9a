package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

type PlaceBidResult struct {
	Bid *domain.Bid
	// Outbid is the bid that led before this one, nil for the first bid.
	Outbid *domain.Bid
}

type BiddingEngine struct {
	store domain.Store
	log   logger.Logger
	now   func() time.Time
}

func NewBiddingEngine(store domain.Store, log logger.Logger) *BiddingEngine {
	return &BiddingEngine{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// PlaceBid validates and records a bid. Rejections are returned as the domain
// sentinel errors; anything else is wrapped in domain.ErrBidFailed and leaves
// no partial state behind.
func (e *BiddingEngine) PlaceBid(ctx context.Context, listingID, bidderID string, amount decimal.Decimal) (*PlaceBidResult, error) {
	var result *PlaceBidResult

	err := e.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.PaymentProfiles.GetPaymentProfile(ctx, bidderID); err != nil {
			return err
		}
		if !domain.IsValidMoney(amount) {
			return domain.ErrInvalidAmount
		}

		listing, err := repos.Listings.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}

		now := e.now()
		if !listing.IsOpen(now) {
			return domain.ErrAuctionClosed
		}
		if !amount.GreaterThan(listing.MinPrice) {
			return domain.ErrBidTooLow
		}
		if !amount.GreaterThan(listing.CurrentBid) {
			return domain.ErrBidNotHighEnough
		}

		if err := repos.Listings.UpdateCurrentBid(ctx, listingID, amount); err != nil {
			return err
		}

		previous, err := repos.Bids.GetLeadingBid(ctx, listingID)
		if err != nil {
			return err
		}
		if previous != nil {
			if err := repos.Bids.ClearLeadingFlag(ctx, previous.ID); err != nil {
				return err
			}
			previous.SuccessfulBid = false
		}

		bid := &domain.Bid{
			ID:            utils.GenerateID("bid"),
			ListingID:     listingID,
			BidderID:      bidderID,
			Amount:        amount,
			PlacedAt:      now,
			SuccessfulBid: true,
		}
		if err := repos.Bids.InsertBid(ctx, bid); err != nil {
			return err
		}

		result = &PlaceBidResult{Bid: bid, Outbid: previous}
		return nil
	})

	if err != nil {
		if reason, ok := domain.RejectionReason(err); ok {
			metrics.BidsTotal.WithLabelValues(string(reason)).Inc()
			e.log.Debug("Bid rejected",
				"listing_id", listingID, "bidder_id", bidderID, "amount", amount, "reason", reason)
			return nil, err
		}

		metrics.BidsTotal.WithLabelValues("error").Inc()
		e.log.Error("Failed to place bid", "listing_id", listingID, "bidder_id", bidderID, "error", err)
		if errors.Is(err, domain.ErrBidFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBidFailed, err)
	}

	metrics.BidsTotal.WithLabelValues("accepted").Inc()
	e.log.Info("Bid accepted",
		"listing_id", listingID, "bidder_id", bidderID, "bid_id", result.Bid.ID, "amount", amount)
	return result, nil
}

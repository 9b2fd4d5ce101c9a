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

type SettlementStatus string

const (
	SettlementSettled        SettlementStatus = "settled"
	SettlementAlreadySettled SettlementStatus = "already_settled"
	SettlementNoBids         SettlementStatus = "no_bids"
	SettlementNotDue         SettlementStatus = "not_due"
	SettlementListingMissing SettlementStatus = "listing_missing"
	SettlementPaymentFailed  SettlementStatus = "payment_failed"
)

type SettlementOutcome struct {
	ListingID  string             `json:"listing_id"`
	Status     SettlementStatus   `json:"status"`
	WinningBid *domain.Bid        `json:"winning_bid,omitempty"`
	Settlement *domain.Settlement `json:"settlement,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// ProfitSplit is the share of a winning bid kept by the marketplace manager
// and by the authenticating expert. The seller receives the remainder.
type ProfitSplit struct {
	Manager decimal.Decimal
	Expert  decimal.Decimal
}

type SettlementProcessor struct {
	store    domain.Store
	payments domain.PaymentGateway
	notifier domain.NotificationGateway
	split    ProfitSplit
	log      logger.Logger
	now      func() time.Time
}

func NewSettlementProcessor(
	store domain.Store,
	payments domain.PaymentGateway,
	notifier domain.NotificationGateway,
	split ProfitSplit,
	log logger.Logger,
) *SettlementProcessor {
	return &SettlementProcessor{
		store:    store,
		payments: payments,
		notifier: notifier,
		split:    split,
		log:      log,
		now:      time.Now,
	}
}

// Settle closes the listing if its window has elapsed: the highest bidder is
// charged and, on success, the listing is marked sold. Calling it again after
// a successful settlement does nothing.
func (p *SettlementProcessor) Settle(ctx context.Context, listingID string) (*SettlementOutcome, error) {
	return p.settle(ctx, listingID, true)
}

// settle holds the listing row lock across the charge so a concurrent bid
// cannot land between choosing the winner and marking the listing sold.
// notifyOnFailure controls whether losers hear about a failed charge.
func (p *SettlementProcessor) settle(ctx context.Context, listingID string, notifyOnFailure bool) (*SettlementOutcome, error) {
	outcome := &SettlementOutcome{ListingID: listingID}
	var listing *domain.Listing
	var bidders []string
	var winnerEmail string

	err := p.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		listing, err = repos.Listings.GetListingForUpdate(ctx, listingID)
		if errors.Is(err, domain.ErrListingNotFound) {
			outcome.Status = SettlementListingMissing
			return nil
		}
		if err != nil {
			return err
		}

		if listing.Sold {
			outcome.Status = SettlementAlreadySettled
			return nil
		}
		if p.now().Before(listing.AvailableUntil) {
			outcome.Status = SettlementNotDue
			return nil
		}

		winner, err := repos.Bids.GetHighestBid(ctx, listingID)
		if err != nil {
			return err
		}
		if winner == nil {
			outcome.Status = SettlementNoBids
			return nil
		}
		outcome.WinningBid = winner

		bids, err := repos.Bids.ListBidsForListing(ctx, listingID)
		if err != nil {
			return err
		}
		bidders = distinctBidders(bids)

		charge, profile, err := p.charge(ctx, repos, winner)
		if err != nil {
			return err
		}
		if !charge.Success {
			outcome.Status = SettlementPaymentFailed
			outcome.Reason = charge.FailureReason
			return nil
		}

		if err := repos.Listings.MarkSold(ctx, listingID); err != nil {
			return err
		}
		if err := repos.Bids.MarkWinning(ctx, winner.ID); err != nil {
			return err
		}
		winner.WinningBid = true

		settlement := p.buildSettlement(listing, winner, charge.Reference)
		if err := repos.Settlements.CreateSettlement(ctx, settlement); err != nil {
			return err
		}

		outcome.Status = SettlementSettled
		outcome.Settlement = settlement
		winnerEmail = profile.Email
		return nil
	})
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues("error").Inc()
		p.log.Error("Failed to settle listing", "listing_id", listingID, "error", err)
		return nil, fmt.Errorf("settle listing %s: %w", listingID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(string(outcome.Status)).Inc()

	switch outcome.Status {
	case SettlementSettled:
		p.log.Info("Listing settled",
			"listing_id", listingID,
			"bid_id", outcome.WinningBid.ID,
			"bidder_id", outcome.WinningBid.BidderID,
			"amount", outcome.WinningBid.Amount)
		p.notifyResult(ctx, listing, outcome.WinningBid, bidders, true, winnerEmail)
	case SettlementPaymentFailed:
		p.log.Warn("Payment failed for winning bid",
			"listing_id", listingID,
			"bid_id", outcome.WinningBid.ID,
			"bidder_id", outcome.WinningBid.BidderID,
			"reason", outcome.Reason)
		if notifyOnFailure {
			p.notifyResult(ctx, listing, outcome.WinningBid, bidders, false, "")
		}
	case SettlementListingMissing:
		p.log.Warn("Settlement requested for missing listing", "listing_id", listingID)
	default:
		p.log.Debug("Nothing to settle", "listing_id", listingID, "status", outcome.Status)
	}

	return outcome, nil
}

// charge treats a missing payment profile as a failed charge.
func (p *SettlementProcessor) charge(ctx context.Context, repos domain.Repositories, winner *domain.Bid) (*domain.ChargeResult, *domain.PaymentProfile, error) {
	profile, err := repos.PaymentProfiles.GetPaymentProfile(ctx, winner.BidderID)
	if errors.Is(err, domain.ErrPaymentMethodMissing) {
		return &domain.ChargeResult{FailureReason: err.Error()}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	result, err := p.payments.Charge(ctx, domain.ChargeRequest{
		Profile:        profile,
		Amount:         winner.Amount,
		IdempotencyKey: fmt.Sprintf("settle-%s-%s", winner.ListingID, winner.ID),
	})
	if err != nil {
		return &domain.ChargeResult{FailureReason: err.Error()}, profile, nil
	}
	return result, profile, nil
}

func (p *SettlementProcessor) buildSettlement(listing *domain.Listing, winner *domain.Bid, reference string) *domain.Settlement {
	managerFee := winner.Amount.Mul(p.split.Manager).Round(2)
	expertFee := decimal.Zero
	if listing.ExpertID != "" && listing.Verified {
		expertFee = winner.Amount.Mul(p.split.Expert).Round(2)
	}

	return &domain.Settlement{
		ID:              utils.GenerateID("stl"),
		ListingID:       listing.ID,
		BidID:           winner.ID,
		BidderID:        winner.BidderID,
		Amount:          winner.Amount,
		ChargeReference: reference,
		ManagerFee:      managerFee,
		ExpertFee:       expertFee,
		SellerProceeds:  winner.Amount.Sub(managerFee).Sub(expertFee),
		SettledAt:       p.now(),
	}
}

// notifyResult tells the winner (only when won is true) and every other
// distinct bidder the outcome. The winner's event carries the stored email so
// a mail consumer on the channel can send the confirmation.
func (p *SettlementProcessor) notifyResult(ctx context.Context, listing *domain.Listing, winner *domain.Bid,
	bidders []string, won bool, winnerEmail string) {
	payload := func() map[string]interface{} {
		return map[string]interface{}{
			"item_id":       listing.ID,
			"item_name":     listing.Name,
			"winning_price": winner.Amount.StringFixed(2),
		}
	}

	if won {
		wonPayload := payload()
		if winnerEmail != "" {
			wonPayload["email"] = winnerEmail
		}
		safeNotify(ctx, p.notifier, p.log, &domain.Event{
			Type:         domain.AuctionWon,
			ListingID:    listing.ID,
			TargetUserID: winner.BidderID,
			Payload:      wonPayload,
		})
	}

	for _, bidderID := range bidders {
		if bidderID == winner.BidderID {
			continue
		}
		safeNotify(ctx, p.notifier, p.log, &domain.Event{
			Type:         domain.AuctionLost,
			ListingID:    listing.ID,
			TargetUserID: bidderID,
			Payload:      payload(),
		})
	}
}

func distinctBidders(bids []*domain.Bid) []string {
	seen := make(map[string]bool, len(bids))
	var out []string
	for _, b := range bids {
		if seen[b.BidderID] {
			continue
		}
		seen[b.BidderID] = true
		out = append(out, b.BidderID)
	}
	return out
}

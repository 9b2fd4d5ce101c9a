package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

type CreateListingInput struct {
	SellerID       string
	Name           string
	Description    string
	MinPrice       decimal.Decimal
	AvailableUntil time.Time
}

type ListingDetails struct {
	Listing *domain.Listing
	Bids    []*domain.Bid
}

// ListingService owns the listing lifecycle around the auction: creation,
// changes to the bidding window and expert assignment. Every change to the
// window goes through the scheduler in the same transaction.
type ListingService struct {
	store     domain.Store
	scheduler domain.TaskScheduler
	notifier  domain.NotificationGateway
	log       logger.Logger
	now       func() time.Time
}

func NewListingService(
	store domain.Store,
	scheduler domain.TaskScheduler,
	notifier domain.NotificationGateway,
	log logger.Logger,
) *ListingService {
	return &ListingService{
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if !in.MinPrice.IsPositive() || !domain.IsValidMoney(in.MinPrice) {
		return nil, fmt.Errorf("create listing: min price %s: %w", in.MinPrice, domain.ErrInvalidAmount)
	}

	listing := &domain.Listing{
		ID:             utils.GenerateID("listing"),
		SellerID:       in.SellerID,
		Name:           in.Name,
		Description:    in.Description,
		MinPrice:       in.MinPrice,
		CurrentBid:     decimal.Zero,
		CreatedAt:      s.now(),
		AvailableUntil: in.AvailableUntil,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Listings.CreateListing(ctx, listing); err != nil {
			return err
		}
		return s.scheduler.ScheduleClose(ctx, repos, listing.ID, listing.AvailableUntil)
	})
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.log.Info("Listing created", "listing_id", listing.ID, "seller_id", listing.SellerID,
		"available_until", listing.AvailableUntil)
	return listing, nil
}

func (s *ListingService) GetListing(ctx context.Context, listingID string) (*ListingDetails, error) {
	details := &ListingDetails{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		if details.Listing, err = repos.Listings.GetListing(ctx, listingID); err != nil {
			return err
		}
		details.Bids, err = repos.Bids.ListBidsForListing(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateAvailability moves the end of the bidding window and replaces the
// pending close task.
func (s *ListingService) UpdateAvailability(ctx context.Context, listingID string, until time.Time) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		listing, err = repos.Listings.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Sold {
			return domain.ErrListingSold
		}

		if err := repos.Listings.UpdateAvailability(ctx, listingID, until); err != nil {
			return err
		}
		listing.AvailableUntil = until
		return s.scheduler.ScheduleClose(ctx, repos, listingID, until)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Listing availability updated", "listing_id", listingID, "available_until", until)
	return listing, nil
}

// CancelSchedule removes the pending close. The listing stays unsold until it
// is rescheduled or settled by hand.
func (s *ListingService) CancelSchedule(ctx context.Context, listingID string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		listing, err := repos.Listings.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Sold {
			return domain.ErrListingSold
		}
		return s.scheduler.CancelClose(ctx, repos, listingID)
	})
	if err != nil {
		return err
	}

	s.log.Info("Listing close cancelled", "listing_id", listingID)
	return nil
}

func (s *ListingService) AssignExpert(ctx context.Context, listingID, expertID string) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		listing, err = repos.Listings.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if err := repos.Listings.AssignExpert(ctx, listingID, expertID); err != nil {
			return err
		}
		listing.ExpertID = expertID
		listing.AuthenticationRequest = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	safeNotify(ctx, s.notifier, s.log, &domain.Event{
		Type:         domain.AuthRequestAssigned,
		ListingID:    listing.ID,
		TargetUserID: expertID,
		Payload: map[string]interface{}{
			"item_id":   listing.ID,
			"item_name": listing.Name,
		},
	})

	s.log.Info("Expert assigned", "listing_id", listingID, "expert_id", expertID)
	return listing, nil
}

package handlers

import (
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"

	"github.com/shopspring/decimal"
)

type CreateListingRequest struct {
	SellerID       string          `json:"seller_id" validate:"required"`
	Name           string          `json:"name" validate:"required,max=255"`
	Description    string          `json:"description"`
	MinPrice       decimal.Decimal `json:"min_price" validate:"gt=0"`
	AvailableUntil time.Time       `json:"available_until" validate:"required"`
}

type UpdateAvailabilityRequest struct {
	AvailableUntil time.Time `json:"available_until" validate:"required"`
}

type AssignExpertRequest struct {
	ExpertID string `json:"expert_id" validate:"required"`
}

type PlaceBidRequest struct {
	BidderID string          `json:"bidder_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type ListingResponse struct {
	ID                    string          `json:"id"`
	SellerID              string          `json:"seller_id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	MinPrice              decimal.Decimal `json:"min_price"`
	CurrentBid            decimal.Decimal `json:"current_bid"`
	CreatedAt             time.Time       `json:"created_at"`
	AvailableUntil        time.Time       `json:"available_until"`
	AuthenticationRequest bool            `json:"authentication_request"`
	Verified              bool            `json:"verified"`
	ExpertID              string          `json:"expert_id,omitempty"`
	Sold                  bool            `json:"sold"`
}

type BidResponse struct {
	ID            string          `json:"id"`
	ListingID     string          `json:"item_id"`
	BidderID      string          `json:"bidder_id"`
	Amount        decimal.Decimal `json:"amount"`
	PlacedAt      time.Time       `json:"placed_at"`
	SuccessfulBid bool            `json:"successful_bid"`
	WinningBid    bool            `json:"winning_bid"`
}

type ListingDetailsResponse struct {
	Listing ListingResponse `json:"listing"`
	Bids    []BidResponse   `json:"bids"`
}

type PlaceBidResponse struct {
	Bid            BidResponse `json:"bid"`
	OutbidBidderID string      `json:"outbid_bidder_id,omitempty"`
}

type SettlementResponse struct {
	ID              string          `json:"id"`
	BidID           string          `json:"bid_id"`
	BidderID        string          `json:"bidder_id"`
	Amount          decimal.Decimal `json:"amount"`
	ChargeReference string          `json:"charge_reference"`
	ManagerFee      decimal.Decimal `json:"manager_fee"`
	ExpertFee       decimal.Decimal `json:"expert_fee"`
	SellerProceeds  decimal.Decimal `json:"seller_proceeds"`
	SettledAt       time.Time       `json:"settled_at"`
}

type SettleResponse struct {
	ListingID  string              `json:"listing_id"`
	Status     string              `json:"status"`
	WinningBid *BidResponse        `json:"winning_bid,omitempty"`
	Settlement *SettlementResponse `json:"settlement,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

type OutbidResponse struct {
	UserID  string                `json:"user_id"`
	Notices []domain.OutbidNotice `json:"notices"`
}

func toListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:                    l.ID,
		SellerID:              l.SellerID,
		Name:                  l.Name,
		Description:           l.Description,
		MinPrice:              l.MinPrice,
		CurrentBid:            l.CurrentBid,
		CreatedAt:             l.CreatedAt,
		AvailableUntil:        l.AvailableUntil,
		AuthenticationRequest: l.AuthenticationRequest,
		Verified:              l.Verified,
		ExpertID:              l.ExpertID,
		Sold:                  l.Sold,
	}
}

func toBidResponse(b *domain.Bid) BidResponse {
	return BidResponse{
		ID:            b.ID,
		ListingID:     b.ListingID,
		BidderID:      b.BidderID,
		Amount:        b.Amount,
		PlacedAt:      b.PlacedAt,
		SuccessfulBid: b.SuccessfulBid,
		WinningBid:    b.WinningBid,
	}
}

func toSettleResponse(o *services.SettlementOutcome) SettleResponse {
	resp := SettleResponse{
		ListingID: o.ListingID,
		Status:    string(o.Status),
		Reason:    o.Reason,
	}
	if o.WinningBid != nil {
		bid := toBidResponse(o.WinningBid)
		resp.WinningBid = &bid
	}
	if s := o.Settlement; s != nil {
		resp.Settlement = &SettlementResponse{
			ID:              s.ID,
			BidID:           s.BidID,
			BidderID:        s.BidderID,
			Amount:          s.Amount,
			ChargeReference: s.ChargeReference,
			ManagerFee:      s.ManagerFee,
			ExpertFee:       s.ExpertFee,
			SellerProceeds:  s.SellerProceeds,
			SettledAt:       s.SettledAt,
		}
	}
	return resp
}

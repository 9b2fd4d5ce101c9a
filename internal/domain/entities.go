package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one item for sale. CurrentBid is zero until the first accepted
// bid and afterwards always equals the highest accepted bid in the ledger.
type Listing struct {
	ID                            string
	SellerID                      string
	Name                          string
	Description                   string
	MinPrice                      decimal.Decimal
	CurrentBid                    decimal.Decimal
	CreatedAt                     time.Time
	AvailableUntil                time.Time
	AuthenticationRequest         bool
	Verified                      bool
	AuthenticationRequestApproved *bool
	ExpertID                      string
	Sold                          bool
}

// IsOpen reports whether the listing still accepts bids at the given time.
func (l *Listing) IsOpen(now time.Time) bool {
	return !l.Sold && now.Before(l.AvailableUntil)
}

type Bid struct {
	ID            string
	ListingID     string
	BidderID      string
	Amount        decimal.Decimal
	PlacedAt      time.Time
	SuccessfulBid bool
	WinningBid    bool
}

// PaymentProfile is the bidder's stored payment method with the provider.
type PaymentProfile struct {
	BidderID        string
	CustomerID      string
	PaymentMethodID string
	Email           string
}

// Settlement records the outcome of a successful charge for a sold listing.
type Settlement struct {
	ID              string
	ListingID       string
	BidID           string
	BidderID        string
	Amount          decimal.Decimal
	ChargeReference string
	ManagerFee      decimal.Decimal
	ExpertFee       decimal.Decimal
	SellerProceeds  decimal.Decimal
	SettledAt       time.Time
}

// BidderPosition is a user's most recent bid on a listing that is still open,
// together with the listing's current price.
type BidderPosition struct {
	ListingID   string
	ListingName string
	CurrentBid  decimal.Decimal
	LatestBid   *Bid
}

type OutbidNotice struct {
	ListingID   string          `json:"item_id"`
	ListingName string          `json:"item_name"`
	YourBid     decimal.Decimal `json:"your_bid"`
	OutbidPrice decimal.Decimal `json:"outbid_price"`
}

type ScheduledTask struct {
	ID        string
	Kind      TaskKind
	ListingID string
	Payload   TaskPayload
	ExecuteAt time.Time
	Completed bool
	Attempts  int
	LastError string
	CreatedAt time.Time
}

type TaskPayload struct {
	ListingID string `json:"listing_id"`
}

package domain

import "errors"

// Bid rejections. These are expected user-facing outcomes.
var (
	ErrPaymentMethodMissing = errors.New("no payment method registered for bidder")
	ErrListingNotFound      = errors.New("listing not found")
	ErrBidTooLow            = errors.New("bid must be higher than the minimum price")
	ErrBidNotHighEnough     = errors.New("bid must be higher than the current bid")
	ErrAuctionClosed        = errors.New("auction is closed")
	ErrInvalidAmount        = errors.New("amount must have at most two decimal places and fit the price range")
)

var (
	ErrBidFailed       = errors.New("failed to place bid")
	ErrListingSold     = errors.New("listing already sold")
	ErrUnknownTaskKind = errors.New("unknown task kind")
)

type RejectReason string

const (
	RejectPaymentMethodMissing RejectReason = "payment_method_missing"
	RejectListingNotFound      RejectReason = "listing_not_found"
	RejectBidTooLow            RejectReason = "bid_too_low"
	RejectBidNotHighEnough     RejectReason = "bid_not_high_enough"
	RejectAuctionClosed        RejectReason = "auction_closed"
	RejectInvalidAmount        RejectReason = "invalid_amount"
)

var rejections = []struct {
	err    error
	reason RejectReason
}{
	{ErrPaymentMethodMissing, RejectPaymentMethodMissing},
	{ErrListingNotFound, RejectListingNotFound},
	{ErrBidTooLow, RejectBidTooLow},
	{ErrBidNotHighEnough, RejectBidNotHighEnough},
	{ErrAuctionClosed, RejectAuctionClosed},
	{ErrInvalidAmount, RejectInvalidAmount},
}

// RejectionReason returns the reason code when err is a bid rejection.
func RejectionReason(err error) (RejectReason, bool) {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return r.reason, true
		}
	}
	return "", false
}

func IsBidRejection(err error) bool {
	_, ok := RejectionReason(err)
	return ok
}

package services

import (
	"context"
	"testing"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/testutil/memstore"
	"auction-marketplace/internal/testutil/mocks"
	"auction-marketplace/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testLogger(t *testing.T) logger.Logger {
	return logger.NewFromZap(zaptest.NewLogger(t))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seedListing(store *memstore.Store, id, minPrice string, until time.Time) {
	store.PutListing(domain.Listing{
		ID:             id,
		SellerID:       "seller_1",
		Name:           "Item " + id,
		MinPrice:       dec(minPrice),
		CurrentBid:     decimal.Zero,
		CreatedAt:      baseTime.Add(-24 * time.Hour),
		AvailableUntil: until,
	})
}

func seedBidders(store *memstore.Store, ids ...string) {
	for _, id := range ids {
		store.PutPaymentProfile(domain.PaymentProfile{
			BidderID:        id,
			CustomerID:      "cus_" + id,
			PaymentMethodID: "pm_" + id,
			Email:           id + "@example.com",
		})
	}
}

// placeBids places bids one second apart starting at baseTime, failing the
// test on any error.
func placeBids(t *testing.T, engine *BiddingEngine, listingID string, bids ...[2]string) []*domain.Bid {
	t.Helper()
	var placed []*domain.Bid
	for i, b := range bids {
		engine.now = fixedClock(baseTime.Add(time.Duration(i) * time.Second))
		result, err := engine.PlaceBid(context.Background(), listingID, b[0], dec(b[1]))
		require.NoError(t, err, "bid %d by %s", i, b[0])
		placed = append(placed, result.Bid)
	}
	return placed
}

func chargeSucceeds(payments *mocks.PaymentGateway, reference string) *mocks.PaymentGateway {
	payments.On("Charge", mock.Anything, mock.AnythingOfType("domain.ChargeRequest")).
		Return(&domain.ChargeResult{Success: true, Reference: reference}, nil)
	return payments
}

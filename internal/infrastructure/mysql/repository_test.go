package mysql

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"auction-marketplace/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	listingCols = []string{"id", "seller_id", "name", "description", "min_price", "current_bid",
		"created_at", "available_until", "authentication_request", "verified",
		"authentication_request_approved", "expert_id", "sold"}
	bidCols  = []string{"id", "listing_id", "bidder_id", "amount", "placed_at", "successful_bid", "winning_bid"}
	taskCols = []string{"id", "kind", "listing_id", "payload", "execute_at", "completed", "attempts", "last_error", "created_at"}
)

func TestListingRepository_GetListingForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLListingRepository(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = ? FOR UPDATE`)).
		WithArgs("listing_1").
		WillReturnRows(sqlmock.NewRows(listingCols).AddRow(
			"listing_1", "seller_1", "Vintage watch", "1960s", "50.00", "70.00",
			now, now.Add(time.Hour), true, true, true, "expert_9", false))

	listing, err := repo.GetListingForUpdate(context.Background(), "listing_1")
	require.NoError(t, err)

	assert.Equal(t, "Vintage watch", listing.Name)
	assert.True(t, listing.MinPrice.Equal(decimal.NewFromInt(50)))
	assert.True(t, listing.CurrentBid.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "expert_9", listing.ExpertID)
	require.NotNil(t, listing.AuthenticationRequestApproved)
	assert.True(t, *listing.AuthenticationRequestApproved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_GetListingNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = ?`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(listingCols))

	_, err := repo.GetListing(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepository_CreateListingNullables(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLListingRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO listings`)).
		WithArgs("listing_1", "seller_1", "Lamp", "", decimal.NewFromInt(10), decimal.Zero,
			now, now.Add(time.Hour), false, false, nil, nil, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateListing(context.Background(), &domain.Listing{
		ID: "listing_1", SellerID: "seller_1", Name: "Lamp",
		MinPrice: decimal.NewFromInt(10), CreatedAt: now, AvailableUntil: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBidRepository_GetHighestBid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLBidRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY amount DESC, placed_at ASC`)).
		WithArgs("listing_1").
		WillReturnRows(sqlmock.NewRows(bidCols).
			AddRow("bid_2", "listing_1", "bidder_b", "150.00", now, false, false))

	bid, err := repo.GetHighestBid(context.Background(), "listing_1")
	require.NoError(t, err)
	require.NotNil(t, bid)
	assert.Equal(t, "bid_2", bid.ID)
	assert.True(t, bid.Amount.Equal(decimal.NewFromInt(150)))
}

func TestBidRepository_NoBidsIsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLBidRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`successful_bid = TRUE`)).
		WithArgs("listing_1").
		WillReturnRows(sqlmock.NewRows(bidCols))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY amount DESC`)).
		WithArgs("listing_1").
		WillReturnRows(sqlmock.NewRows(bidCols))

	leading, err := repo.GetLeadingBid(context.Background(), "listing_1")
	require.NoError(t, err)
	assert.Nil(t, leading)

	highest, err := repo.GetHighestBid(context.Background(), "listing_1")
	require.NoError(t, err)
	assert.Nil(t, highest)
}

func TestBidRepository_InsertAndFlags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLBidRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bids`)).
		WithArgs("bid_1", "listing_1", "bidder_a", decimal.NewFromInt(60), now, true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bids SET successful_bid = FALSE WHERE id = ?`)).
		WithArgs("bid_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bids SET winning_bid = TRUE WHERE id = ?`)).
		WithArgs("bid_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, repo.InsertBid(ctx, &domain.Bid{
		ID: "bid_1", ListingID: "listing_1", BidderID: "bidder_a",
		Amount: decimal.NewFromInt(60), PlacedAt: now, SuccessfulBid: true,
	}))
	require.NoError(t, repo.ClearLeadingFlag(ctx, "bid_1"))
	require.NoError(t, repo.MarkWinning(ctx, "bid_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBidRepository_ListBidderPositions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLBidRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM bids b`)).
		WithArgs("bidder_a", now).
		WillReturnRows(sqlmock.NewRows(append([]string{"l.id", "l.name", "l.current_bid"}, bidCols...)).
			AddRow("listing_1", "Vintage watch", "70.00", "bid_1", "listing_1", "bidder_a", "60.00", now, false, false))

	positions, err := repo.ListBidderPositions(context.Background(), "bidder_a", now)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.Equal(t, "Vintage watch", positions[0].ListingName)
	assert.True(t, positions[0].CurrentBid.Equal(decimal.NewFromInt(70)))
	assert.True(t, positions[0].LatestBid.Amount.Equal(decimal.NewFromInt(60)))
}

func TestSchedulerRepository_GetDueTasks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLSchedulerRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE execute_at <= ? AND completed = FALSE`)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow("task_1", "close_auction", "listing_1", []byte(`{"listing_id":"listing_1"}`), now, false, 0, "", now).
			AddRow("task_2", "process_auction_ending", "listing_2", []byte(`{}`), now, false, 2, "boom", now))

	tasks, err := repo.GetDueTasks(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, domain.TaskCloseAuction, tasks[0].Kind)
	assert.Equal(t, "listing_1", tasks[0].Payload.ListingID)
	assert.Equal(t, domain.TaskKind(0), tasks[1].Kind)
	assert.Equal(t, 2, tasks[1].Attempts)
}

func TestSchedulerRepository_Writes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLSchedulerRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO scheduled_tasks`)).
		WithArgs("task_1", "close_auction", "listing_1", sqlmock.AnyArg(), now, false, 0, "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM scheduled_tasks WHERE listing_id = ? AND kind = ?`)).
		WithArgs("listing_1", "close_auction").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET attempts = attempts + 1, last_error = ?`)).
		WithArgs("payment declined", "task_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM scheduled_tasks WHERE id = ?`)).
		WithArgs("task_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, repo.CreateTask(ctx, &domain.ScheduledTask{
		ID: "task_1", Kind: domain.TaskCloseAuction, ListingID: "listing_1",
		Payload: domain.TaskPayload{ListingID: "listing_1"}, ExecuteAt: now, CreatedAt: now,
	}))
	require.NoError(t, repo.DeleteTasksForListing(ctx, "listing_1", domain.TaskCloseAuction))
	require.NoError(t, repo.RecordFailure(ctx, "task_1", "payment declined"))
	require.NoError(t, repo.DeleteTask(ctx, "task_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRepository_RecordFailureKeepsValidUTF8(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLSchedulerRepository(db)

	// 511 ASCII bytes followed by a two-byte rune straddling the 512 limit.
	reason := strings.Repeat("x", 511) + "é carte refusée"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_tasks SET attempts = attempts + 1, last_error = ?`)).
		WithArgs(strings.Repeat("x", 511), "task_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordFailure(context.Background(), "task_1", reason))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"declined", 512, "declined"},
		{"abcdef", 3, "abc"},
		{"ab€", 4, "ab"},
		{"ab€", 5, "ab€"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.max)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestPaymentProfileRepository_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLPaymentProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM payment_profiles`)).
		WithArgs("bidder_a").
		WillReturnRows(sqlmock.NewRows([]string{"bidder_id", "customer_id", "payment_method_id", "email"}))

	_, err := repo.GetPaymentProfile(context.Background(), "bidder_a")
	assert.ErrorIs(t, err, domain.ErrPaymentMethodMissing)
}

func TestSettlementRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLSettlementRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO settlements`)).
		WithArgs("stl_1", "listing_1", "bid_2", "bidder_b", decimal.NewFromInt(70), "ch_1",
			decimal.RequireFromString("3.5"), decimal.Zero, decimal.RequireFromString("66.5"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateSettlement(context.Background(), &domain.Settlement{
		ID: "stl_1", ListingID: "listing_1", BidID: "bid_2", BidderID: "bidder_b",
		Amount: decimal.NewFromInt(70), ChargeReference: "ch_1",
		ManagerFee: decimal.RequireFromString("3.5"), ExpertFee: decimal.Zero,
		SellerProceeds: decimal.RequireFromString("66.5"), SettledAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

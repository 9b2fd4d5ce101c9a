package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-marketplace/internal/domain"
)

const bidColumns = `id, listing_id, bidder_id, amount, placed_at, successful_bid, winning_bid`

type MySQLBidRepository struct {
	db DBTX
}

func NewMySQLBidRepository(db DBTX) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) InsertBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (` + bidColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.ListingID, bid.BidderID, bid.Amount,
		bid.PlacedAt, bid.SuccessfulBid, bid.WinningBid)
	return err
}

func (r *MySQLBidRepository) GetLeadingBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE listing_id = ? AND successful_bid = TRUE
        ORDER BY placed_at DESC
        LIMIT 1
    `
	return optionalBid(scanBid(r.db.QueryRowContext(ctx, query, listingID)))
}

func (r *MySQLBidRepository) ClearLeadingFlag(ctx context.Context, bidID string) error {
	query := `UPDATE bids SET successful_bid = FALSE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, bidID)
	return err
}

func (r *MySQLBidRepository) GetHighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE listing_id = ?
        ORDER BY amount DESC, placed_at ASC
        LIMIT 1
    `
	return optionalBid(scanBid(r.db.QueryRowContext(ctx, query, listingID)))
}

func (r *MySQLBidRepository) MarkWinning(ctx context.Context, bidID string) error {
	query := `UPDATE bids SET winning_bid = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, bidID)
	return err
}

func (r *MySQLBidRepository) ListBidsForListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE listing_id = ?
        ORDER BY placed_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}

	return bids, rows.Err()
}

func (r *MySQLBidRepository) ListBidderPositions(ctx context.Context, bidderID string, now time.Time) ([]*domain.BidderPosition, error) {
	query := `
        SELECT l.id, l.name, l.current_bid,
               b.id, b.listing_id, b.bidder_id, b.amount, b.placed_at, b.successful_bid, b.winning_bid
        FROM bids b
        JOIN listings l ON l.id = b.listing_id
        WHERE b.bidder_id = ?
          AND l.sold = FALSE
          AND l.available_until > ?
          AND b.id = (
              SELECT latest.id FROM bids latest
              WHERE latest.listing_id = b.listing_id AND latest.bidder_id = b.bidder_id
              ORDER BY latest.placed_at DESC, latest.amount DESC
              LIMIT 1
          )
        ORDER BY l.available_until ASC
    `

	rows, err := r.db.QueryContext(ctx, query, bidderID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.BidderPosition
	for rows.Next() {
		var position domain.BidderPosition
		var bid domain.Bid

		err := rows.Scan(&position.ListingID, &position.ListingName, &position.CurrentBid,
			&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Amount, &bid.PlacedAt,
			&bid.SuccessfulBid, &bid.WinningBid)
		if err != nil {
			return nil, err
		}

		position.LatestBid = &bid
		positions = append(positions, &position)
	}

	return positions, rows.Err()
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var bid domain.Bid
	err := row.Scan(&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Amount,
		&bid.PlacedAt, &bid.SuccessfulBid, &bid.WinningBid)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func optionalBid(bid *domain.Bid, err error) (*domain.Bid, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return bid, err
}

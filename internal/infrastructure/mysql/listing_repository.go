package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

const listingColumns = `id, seller_id, name, description, min_price, current_bid, created_at,
        available_until, authentication_request, verified, authentication_request_approved,
        expert_id, sold`

type MySQLListingRepository struct {
	db DBTX
}

func NewMySQLListingRepository(db DBTX) *MySQLListingRepository {
	return &MySQLListingRepository{db: db}
}

func (r *MySQLListingRepository) CreateListing(ctx context.Context, listing *domain.Listing) error {
	query := `
        INSERT INTO listings (` + listingColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.SellerID, listing.Name, listing.Description,
		listing.MinPrice, listing.CurrentBid, listing.CreatedAt, listing.AvailableUntil,
		listing.AuthenticationRequest, listing.Verified,
		nullBool(listing.AuthenticationRequestApproved), nullString(listing.ExpertID),
		listing.Sold)
	return err
}

func (r *MySQLListingRepository) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	return scanListing(r.db.QueryRowContext(ctx, query, listingID))
}

func (r *MySQLListingRepository) GetListingForUpdate(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ? FOR UPDATE`
	return scanListing(r.db.QueryRowContext(ctx, query, listingID))
}

func (r *MySQLListingRepository) UpdateCurrentBid(ctx context.Context, listingID string, amount decimal.Decimal) error {
	query := `UPDATE listings SET current_bid = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, amount, listingID)
	return err
}

func (r *MySQLListingRepository) MarkSold(ctx context.Context, listingID string) error {
	query := `UPDATE listings SET sold = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, listingID)
	return err
}

func (r *MySQLListingRepository) UpdateAvailability(ctx context.Context, listingID string, until time.Time) error {
	query := `UPDATE listings SET available_until = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, until, listingID)
	return err
}

func (r *MySQLListingRepository) AssignExpert(ctx context.Context, listingID, expertID string) error {
	query := `UPDATE listings SET expert_id = ?, authentication_request = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, expertID, listingID)
	return err
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	var approved sql.NullBool
	var expertID sql.NullString

	err := row.Scan(
		&listing.ID, &listing.SellerID, &listing.Name, &listing.Description,
		&listing.MinPrice, &listing.CurrentBid, &listing.CreatedAt, &listing.AvailableUntil,
		&listing.AuthenticationRequest, &listing.Verified, &approved, &expertID, &listing.Sold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}

	if approved.Valid {
		v := approved.Bool
		listing.AuthenticationRequestApproved = &v
	}
	listing.ExpertID = expertID.String
	return &listing, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

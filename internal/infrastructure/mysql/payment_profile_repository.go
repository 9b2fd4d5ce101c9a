package mysql

import (
	"context"
	"database/sql"
	"errors"

	"auction-marketplace/internal/domain"
)

type MySQLPaymentProfileRepository struct {
	db DBTX
}

func NewMySQLPaymentProfileRepository(db DBTX) *MySQLPaymentProfileRepository {
	return &MySQLPaymentProfileRepository{db: db}
}

func (r *MySQLPaymentProfileRepository) GetPaymentProfile(ctx context.Context, bidderID string) (*domain.PaymentProfile, error) {
	query := `
        SELECT bidder_id, customer_id, payment_method_id, email
        FROM payment_profiles
        WHERE bidder_id = ? AND customer_id <> '' AND payment_method_id <> ''
    `

	var profile domain.PaymentProfile
	err := r.db.QueryRowContext(ctx, query, bidderID).Scan(
		&profile.BidderID, &profile.CustomerID, &profile.PaymentMethodID, &profile.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentMethodMissing
		}
		return nil, err
	}

	return &profile, nil
}

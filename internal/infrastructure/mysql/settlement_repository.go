package mysql

import (
	"context"

	"auction-marketplace/internal/domain"
)

type MySQLSettlementRepository struct {
	db DBTX
}

func NewMySQLSettlementRepository(db DBTX) *MySQLSettlementRepository {
	return &MySQLSettlementRepository{db: db}
}

func (r *MySQLSettlementRepository) CreateSettlement(ctx context.Context, s *domain.Settlement) error {
	query := `
        INSERT INTO settlements (id, listing_id, bid_id, bidder_id, amount, charge_reference,
                                 manager_fee, expert_fee, seller_proceeds, settled_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ListingID, s.BidID, s.BidderID, s.Amount, s.ChargeReference,
		s.ManagerFee, s.ExpertFee, s.SellerProceeds, s.SettledAt)
	return err
}

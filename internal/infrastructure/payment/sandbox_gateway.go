package payment

import (
	"context"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/google/uuid"
)

// SandboxGateway approves every charge. For local development only.
type SandboxGateway struct {
	log logger.Logger
}

func NewSandboxGateway(log logger.Logger) *SandboxGateway {
	return &SandboxGateway{log: log}
}

func (g *SandboxGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	reference := "sandbox_" + uuid.New().String()
	g.log.Info("Sandbox charge approved", "bidder_id", req.Profile.BidderID,
		"amount", req.Amount.StringFixed(2), "reference", reference)
	return &domain.ChargeResult{Success: true, Reference: reference}, nil
}

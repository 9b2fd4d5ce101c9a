package services

import (
	"context"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// CampaignForLeadership keeps trying to take the leader lock until ctx is
// done. Only the leader's scheduler processes tasks.
func CampaignForLeadership(ctx context.Context, election domain.LeaderElection, instanceID string,
	retry time.Duration, log logger.Logger) {
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		became, err := election.BecomeLeader(ctx, instanceID)
		if err != nil {
			log.Error("Failed to attempt leadership", "instance_id", instanceID, "error", err)
		} else if became {
			log.Info("Became auction scheduler leader", "instance_id", instanceID)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

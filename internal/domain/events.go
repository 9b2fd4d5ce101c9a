package domain

import "time"

type EventType string

const (
	OutbidNotification  EventType = "outbid_notification"
	AuctionWon          EventType = "auction_won"
	AuctionLost         EventType = "auction_lost"
	AuthRequestAssigned EventType = "auth_request_assigned"
)

// Event is a notification addressed to a single user.
type Event struct {
	Type         EventType              `json:"type"`
	ListingID    string                 `json:"item_id"`
	TargetUserID string                 `json:"target_user_id"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

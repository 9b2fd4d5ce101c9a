package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository interfaces
type ListingRepository interface {
	CreateListing(ctx context.Context, listing *Listing) error
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	// GetListingForUpdate loads the listing and holds its row lock until the
	// surrounding transaction ends.
	GetListingForUpdate(ctx context.Context, listingID string) (*Listing, error)
	UpdateCurrentBid(ctx context.Context, listingID string, amount decimal.Decimal) error
	MarkSold(ctx context.Context, listingID string) error
	UpdateAvailability(ctx context.Context, listingID string, until time.Time) error
	AssignExpert(ctx context.Context, listingID, expertID string) error
}

type BidRepository interface {
	InsertBid(ctx context.Context, bid *Bid) error
	// GetLeadingBid returns nil when the listing has no bids.
	GetLeadingBid(ctx context.Context, listingID string) (*Bid, error)
	ClearLeadingFlag(ctx context.Context, bidID string) error
	// GetHighestBid returns nil when the listing has no bids.
	GetHighestBid(ctx context.Context, listingID string) (*Bid, error)
	MarkWinning(ctx context.Context, bidID string) error
	ListBidsForListing(ctx context.Context, listingID string) ([]*Bid, error)
	ListBidderPositions(ctx context.Context, bidderID string, now time.Time) ([]*BidderPosition, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *ScheduledTask) error
	GetDueTasks(ctx context.Context, now time.Time) ([]*ScheduledTask, error)
	DeleteTask(ctx context.Context, taskID string) error
	DeleteTasksForListing(ctx context.Context, listingID string, kind TaskKind) error
	RecordFailure(ctx context.Context, taskID, reason string) error
}

type PaymentProfileRepository interface {
	GetPaymentProfile(ctx context.Context, bidderID string) (*PaymentProfile, error)
}

type SettlementRepository interface {
	CreateSettlement(ctx context.Context, settlement *Settlement) error
}

// Repositories bundles the accessors bound to one transaction.
type Repositories struct {
	Listings        ListingRepository
	Bids            BidRepository
	Tasks           TaskRepository
	PaymentProfiles PaymentProfileRepository
	Settlements     SettlementRepository
}

// Store runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Payment interfaces
type ChargeRequest struct {
	Profile        *PaymentProfile
	Amount         decimal.Decimal
	IdempotencyKey string
}

type ChargeResult struct {
	Success       bool
	Reference     string
	FailureReason string
}

type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Notification interfaces
type NotificationGateway interface {
	Publish(ctx context.Context, event *Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *Event) error

type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// TaskScheduler registers deferred work inside the caller's transaction.
type TaskScheduler interface {
	ScheduleClose(ctx context.Context, repos Repositories, listingID string, closeAt time.Time) error
	CancelClose(ctx context.Context, repos Repositories, listingID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
}

type ConnectionManager interface {
	RegisterConnection(userID string, conn WebSocketConnection) error
	UnregisterConnection(userID string, conn WebSocketConnection) error
	GetConnectionsForUser(userID string) []WebSocketConnection
	NotifyUser(userID string, message interface{}) error
}

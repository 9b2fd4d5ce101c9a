package mocks

import (
	"context"
	"sync"

	"auction-marketplace/internal/domain"

	"github.com/stretchr/testify/mock"
)

// PaymentGateway mock
type PaymentGateway struct {
	mock.Mock
}

func (m *PaymentGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeResult), args.Error(1)
}

// LeaderElection mock
type LeaderElection struct {
	mock.Mock
}

func (m *LeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	args := m.Called(ctx, instanceID)
	return args.Bool(0), args.Error(1)
}

func (m *LeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	args := m.Called(ctx, instanceID)
	return args.Bool(0), args.Error(1)
}

func (m *LeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

// NotificationGateway mock
type NotificationGateway struct {
	mock.Mock
}

func (m *NotificationGateway) Publish(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// RecordingGateway keeps every published event. Err, when set, is returned
// from Publish after the event is recorded.
type RecordingGateway struct {
	mu     sync.Mutex
	events []domain.Event
	Err    error
}

func (g *RecordingGateway) Publish(ctx context.Context, event *domain.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, *event)
	return g.Err
}

func (g *RecordingGateway) Events() []domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Event(nil), g.events...)
}

// Recipients returns the target users of every event of the given type, in
// publish order.
func (g *RecordingGateway) Recipients(eventType domain.EventType) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, e := range g.events {
		if e.Type == eventType {
			out = append(out, e.TargetUserID)
		}
	}
	return out
}

// WebSocketConnection mock
type WebSocketConnection struct {
	mock.Mock
}

func (m *WebSocketConnection) Send(message interface{}) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *WebSocketConnection) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *WebSocketConnection) UserID() string {
	args := m.Called()
	return args.String(0)
}

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/testutil/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserNotifier struct {
	mock.Mock
}

func (m *mockUserNotifier) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	args := m.Called(ctx, userID, message)
	return args.Error(0)
}

type stubSubscriber struct {
	events []*domain.Event
}

func (s *stubSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	for _, e := range s.events {
		_ = handler(e)
	}
	return nil
}

func TestEventListener_RoutesToTargetUser(t *testing.T) {
	notifier := &mockUserNotifier{}
	listener := NewEventListener(notifier, testLogger(t))

	notifier.On("NotifyUser", mock.Anything, "bidder_a", mock.MatchedBy(func(msg map[string]interface{}) bool {
		return msg["type"] == "auction_lost" &&
			msg["item_id"] == "listing_1" &&
			msg["winning_price"] == "150.00"
	})).Return(nil).Once()

	err := listener.HandleEvent(context.Background(), &domain.Event{
		Type:         domain.AuctionLost,
		ListingID:    "listing_1",
		TargetUserID: "bidder_a",
		Payload:      map[string]interface{}{"winning_price": "150.00"},
		OccurredAt:   baseTime,
	})

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestEventListener_RejectsUnknownOrUnaddressedEvents(t *testing.T) {
	notifier := &mockUserNotifier{}
	listener := NewEventListener(notifier, testLogger(t))

	err := listener.HandleEvent(context.Background(), &domain.Event{Type: "bid_update", TargetUserID: "bidder_a"})
	assert.Error(t, err)

	err = listener.HandleEvent(context.Background(), &domain.Event{Type: domain.AuctionWon, ListingID: "listing_1"})
	assert.Error(t, err)

	notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventListener_Start(t *testing.T) {
	notifier := &mockUserNotifier{}
	notifier.On("NotifyUser", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no connections")).Once()
	notifier.On("NotifyUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	listener := NewEventListener(notifier, testLogger(t))

	subscriber := &stubSubscriber{events: []*domain.Event{
		{Type: domain.OutbidNotification, ListingID: "listing_1", TargetUserID: "bidder_a"},
		{Type: domain.AuctionWon, ListingID: "listing_1", TargetUserID: "bidder_b"},
	}}

	require.NoError(t, listener.Start(context.Background(), subscriber))
	notifier.AssertNumberOfCalls(t, "NotifyUser", 2)
}

func TestCampaignForLeadership(t *testing.T) {
	var attempts atomic.Int32
	count := func(mock.Arguments) { attempts.Add(1) }

	leader := &mocks.LeaderElection{}
	leader.On("BecomeLeader", mock.Anything, "instance-1").Return(false, errors.New("redis down")).Run(count).Once()
	leader.On("BecomeLeader", mock.Anything, "instance-1").Return(true, nil).Run(count)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		CampaignForLeadership(ctx, leader, "instance-1", 5*time.Millisecond, testLogger(t))
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

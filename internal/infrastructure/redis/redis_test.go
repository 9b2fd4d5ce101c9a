package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestEventPublisher_PublishesJSON(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "test_channel")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, "test_channel")
	err = publisher.Publish(ctx, &domain.Event{
		Type:         domain.AuctionWon,
		ListingID:    "listing_1",
		TargetUserID: "bidder_b",
		Payload:      map[string]interface{}{"winning_price": "70.00"},
		OccurredAt:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	assert.Equal(t, "auction_won", decoded["type"])
	assert.Equal(t, "listing_1", decoded["item_id"])
	assert.Equal(t, "bidder_b", decoded["target_user_id"])
	assert.Equal(t, "70.00", decoded["payload"].(map[string]interface{})["winning_price"])
}

func TestEventPublisher_DefaultChannel(t *testing.T) {
	client, _ := setupTestRedis(t)
	publisher := NewEventPublisher(client, "")
	assert.Equal(t, DefaultChannel, publisher.channel)
}

func TestEventPublisher_ConnectionFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	err := NewEventPublisher(client, "").Publish(context.Background(), &domain.Event{Type: domain.AuctionLost})
	assert.Error(t, err)
}

func TestEventSubscriber_DeliversEventsAndSkipsMalformed(t *testing.T) {
	client, mr := setupTestRedis(t)
	log := logger.NewFromZap(zaptest.NewLogger(t))

	var mu sync.Mutex
	var received []*domain.Event

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewEventSubscriber(client, "events", log).Subscribe(ctx, func(event *domain.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, event)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("events")["events"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish("events", "not json")
	require.NoError(t, NewEventPublisher(client, "events").Publish(context.Background(), &domain.Event{
		Type:         domain.OutbidNotification,
		ListingID:    "listing_1",
		TargetUserID: "bidder_a",
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.OutbidNotification, received[0].Type)
	assert.Equal(t, "bidder_a", received[0].TargetUserID)
}

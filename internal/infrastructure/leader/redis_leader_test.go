package leader

import (
	"context"
	"testing"
	"time"

	"auction-marketplace/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupElection(t *testing.T, ttl time.Duration) (*RedisLeaderElection, *redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	election := NewRedisLeaderElection(client, ttl, logger.NewFromZap(zaptest.NewLogger(t)))
	t.Cleanup(func() {
		election.stopHeartbeat()
		client.Close()
		mr.Close()
	})
	return election, client, mr
}

func TestRedisLeaderElection_OnlyOneLeader(t *testing.T) {
	election, client, _ := setupElection(t, time.Minute)
	other := NewRedisLeaderElection(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	became, err := election.BecomeLeader(ctx, "instance-1")
	require.NoError(t, err)
	assert.True(t, became)

	became, err = other.BecomeLeader(ctx, "instance-2")
	require.NoError(t, err)
	assert.False(t, became)

	isLeader, err := election.IsLeader(ctx, "instance-1")
	require.NoError(t, err)
	assert.True(t, isLeader)

	isLeader, err = other.IsLeader(ctx, "instance-2")
	require.NoError(t, err)
	assert.False(t, isLeader)
}

func TestRedisLeaderElection_ReleaseOnlyByHolder(t *testing.T) {
	election, client, mr := setupElection(t, time.Minute)
	other := NewRedisLeaderElection(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	_, err := election.BecomeLeader(ctx, "instance-1")
	require.NoError(t, err)

	require.NoError(t, other.ReleaseLeadership(ctx, "instance-2"))
	holder, err := mr.Get(leaderKey)
	require.NoError(t, err)
	assert.Equal(t, "instance-1", holder)

	require.NoError(t, election.ReleaseLeadership(ctx, "instance-1"))
	assert.False(t, mr.Exists(leaderKey))

	became, err := other.BecomeLeader(ctx, "instance-2")
	require.NoError(t, err)
	assert.True(t, became)
	other.stopHeartbeat()
}

func TestRedisLeaderElection_NoLeader(t *testing.T) {
	election, _, _ := setupElection(t, time.Minute)

	isLeader, err := election.IsLeader(context.Background(), "instance-1")
	require.NoError(t, err)
	assert.False(t, isLeader)
}

func TestRedisLeaderElection_ExpiredKeyCanBeTaken(t *testing.T) {
	election, client, mr := setupElection(t, time.Hour)
	other := NewRedisLeaderElection(client, time.Hour, logger.NewNop())
	ctx := context.Background()

	_, err := election.BecomeLeader(ctx, "instance-1")
	require.NoError(t, err)
	election.stopHeartbeat()

	mr.FastForward(2 * time.Hour)

	became, err := other.BecomeLeader(ctx, "instance-2")
	require.NoError(t, err)
	assert.True(t, became)
	other.stopHeartbeat()
}

func TestRedisLeaderElection_HeartbeatExtendsTTL(t *testing.T) {
	election, _, mr := setupElection(t, 300*time.Millisecond)

	_, err := election.BecomeLeader(context.Background(), "instance-1")
	require.NoError(t, err)
	mr.FastForward(200 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.TTL(leaderKey) == 300*time.Millisecond
	}, time.Second, 10*time.Millisecond)
	require.True(t, mr.Exists(leaderKey))
}

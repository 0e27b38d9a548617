package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

const (
	testHeartbeat = 30 * time.Millisecond
	testIdle      = 90 * time.Millisecond
	testOffline   = 200 * time.Millisecond
)

func newTestPresenceService(t *testing.T) (PresenceService, *fakePresenceStore) {
	t.Helper()
	store := newFakePresenceStore()
	feed := changefeed.NewBroker(zerolog.Nop())
	svc := NewPresenceService(store, feed, zerolog.Nop(), testHeartbeat, testIdle, testOffline)
	t.Cleanup(svc.Shutdown)
	return svc, store
}

func TestComputePresenceStatus_Boundaries(t *testing.T) {
	now := time.Now()
	idle := 5 * time.Minute
	offline := 10 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		want    models.PresenceStatus
	}{
		{"fresh activity", 0, models.PresenceOnline},
		{"just under idle", idle - time.Second, models.PresenceOnline},
		{"exactly idle", idle, models.PresenceIdle},
		{"between idle and offline", 7 * time.Minute, models.PresenceIdle},
		{"exactly offline", offline, models.PresenceOffline},
		{"long gone", time.Hour, models.PresenceOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := models.ComputePresenceStatus(now, now.Add(-tt.elapsed), idle, offline)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPresence_ConnectWritesOnline(t *testing.T) {
	svc, store := newTestPresenceService(t)

	svc.Connect(context.Background(), 100, nil)

	status, ok := store.statusOf(100)
	require.True(t, ok)
	assert.Equal(t, models.PresenceOnline, status)
}

func TestPresence_HeartbeatLoopKeepsWriting(t *testing.T) {
	svc, store := newTestPresenceService(t)

	svc.Connect(context.Background(), 100, nil)
	baseline := store.upsertCount()

	require.Eventually(t, func() bool {
		return store.upsertCount() >= baseline+2
	}, 5*testHeartbeat, 5*time.Millisecond, "the loop writes on every heartbeat interval")
}

func TestPresence_DisconnectForcesOffline(t *testing.T) {
	svc, store := newTestPresenceService(t)
	ctx := context.Background()

	svc.Connect(ctx, 100, nil)
	svc.Disconnect(ctx, 100)

	status, ok := store.statusOf(100)
	require.True(t, ok)
	assert.Equal(t, models.PresenceOffline, status, "departure is visible immediately, not after the offline threshold")
}

func TestPresence_DisconnectUnknownUserIsNoop(t *testing.T) {
	svc, store := newTestPresenceService(t)

	svc.Disconnect(context.Background(), 999)
	_, ok := store.statusOf(999)
	assert.False(t, ok)
}

func TestPresence_HeartbeatWithoutConnectStartsSession(t *testing.T) {
	svc, store := newTestPresenceService(t)

	svc.Heartbeat(context.Background(), 100, nil)

	status, ok := store.statusOf(100)
	require.True(t, ok)
	assert.Equal(t, models.PresenceOnline, status)
}

func TestPresence_FetchOnlineScopesByConversation(t *testing.T) {
	svc, _ := newTestPresenceService(t)
	ctx := context.Background()

	convA := int64(1)
	convB := int64(2)
	svc.Connect(ctx, 100, &convA)
	svc.Connect(ctx, 101, &convB)
	svc.Connect(ctx, 102, nil)

	scoped, err := svc.FetchOnline(ctx, &convA)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(100), scoped[0].UserID)

	all, err := svc.FetchOnline(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPresence_FetchOnlineDerivesStatusAtReadTime(t *testing.T) {
	svc, store := newTestPresenceService(t)
	ctx := context.Background()

	// A row whose writer vanished without an offline write: status still
	// says ONLINE but last_seen_at is past the offline threshold.
	store.Upsert(ctx, &models.Presence{
		UserID:     200,
		Status:     models.PresenceOnline,
		LastSeenAt: time.Now().Add(-2 * testOffline),
	})

	online, err := svc.FetchOnline(ctx, nil)
	require.NoError(t, err)
	for _, p := range online {
		assert.NotEqual(t, int64(200), p.UserID, "stale rows self-heal to offline on read")
	}
}

func TestPresence_IdleDerivedFromInactivity(t *testing.T) {
	svc, store := newTestPresenceService(t)
	ctx := context.Background()

	store.Upsert(ctx, &models.Presence{
		UserID:     300,
		Status:     models.PresenceOnline,
		LastSeenAt: time.Now().Add(-(testIdle + testHeartbeat)),
	})

	online, err := svc.FetchOnline(ctx, nil)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, models.PresenceIdle, online[0].Status)
}

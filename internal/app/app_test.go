package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-platform/internal/config"
	"go-event-platform/internal/event"
)

func TestNewBusWithoutRedisIsInProcess(t *testing.T) {
	a := &App{cfg: &config.Config{}}

	bus, err := a.newBus(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &event.InMemoryBus{}, bus)
	assert.Empty(t, a.cleanupFuncs)
}

func TestNewBusRelaysThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	a := &App{cfg: &config.Config{RedisURL: "redis://" + mr.Addr(), RedisChannel: "app:events"}}

	bus, err := a.newBus(context.Background(), event.WithSubscriberBuffer(8))
	require.NoError(t, err)
	t.Cleanup(a.cleanup)
	require.IsType(t, &event.RedisBus{}, bus)
	require.Len(t, a.cleanupFuncs, 1)

	observer := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = observer.Close() })
	require.Eventually(t, func() bool {
		n, err := observer.PubSubNumSub(context.Background(), "app:events").Result()
		return err == nil && n["app:events"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	sent := event.New(event.TypeTrashChanged, event.TenantRoom("t1"), "u1", nil)
	bus.Publish(sent)

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed through redis")
	}
}

func TestNewBusRejectsBadRedisConfig(t *testing.T) {
	t.Run("malformed url", func(t *testing.T) {
		a := &App{cfg: &config.Config{RedisURL: "mysql://nope"}}
		_, err := a.newBus(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse REDIS_URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		a := &App{cfg: &config.Config{RedisURL: "redis://" + addr}}
		_, err = a.newBus(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
		assert.Empty(t, a.cleanupFuncs)
	})
}

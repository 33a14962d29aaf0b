package event

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBusRelaysPublishedEvents(t *testing.T) {
	_, client := newTestRedis(t)
	bus := NewRedisBus(client, "test:events")
	t.Cleanup(bus.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// wait until the relay has subscribed
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, "test:events").Result()
		return err == nil && n["test:events"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	sent := New(TypeAuditLogged, TenantRoom("t1"), "u1", map[string]any{"action": "restore"})
	bus.Publish(sent)

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, TypeAuditLogged, got.Type)
		assert.Equal(t, "tenant:t1", got.Room)
		payload, ok := got.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "restore", payload["action"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRedisBusFallsBackToLocalDelivery(t *testing.T) {
	mr, client := newTestRedis(t)
	bus := NewRedisBus(client, "")
	bus.publishTimeout = 200 * time.Millisecond
	t.Cleanup(bus.Close)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	mr.Close()

	sent := New(TypeTrashChanged, TenantRoom("t1"), "", nil)
	bus.Publish(sent)

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered locally")
	}
}

func TestRedisBusPublishDoesNotWaitForRedis(t *testing.T) {
	// A server that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var held []net.Conn
		defer func() {
			for _, conn := range held {
				_ = conn.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, conn)
		}
	}()

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedisBus(client, "test:stalled")
	bus.publishTimeout = 100 * time.Millisecond
	t.Cleanup(bus.Close)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	start := time.Now()
	for i := 0; i < 5; i++ {
		bus.Publish(New(TypeTrashChanged, TenantRoom("t1"), "u1", nil))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	received := 0
	require.Eventually(t, func() bool {
		for {
			select {
			case <-events:
				received++
			default:
				return received == 5
			}
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRedisBusCloseFlushesAndFallsBackLocally(t *testing.T) {
	_, client := newTestRedis(t)
	bus := NewRedisBus(client, "test:close")

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Close()
	assert.NotPanics(t, bus.Close)

	sent := New(TypeAuditLogged, TenantRoom("t1"), "", nil)
	bus.Publish(sent)

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("event published after close was not delivered locally")
	}
}

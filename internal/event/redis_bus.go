package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisChannel = "platform:events"
	redisOutboxSize     = 256
)

// RedisBus relays events through a Redis channel so every instance delivers
// them to its own subscribers. Local subscribers only see events that came
// back through Redis, unless publishing to Redis fails.
//
// Publish only enqueues; a background sender owns the Redis round trip.
type RedisBus struct {
	client         *redis.Client
	channel        string
	local          *InMemoryBus
	publishTimeout time.Duration

	outbox    chan Event
	done      chan struct{}
	closeOnce sync.Once
	sender    sync.WaitGroup
}

// NewRedisBus relays through channel; opts configure local delivery. Close
// stops the background sender.
func NewRedisBus(client *redis.Client, channel string, opts ...Option) *RedisBus {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	b := &RedisBus{
		client:         client,
		channel:        channel,
		local:          NewBus(opts...),
		publishTimeout: 2 * time.Second,
		outbox:         make(chan Event, redisOutboxSize),
		done:           make(chan struct{}),
	}

	b.sender.Add(1)
	go b.sendLoop()
	return b
}

// Publish never blocks. When the outbox is full or the bus is closed the
// event is delivered to local subscribers only.
func (b *RedisBus) Publish(e Event) {
	select {
	case <-b.done:
		b.local.Publish(e)
		return
	default:
	}

	select {
	case b.outbox <- e:
	default:
		slog.Warn("redis outbox full, delivering locally", "type", e.Type, "room", e.Room)
		b.local.Publish(e)
	}
}

func (b *RedisBus) Subscribe() (<-chan Event, func()) {
	return b.local.Subscribe()
}

// Close flushes queued events and stops the sender. It is safe to call more
// than once.
func (b *RedisBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.sender.Wait()
}

func (b *RedisBus) sendLoop() {
	defer b.sender.Done()

	for {
		select {
		case e := <-b.outbox:
			b.send(e)
		case <-b.done:
			for {
				select {
				case e := <-b.outbox:
					b.send(e)
				default:
					return
				}
			}
		}
	}
}

func (b *RedisBus) send(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event for redis", "type", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		slog.Warn("redis publish failed, delivering locally", "type", e.Type, "error", err)
		b.local.Publish(e)
	}
}

// Run forwards events from Redis to local subscribers until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				slog.Warn("dropping malformed event from redis", "error", err)
				continue
			}
			b.local.Publish(e)
		}
	}
}

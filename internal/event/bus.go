package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 100

// Option configures an InMemoryBus.
type Option func(*InMemoryBus)

// WithSubscriberBuffer sets how many undelivered events each subscriber may
// hold before further events are dropped for it.
func WithSubscriberBuffer(size int) Option {
	return func(b *InMemoryBus) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithDropHook is called once for every event a slow subscriber misses.
func WithDropHook(hook func(Event)) Option {
	return func(b *InMemoryBus) {
		b.onDrop = hook
	}
}

// InMemoryBus fans room-addressed events out to in-process subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	buffer      int
	onDrop      func(Event)
	dropped     atomic.Int64
}

func NewBus(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{
		subscribers: make(map[uint64]chan Event),
		buffer:      defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers e to every subscriber. Events without a room have no
// audience and are discarded.
func (b *InMemoryBus) Publish(e Event) {
	if e.Room == "" {
		slog.Warn("discarding event without room", "type", e.Type, "id", e.ID)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(e)
			}
			slog.Warn("event dropped for slow subscriber", "type", e.Type, "room", e.Room)
		}
	}
}

func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan Event, b.buffer)
	b.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ch, exists := b.subscribers[id]; exists {
				close(ch)
				delete(b.subscribers, id)
			}
		})
	}

	return ch, unsubscribe
}

// Subscribers reports the number of live subscriptions.
func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func (b *InMemoryBus) Dropped() int64 {
	return b.dropped.Load()
}

// Package broadcast fans published notifications out to locally-connected
// subscribers over per-subscriber delivery queues.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openshelf/catalog/internal/domain/notification"
)

// DefaultQueueDepth is the per-subscriber delivery queue capacity.
const DefaultQueueDepth = 256

// Subscription is the handle a streaming transport drains for one connection.
type Subscription struct {
	id   string
	ch   chan notification.Envelope
	done chan struct{}
	once sync.Once
}

// ID returns the subscriber identifier.
func (s *Subscription) ID() string { return s.id }

// C returns the envelope delivery queue. Envelopes arrive in Publish order.
func (s *Subscription) C() <-chan notification.Envelope { return s.ch }

// Done is closed when the subscription has been removed from the broadcaster.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}

// Broadcaster delivers each published envelope to every registered
// subscriber. Publish never blocks: a subscriber whose queue is full or whose
// connection is gone is unregistered instead of stalling the publisher.
type Broadcaster struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	queueDepth int

	// OnDrop, when set, is invoked with the subscriber id after a slow or
	// dead subscriber has been unregistered. Used for metrics.
	OnDrop func(id string)
}

// New creates a Broadcaster. queueDepth <= 0 selects DefaultQueueDepth.
func New(queueDepth int) *Broadcaster {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Broadcaster{
		subs:       make(map[string]*Subscription),
		queueDepth: queueDepth,
	}
}

// Subscribe registers a new subscriber and returns its handle. The caller
// owns the handle until Unsubscribe.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id:   uuid.New().String(),
		ch:   make(chan notification.Envelope, b.queueDepth),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	slog.Debug("subscriber registered", "subscriber", sub.id)
	return sub
}

// Unsubscribe removes and releases a subscriber. Idempotent.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		sub.close()
		slog.Debug("subscriber unregistered", "subscriber", id)
	}
}

// Publish enqueues env onto every subscriber's queue in FIFO order per
// subscriber. A subscriber that cannot accept the envelope is removed within
// this call; that is a cleanup event, not an error. Publishing with zero
// subscribers is a no-op.
func (b *Broadcaster) Publish(env notification.Envelope) {
	var stale []string

	b.mu.RLock()
	for id, sub := range b.subs {
		select {
		case sub.ch <- env:
		case <-sub.done:
			stale = append(stale, id)
		default:
			// Queue full: the consumer is not draining.
			stale = append(stale, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range stale {
		b.Unsubscribe(id)
		slog.Debug("dropped slow subscriber", "subscriber", id, "event", env.EventID)
		if b.OnDrop != nil {
			b.OnDrop(id)
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

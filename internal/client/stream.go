// Package client implements the consumer side of the real-time change
// stream: a reconnecting stream consumer, a reactive query cache and an
// optimistic pending-entry set for Go front-ends.
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/openshelf/catalog/internal/domain/notification"
)

// State is the stream consumer connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// Listener receives every successfully decoded envelope, duplicates
// included. De-duplication by EventID is the listener's concern.
type Listener func(env notification.Envelope)

// StreamConsumer maintains a best-effort continuous connection to the
// streaming endpoint and fans decoded envelopes out to in-process listeners.
// It reconnects with a fixed delay forever until Stop is called.
type StreamConsumer struct {
	url            string
	reconnectDelay time.Duration

	mu        sync.Mutex
	listeners []Listener

	state    atomic.Int32
	failures atomic.Int32

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewStreamConsumer creates a consumer for the given ws:// or wss:// URL.
func NewStreamConsumer(url string, reconnectDelay time.Duration) *StreamConsumer {
	return &StreamConsumer{
		url:            url,
		reconnectDelay: reconnectDelay,
		done:           make(chan struct{}),
	}
}

// OnEnvelope registers a listener. Must be called before Start.
func (c *StreamConsumer) OnEnvelope(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start launches the connection loop in the background. Subsequent calls are
// no-ops.
func (c *StreamConsumer) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)
		c.started.Store(true)
		go c.run(ctx)
	})
}

// Stop tears down the current connection attempt and suppresses further
// reconnects. It blocks until the connection loop has exited.
func (c *StreamConsumer) Stop() {
	if !c.started.Load() {
		return
	}
	c.stopOnce.Do(func() { c.cancel() })
	<-c.done
}

// State returns the current connection state.
func (c *StreamConsumer) State() State {
	return State(c.state.Load())
}

// ConsecutiveFailures returns the number of connection attempts that have
// failed since the stream last reached Streaming. UIs should show a
// "reconnecting" affordance only after several, never on a single blip.
func (c *StreamConsumer) ConsecutiveFailures() int {
	return int(c.failures.Load())
}

func (c *StreamConsumer) run(ctx context.Context) {
	defer close(c.done)
	defer c.state.Store(int32(StateDisconnected))

	for {
		c.state.Store(int32(StateConnecting))

		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			c.failures.Add(1)
			c.state.Store(int32(StateDisconnected))
			if ctx.Err() != nil {
				return
			}
			slog.Debug("stream dial failed", "url", c.url, "error", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.failures.Store(0)
		c.state.Store(int32(StateStreaming))
		slog.Info("stream connected", "url", c.url)

		c.pump(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")

		c.state.Store(int32(StateDisconnected))
		if ctx.Err() != nil {
			return
		}
		slog.Info("stream lost, reconnecting", "delay", c.reconnectDelay)
		if !c.wait(ctx) {
			return
		}
	}
}

// pump reads envelopes until the connection breaks. A single undecodable
// message is skipped; it never tears down the connection.
func (c *StreamConsumer) pump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		env, err := notification.Decode(data)
		if err != nil {
			slog.Error("stream skipped malformed message", "error", err)
			continue
		}

		c.dispatch(env)
	}
}

func (c *StreamConsumer) dispatch(env notification.Envelope) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(env)
	}
}

// wait sleeps for the reconnect delay; returns false when cancelled.
func (c *StreamConsumer) wait(ctx context.Context) bool {
	t := time.NewTimer(c.reconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

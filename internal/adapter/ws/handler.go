// Package ws adapts broadcaster subscriptions to long-lived WebSocket
// connections pushing notification envelopes to clients.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain/notification"
)

// Handler upgrades HTTP requests to WebSocket and streams envelopes from one
// broadcaster subscription per connection.
type Handler struct {
	b            *broadcast.Broadcaster
	pingInterval time.Duration
}

// NewHandler creates a streaming handler. pingInterval <= 0 disables pings.
func NewHandler(b *broadcast.Broadcaster, pingInterval time.Duration) *Handler {
	return &Handler{b: b, pingInterval: pingInterval}
}

// ServeHTTP upgrades the connection, subscribes it to the broadcaster and
// pumps envelopes until the client disconnects or the request is cancelled.
// Write failures terminate the connection but never surface as application
// errors.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.b.Subscribe()
	defer h.b.Unsubscribe(sub.ID())

	slog.Info("stream connected", "subscriber", sub.ID(), "remote", r.RemoteAddr)

	// Read loop exists only to detect disconnects; clients send nothing.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	h.writeLoop(ctx, c, sub)

	_ = c.Close(websocket.StatusNormalClosure, "")
	slog.Info("stream disconnected", "subscriber", sub.ID())
}

func (h *Handler) writeLoop(ctx context.Context, c *websocket.Conn, sub *broadcast.Subscription) {
	var ping *time.Ticker
	var pingC <-chan time.Time
	if h.pingInterval > 0 {
		ping = time.NewTicker(h.pingInterval)
		pingC = ping.C
		defer ping.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			// Unregistered by the broadcaster (slow consumer cleanup).
			return
		case env := <-sub.C():
			if !h.write(ctx, c, sub.ID(), env) {
				return
			}
		case <-pingC:
			if !h.write(ctx, c, sub.ID(), notification.NewPing()) {
				return
			}
		}
	}
}

// write sends one envelope; returns false when the connection is gone.
func (h *Handler) write(ctx context.Context, c *websocket.Conn, subID string, env notification.Envelope) bool {
	data, err := notification.Encode(env)
	if err != nil {
		slog.Error("stream encode failed", "subscriber", subID, "error", err)
		return true
	}
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("stream write failed", "subscriber", subID, "error", err)
		return false
	}
	return true
}

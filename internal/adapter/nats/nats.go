// Package nats implements the broker port using core NATS publish/subscribe.
// JetStream is deliberately not used: notifications are fire-and-forget and
// a reconnecting client reconciles by re-fetching, not by replay.
package nats

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/openshelf/catalog/internal/port/broker"
)

// Broker implements broker.Broker over a core NATS connection.
type Broker struct {
	nc *nats.Conn
}

// Connect dials NATS. The connection retries in the background forever, so a
// broker that is down at startup or drops later is picked up again without a
// restart; Connect only fails on an invalid URL.
func Connect(url string) (*Broker, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	slog.Info("nats connecting", "url", url)
	return &Broker{nc: nc}, nil
}

// Publish sends a message on the given subject.
func (b *Broker) Publish(subject string, data []byte) error {
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. The
// subscription survives reconnects; the returned function cancels it.
func (b *Broker) Subscribe(subject string, handler broker.Handler) (func(), error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Debug("nats unsubscribe failed", "subject", subject, "error", err)
		}
	}, nil
}

// IsConnected reports whether the connection is currently established.
func (b *Broker) IsConnected() bool {
	return b.nc.IsConnected()
}

// Close shuts down the NATS connection.
func (b *Broker) Close() error {
	b.nc.Close()
	return nil
}

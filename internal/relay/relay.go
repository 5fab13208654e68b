// Package relay makes change notifications visible across all backend
// instances through the pub/sub broker, degrading to local-only delivery
// whenever the broker is unreachable.
package relay

import (
	"context"
	"log/slog"

	"github.com/openshelf/catalog/internal/adapter/otel"
	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain/notification"
	"github.com/openshelf/catalog/internal/port/broker"
	"github.com/openshelf/catalog/internal/resilience"
)

// Relay routes outgoing notifications to the broker and re-injects inbound
// broker messages into the local broadcaster.
//
// The broker path is the only path by which an envelope normally reaches the
// local broadcaster: the originating instance receives its own message back
// through the subscription, so local and cross-instance delivery share one
// code path. Only when the broker is unreachable does the relay publish to
// the local broadcaster directly.
type Relay struct {
	broker  broker.Broker
	local   *broadcast.Broadcaster
	breaker *resilience.Breaker
	subject string
	metrics *otel.Metrics
}

// New creates a Relay. brk may be nil to run in permanent local-only mode.
// metrics may be nil.
func New(brk broker.Broker, local *broadcast.Broadcaster, breaker *resilience.Breaker, metrics *otel.Metrics) *Relay {
	return &Relay{
		broker:  brk,
		local:   local,
		breaker: breaker,
		subject: broker.SubjectNotifications,
		metrics: metrics,
	}
}

// Start subscribes to the notification subject so envelopes published by any
// instance (this one included) reach the local broadcaster. The returned
// function cancels the subscription.
func (r *Relay) Start(ctx context.Context) (func(), error) {
	if r.broker == nil {
		slog.Warn("relay running without broker, local-only delivery")
		return func() {}, nil
	}

	cancel, err := r.broker.Subscribe(r.subject, func(_ string, data []byte) {
		r.handleInbound(ctx, data)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("relay subscribed", "subject", r.subject)
	return cancel, nil
}

// PublishNotification serializes env and publishes it on the notification
// subject. Broker connectivity is checked lazily on every call; when the
// broker is down or the breaker is open the envelope is handed straight to
// the local broadcaster so a single disconnected instance still notifies its
// own clients.
func (r *Relay) PublishNotification(ctx context.Context, env notification.Envelope) {
	if r.metrics != nil {
		r.metrics.NotificationsPublished.Add(ctx, 1)
	}

	data, err := notification.Encode(env)
	if err != nil {
		slog.Error("relay encode failed", "event", env.EventID, "error", err)
		return
	}

	if r.broker == nil || !r.broker.IsConnected() {
		r.fallback(ctx, env, "broker disconnected")
		return
	}

	err = r.breaker.Execute(func() error {
		return r.broker.Publish(r.subject, data)
	})
	if err != nil {
		r.fallback(ctx, env, err.Error())
		return
	}

	if r.metrics != nil {
		r.metrics.NotificationsRelayed.Add(ctx, 1)
	}
}

// fallback delivers env to local subscribers only.
func (r *Relay) fallback(ctx context.Context, env notification.Envelope, reason string) {
	slog.Warn("relay fallback to local delivery", "event", env.EventID, "reason", reason)
	if r.metrics != nil {
		r.metrics.FallbackPublishes.Add(ctx, 1)
	}
	r.local.Publish(env)
}

// handleInbound decodes a broker message and fans it out locally.
// Undecodable messages are dropped; the subscription keeps running.
func (r *Relay) handleInbound(ctx context.Context, data []byte) {
	env, err := notification.Decode(data)
	if err != nil {
		slog.Error("relay dropped malformed message", "error", err)
		if r.metrics != nil {
			r.metrics.MalformedMessages.Add(ctx, 1)
		}
		return
	}
	r.local.Publish(env)
}

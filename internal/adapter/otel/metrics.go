package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "catalogd"

// Metrics holds all catalog metric instruments.
type Metrics struct {
	NotificationsPublished metric.Int64Counter
	NotificationsRelayed   metric.Int64Counter
	FallbackPublishes      metric.Int64Counter
	SubscribersDropped     metric.Int64Counter
	MalformedMessages      metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.NotificationsPublished, err = meter.Int64Counter("catalog.notifications.published",
		metric.WithDescription("Notifications handed to the relay"))
	if err != nil {
		return nil, err
	}

	m.NotificationsRelayed, err = meter.Int64Counter("catalog.notifications.relayed",
		metric.WithDescription("Notifications published through the broker"))
	if err != nil {
		return nil, err
	}

	m.FallbackPublishes, err = meter.Int64Counter("catalog.notifications.fallback",
		metric.WithDescription("Notifications delivered locally because the broker was unreachable"))
	if err != nil {
		return nil, err
	}

	m.SubscribersDropped, err = meter.Int64Counter("catalog.subscribers.dropped",
		metric.WithDescription("Slow or dead subscribers unregistered during publish"))
	if err != nil {
		return nil, err
	}

	m.MalformedMessages, err = meter.Int64Counter("catalog.broker.malformed",
		metric.WithDescription("Inbound broker messages dropped as undecodable"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

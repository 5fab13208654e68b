// Package broker defines the external pub/sub broker port (interface).
package broker

// SubjectNotifications is the well-known channel every instance publishes
// change notifications on and subscribes to, including its own.
const SubjectNotifications = "catalog.notifications"

// Handler processes a raw message received from the broker.
type Handler func(subject string, data []byte)

// Broker is the port interface for the cross-instance pub/sub transport.
// No ordering or durability is expected of it; implementations may drop
// messages and may be disconnected at any time.
type Broker interface {
	// Publish sends a message on the given subject.
	Publish(subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(subject string, handler Handler) (cancel func(), err error)

	// IsConnected reports whether the broker is currently reachable.
	// Checked lazily on each publish, never assumed from startup.
	IsConnected() bool

	// Close shuts down the broker connection.
	Close() error
}

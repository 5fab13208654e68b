// Package notifier defines the port for publishing change notifications.
package notifier

import (
	"context"

	"github.com/openshelf/catalog/internal/domain/notification"
)

// Publisher distributes one notification envelope to every connected client,
// across all instances when the broker is reachable and locally otherwise.
// The persistence layer calls it exactly once per committed change.
type Publisher interface {
	PublishNotification(ctx context.Context, env notification.Envelope)
}

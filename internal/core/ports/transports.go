package ports

import (
	"context"

	"allocation/internal/core/application/messages"
)

// NotificationSender delivers human-facing notifications, such as the
// out-of-stock email to the stock admins. Implementations own their own
// timeouts; the bus does not impose any.
type NotificationSender interface {
	Send(ctx context.Context, destination, message string) error
}

// EventPublisher fans events out to external subscribers. Delivery is
// at-least-once; consumers are expected to be idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event messages.Event) error
}

// EventLog is the append-only history of domain events committed on the
// write side. The read model is rebuilt by replaying it against an emptied
// view store, which is the designated repair procedure when the projection
// diverges (e.g. a crash between write commit and view update).
type EventLog interface {
	// History returns every logged event in insertion order.
	History(ctx context.Context) ([]messages.Event, error)
}

// Package ports defines the boundary interfaces between the application core
// and its adapters: transactional persistence, the read model store, the
// event history and the outbound notification/publish transports.
package ports

import (
	"context"

	"allocation/internal/core/application/messages"
)

// UnitOfWorkFactory creates a fresh UnitOfWork for each bus invocation.
// Concurrent invocations must never share one: its transaction handle and
// tracked-aggregate list are invocation-local state.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is the transactional boundary handlers run inside. A single
// instance is threaded through one bus invocation; each handler opens its
// own Begin/Commit scope against it.
//
// Besides transaction control, the unit of work harvests domain events:
// repositories track every aggregate they load or add, and CollectNewEvents
// drains the events those aggregates recorded.
type UnitOfWork interface {
	// Begin starts a transaction. Calling Begin with a transaction already
	// open is a no-op, so nested handler scopes do not stack transactions.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback discards the current transaction. Rolling back with no open
	// transaction is an error.
	Rollback(ctx context.Context) error

	// ProductRepository returns a product repository bound to the current
	// transaction.
	ProductRepository() ProductRepository

	// AllocationViewRepository returns the read-model store bound to the
	// current transaction.
	AllocationViewRepository() AllocationViewRepository

	// CollectNewEvents drains the events raised by aggregates seen since
	// the last call, in raise order. Each event is returned exactly once.
	// Events survive rollback: they describe what the domain decided, and
	// facts like OutOfStock matter even when nothing was written.
	CollectNewEvents() []messages.Event
}

// Package events contains the event-side handlers: read-model projections,
// external fan-out and notifications. Handlers run inside the message bus's
// failure boundary, so one handler's error is logged and never blocks its
// siblings or the queue drain.
package events

import (
	"context"
	"fmt"

	"allocation/internal/core/application/messages"
	"allocation/internal/core/application/usecases/commands"
	"allocation/internal/core/ports"
)

// AllocatedTopic is the pub/sub topic Allocated events fan out on.
const AllocatedTopic = "line_allocated"

// stockAdminDestination receives out-of-stock notifications.
const stockAdminDestination = "stock-admin@allocation.example"

// AddAllocationToReadModel projects an Allocated event into the
// denormalized allocations view, in its own transaction. The upsert keyed
// by {order_id, sku} makes redelivery harmless.
func AddAllocationToReadModel(ctx context.Context, e messages.Allocated, uow ports.UnitOfWork) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	err := uow.AllocationViewRepository().Add(ctx, ports.Allocation{
		OrderID:  e.OrderID,
		SKU:      e.SKU,
		BatchRef: e.BatchRef,
	})
	if err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// RemoveAllocationFromReadModel deletes the view row for a Deallocated
// event. Removing a row that does not exist is a no-op.
func RemoveAllocationFromReadModel(ctx context.Context, e messages.Deallocated, uow ports.UnitOfWork) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.AllocationViewRepository().Remove(ctx, e.OrderID, e.SKU); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// Reallocate re-issues the allocation for a deallocated order line, reusing
// the Allocate command logic with the same unit of work. If stock ran out,
// the failure stays inside the bus's event boundary and the OutOfStock
// event the aggregate recorded is drained right after this attempt.
func Reallocate(ctx context.Context, e messages.Deallocated, uow ports.UnitOfWork) error {
	cmd, err := messages.NewAllocate(e.OrderID, e.SKU, e.Qty)
	if err != nil {
		return err
	}

	return commands.Allocate(ctx, cmd, uow)
}

// PublishAllocated fans an Allocated event out to external subscribers.
// Delivery is at-least-once; a transport failure is isolated by the bus.
func PublishAllocated(ctx context.Context, e messages.Allocated, publisher ports.EventPublisher) error {
	return publisher.Publish(ctx, AllocatedTopic, e)
}

// SendOutOfStockNotification tells the stock admins a SKU ran dry.
func SendOutOfStockNotification(ctx context.Context, e messages.OutOfStock, notifications ports.NotificationSender) error {
	return notifications.Send(ctx, stockAdminDestination, fmt.Sprintf("Out of stock for %s", e.SKU))
}

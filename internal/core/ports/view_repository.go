package ports

import "context"

// Allocation is one row of the denormalized read model: which batch an
// order line for a SKU is currently allocated to. It carries no references
// into the write-side schema and is fully derivable from the
// Allocated/Deallocated event history.
type Allocation struct {
	OrderID  string
	SKU      string
	BatchRef string
}

// AllocationViewRepository is the read-model store. Writes are idempotent:
// adding an existing {order_id, sku} pair replaces its batch reference and
// removing a missing pair is a no-op, so redelivered events are harmless.
type AllocationViewRepository interface {
	// Add upserts one allocation row keyed by {order_id, sku}.
	Add(ctx context.Context, a Allocation) error

	// Remove deletes the row matching {order_id, sku}, if present.
	Remove(ctx context.Context, orderID, sku string) error

	// ForOrder returns the allocations for an order. An unknown order
	// yields an empty slice, not an error.
	ForOrder(ctx context.Context, orderID string) ([]Allocation, error)

	// Clear empties the store. Used by the rebuild procedure before
	// replaying the event history.
	Clear(ctx context.Context) error
}

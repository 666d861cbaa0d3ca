package product

import (
	"time"

	"allocation/internal/pkg/errs"
)

// Batch is a batch of stock purchased for a single SKU. It tracks which
// order lines are allocated against it. A batch with a nil ETA is warehouse
// stock; one with an ETA is a shipment on its way.
//
// Batch is an entity inside the Product aggregate and must only be mutated
// through Product methods, so the aggregate can record the events the
// mutation implies.
type Batch struct {
	ref          string
	sku          string
	purchasedQty int
	eta          *time.Time
	allocations  []OrderLine

	isConstructed bool
}

// NewBatch creates a validated batch with no allocations.
func NewBatch(ref, sku string, qty int, eta *time.Time) (*Batch, error) {
	if ref == "" {
		return nil, errs.NewValueIsRequiredError("ref")
	}
	if sku == "" {
		return nil, errs.NewValueIsRequiredError("sku")
	}
	if qty < 0 {
		return nil, errs.NewValueIsInvalidError("qty")
	}

	return &Batch{
		ref:           ref,
		sku:           sku,
		purchasedQty:  qty,
		eta:           eta,
		isConstructed: true,
	}, nil
}

// RestoreBatch rebuilds a batch from persistence, including its allocations.
// Used only by repository implementations.
func RestoreBatch(ref, sku string, qty int, eta *time.Time, allocations []OrderLine) (*Batch, error) {
	b, err := NewBatch(ref, sku, qty, eta)
	if err != nil {
		return nil, err
	}

	b.allocations = append(b.allocations, allocations...)
	return b, nil
}

// Ref returns the batch reference.
func (b *Batch) Ref() string { return b.ref }

// SKU returns the stock keeping unit the batch holds.
func (b *Batch) SKU() string { return b.sku }

// PurchasedQty returns the total quantity purchased for the batch.
func (b *Batch) PurchasedQty() int { return b.purchasedQty }

// ETA returns the expected arrival time, or nil for warehouse stock.
func (b *Batch) ETA() *time.Time { return b.eta }

// Allocations returns a copy of the order lines allocated to the batch.
func (b *Batch) Allocations() []OrderLine {
	out := make([]OrderLine, len(b.allocations))
	copy(out, b.allocations)
	return out
}

// AllocatedQty returns the total quantity currently allocated.
func (b *Batch) AllocatedQty() int {
	total := 0
	for _, line := range b.allocations {
		total += line.Qty()
	}
	return total
}

// AvailableQty returns how much of the batch remains unallocated. It can be
// negative after the purchased quantity was reduced below the allocations.
func (b *Batch) AvailableQty() int {
	return b.purchasedQty - b.AllocatedQty()
}

// CanAllocate reports whether the batch can take the line: matching SKU and
// enough available quantity.
func (b *Batch) CanAllocate(line OrderLine) bool {
	return b.sku == line.SKU() && b.AvailableQty() >= line.Qty()
}

// HasAllocated reports whether the exact line is already allocated.
func (b *Batch) HasAllocated(line OrderLine) bool {
	for _, l := range b.allocations {
		if l.IsEqual(line) {
			return true
		}
	}
	return false
}

// allocate records the line against the batch. Allocating the same line
// twice is a no-op, which makes redelivered messages harmless.
func (b *Batch) allocate(line OrderLine) {
	if b.HasAllocated(line) {
		return
	}
	b.allocations = append(b.allocations, line)
}

// deallocateOne removes and returns the most recently allocated line.
// The second return is false when the batch has no allocations.
func (b *Batch) deallocateOne() (OrderLine, bool) {
	if len(b.allocations) == 0 {
		return OrderLine{}, false
	}

	last := len(b.allocations) - 1
	line := b.allocations[last]
	b.allocations = b.allocations[:last]
	return line, true
}

// beatsForAllocation reports whether this batch should be preferred over the
// other for new allocations: warehouse stock wins over shipments, and among
// shipments the earlier ETA wins.
func (b *Batch) beatsForAllocation(other *Batch) bool {
	switch {
	case b.eta == nil:
		return other.eta != nil
	case other.eta == nil:
		return false
	default:
		return b.eta.Before(*other.eta)
	}
}

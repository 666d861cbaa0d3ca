package product

import (
	"errors"
	"sort"

	"allocation/internal/core/application/messages"
	"allocation/internal/pkg/errs"
)

var (
	// ErrOutOfStock is returned by Allocate when no batch can satisfy the
	// order line. The aggregate also records an OutOfStock event so
	// downstream consumers learn about the shortage.
	ErrOutOfStock = errors.New("out of stock")

	// ErrProductIsNotConstructed is returned when a Product was not created
	// through NewProduct or RestoreProduct.
	ErrProductIsNotConstructed = errors.New("Product must be created via NewProduct constructor")

	// ErrSKUMismatch is returned when a batch for a different SKU is added
	// to the product.
	ErrSKUMismatch = errors.New("batch sku does not match product sku")

	// ErrDuplicateBatchRef is returned when a batch with an already known
	// reference is added to the product. Batch references identify
	// shipments and must be unique.
	ErrDuplicateBatchRef = errors.New("batch ref already exists")
)

// Product is the aggregate root for one SKU's stock. It owns every batch
// purchased for the SKU and is the consistency boundary for allocations:
// all allocation decisions for a SKU go through its Product.
//
// Mutations record domain events on the aggregate. The events stay in memory
// until the unit of work drains them after the surrounding transaction, so a
// rolled-back transaction still surfaces facts like OutOfStock.
type Product struct {
	sku     string
	batches []*Batch
	version int

	events []messages.Event

	isConstructed bool
}

// NewProduct creates a product with no batches.
func NewProduct(sku string) (*Product, error) {
	if sku == "" {
		return nil, errs.NewValueIsRequiredError("sku")
	}

	return &Product{
		sku:           sku,
		isConstructed: true,
	}, nil
}

// RestoreProduct rebuilds a product from persistence. Used only by
// repository implementations.
func RestoreProduct(sku string, batches []*Batch, version int) (*Product, error) {
	p, err := NewProduct(sku)
	if err != nil {
		return nil, err
	}

	for _, b := range batches {
		if b.SKU() != sku {
			return nil, ErrSKUMismatch
		}
	}

	p.batches = append(p.batches, batches...)
	p.version = version
	return p, nil
}

// Validate ensures the Product was created through a constructor.
func (p *Product) Validate() error {
	if p == nil || !p.isConstructed {
		return ErrProductIsNotConstructed
	}
	return nil
}

// SKU returns the stock keeping unit this product aggregates.
func (p *Product) SKU() string { return p.sku }

// Version returns the aggregate version, incremented on each state change.
// Persistence uses it for optimistic concurrency control.
func (p *Product) Version() int { return p.version }

// Batches returns a copy of the product's batch list.
func (p *Product) Batches() []*Batch {
	out := make([]*Batch, len(p.batches))
	copy(out, p.batches)
	return out
}

// BatchByRef returns the batch with the given reference.
func (p *Product) BatchByRef(ref string) (*Batch, error) {
	for _, b := range p.batches {
		if b.Ref() == ref {
			return b, nil
		}
	}
	return nil, errs.NewObjectNotFoundError("batchref", ref)
}

// AddBatch adds a batch of stock to the product. The batch SKU must match
// and its reference must not collide with an existing batch.
func (p *Product) AddBatch(b *Batch) error {
	if b == nil {
		return errs.NewValueIsRequiredError("batch")
	}
	if b.SKU() != p.sku {
		return ErrSKUMismatch
	}
	for _, existing := range p.batches {
		if existing.Ref() == b.Ref() {
			return ErrDuplicateBatchRef
		}
	}

	p.batches = append(p.batches, b)
	p.version++
	return nil
}

// Allocate allocates the order line to the preferred available batch:
// warehouse stock first, then shipments by earliest ETA. It records an
// Allocated event and returns the chosen batch reference.
//
// When no batch can take the line it records an OutOfStock event and
// returns ErrOutOfStock.
func (p *Product) Allocate(line OrderLine) (string, error) {
	if line.SKU() != p.sku {
		return "", ErrSKUMismatch
	}

	candidates := make([]*Batch, len(p.batches))
	copy(candidates, p.batches)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].beatsForAllocation(candidates[j])
	})

	for _, b := range candidates {
		if !b.CanAllocate(line) {
			continue
		}

		b.allocate(line)
		p.version++
		p.recordEvent(messages.Allocated{
			OrderID:  line.OrderID(),
			SKU:      line.SKU(),
			Qty:      line.Qty(),
			BatchRef: b.Ref(),
		})
		return b.Ref(), nil
	}

	p.recordEvent(messages.OutOfStock{SKU: p.sku})
	return "", ErrOutOfStock
}

// ChangeBatchQuantity sets a batch's purchased quantity. While the batch is
// over-allocated, it deallocates order lines one by one, recording a
// Deallocated event for each so they can be reallocated elsewhere.
func (p *Product) ChangeBatchQuantity(ref string, qty int) error {
	if qty < 0 {
		return errs.NewValueIsInvalidError("qty")
	}

	b, err := p.BatchByRef(ref)
	if err != nil {
		return err
	}

	b.purchasedQty = qty
	p.version++
	for b.AvailableQty() < 0 {
		line, ok := b.deallocateOne()
		if !ok {
			break
		}

		p.recordEvent(messages.Deallocated{
			OrderID: line.OrderID(),
			SKU:     line.SKU(),
			Qty:     line.Qty(),
		})
	}

	return nil
}

// PendingEvents returns a copy of the recorded but not yet collected
// events. The unit of work uses it at commit time to append the committed
// facts to the event history without disturbing the bus's drain.
func (p *Product) PendingEvents() []messages.Event {
	out := make([]messages.Event, len(p.events))
	copy(out, p.events)
	return out
}

// CollectEvents drains the events recorded since the last call, in the
// order they were raised. Each event is returned exactly once.
func (p *Product) CollectEvents() []messages.Event {
	events := p.events
	p.events = nil
	return events
}

func (p *Product) recordEvent(e messages.Event) {
	p.events = append(p.events, e)
}

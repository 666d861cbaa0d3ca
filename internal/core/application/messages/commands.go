package messages

import (
	"errors"
	"time"

	"allocation/internal/pkg/errs"
	"allocation/internal/pkg/guard"

	"github.com/google/uuid"
)

var (
	ErrCreateBatchIsNotConstructed = errors.New(
		"CreateBatch must be created via NewCreateBatch constructor",
	)
	ErrAllocateIsNotConstructed = errors.New(
		"Allocate must be created via NewAllocate constructor",
	)
	ErrChangeBatchQuantityIsNotConstructed = errors.New(
		"ChangeBatchQuantity must be created via NewChangeBatchQuantity constructor",
	)
)

// Message names used as registry keys.
const (
	CreateBatchName         = "CreateBatch"
	AllocateName            = "Allocate"
	ChangeBatchQuantityName = "ChangeBatchQuantity"
)

// CreateBatch requests that a new batch of stock be added for a SKU.
//
// Example:
//
//	cmd, err := messages.NewCreateBatch("batch-001", "CHAIR", 100, nil)
//	if err != nil {
//	    return err
//	}
//	if err := bus.Handle(ctx, cmd); err != nil {
//	    return err
//	}
type CreateBatch struct {
	commandMarker

	commandID uuid.UUID
	ref       string
	sku       string
	qty       int
	eta       *time.Time

	guard guard.ConstructorGuard
}

// NewCreateBatch creates a CreateBatch command. Reference and SKU must be
// non-empty and quantity must be positive. ETA is optional; nil means the
// batch is already in warehouse stock.
func NewCreateBatch(ref, sku string, qty int, eta *time.Time) (CreateBatch, error) {
	if ref == "" {
		return CreateBatch{}, errs.NewValueIsRequiredError("ref")
	}
	if sku == "" {
		return CreateBatch{}, errs.NewValueIsRequiredError("sku")
	}
	if qty <= 0 {
		return CreateBatch{}, errs.NewValueIsInvalidError("qty")
	}

	return CreateBatch{
		commandID: uuid.New(),
		ref:       ref,
		sku:       sku,
		qty:       qty,
		eta:       eta,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Name returns the stable message name.
func (CreateBatch) Name() string { return CreateBatchName }

// Validate ensures the command was created through the constructor.
func (c CreateBatch) Validate() error {
	return c.guard.Validate(ErrCreateBatchIsNotConstructed)
}

// CommandID returns the unique identifier assigned to this command instance.
func (c CreateBatch) CommandID() uuid.UUID { return c.commandID }

// Ref returns the batch reference.
func (c CreateBatch) Ref() string { return c.ref }

// SKU returns the stock keeping unit the batch holds.
func (c CreateBatch) SKU() string { return c.sku }

// Qty returns the purchased quantity of the batch.
func (c CreateBatch) Qty() int { return c.qty }

// ETA returns the expected arrival time, or nil for in-stock batches.
func (c CreateBatch) ETA() *time.Time { return c.eta }

// Allocate requests that an order line be allocated to an available batch.
type Allocate struct {
	commandMarker

	commandID uuid.UUID
	orderID   string
	sku       string
	qty       int

	guard guard.ConstructorGuard
}

// NewAllocate creates an Allocate command. Order ID and SKU must be non-empty
// and quantity must be positive.
func NewAllocate(orderID, sku string, qty int) (Allocate, error) {
	if orderID == "" {
		return Allocate{}, errs.NewValueIsRequiredError("order_id")
	}
	if sku == "" {
		return Allocate{}, errs.NewValueIsRequiredError("sku")
	}
	if qty <= 0 {
		return Allocate{}, errs.NewValueIsInvalidError("qty")
	}

	return Allocate{
		commandID: uuid.New(),
		orderID:   orderID,
		sku:       sku,
		qty:       qty,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Name returns the stable message name.
func (Allocate) Name() string { return AllocateName }

// Validate ensures the command was created through the constructor.
func (c Allocate) Validate() error {
	return c.guard.Validate(ErrAllocateIsNotConstructed)
}

// CommandID returns the unique identifier assigned to this command instance.
func (c Allocate) CommandID() uuid.UUID { return c.commandID }

// OrderID returns the identifier of the order being allocated.
func (c Allocate) OrderID() string { return c.orderID }

// SKU returns the stock keeping unit of the order line.
func (c Allocate) SKU() string { return c.sku }

// Qty returns the quantity of the order line.
func (c Allocate) Qty() int { return c.qty }

// ChangeBatchQuantity requests that a batch's purchased quantity be adjusted.
// Shrinking a batch below its allocated quantity deallocates order lines,
// which the system then tries to reallocate elsewhere.
type ChangeBatchQuantity struct {
	commandMarker

	commandID uuid.UUID
	ref       string
	qty       int

	guard guard.ConstructorGuard
}

// NewChangeBatchQuantity creates a ChangeBatchQuantity command. Reference must
// be non-empty and the new quantity must not be negative.
func NewChangeBatchQuantity(ref string, qty int) (ChangeBatchQuantity, error) {
	if ref == "" {
		return ChangeBatchQuantity{}, errs.NewValueIsRequiredError("ref")
	}
	if qty < 0 {
		return ChangeBatchQuantity{}, errs.NewValueIsInvalidError("qty")
	}

	return ChangeBatchQuantity{
		commandID: uuid.New(),
		ref:       ref,
		qty:       qty,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Name returns the stable message name.
func (ChangeBatchQuantity) Name() string { return ChangeBatchQuantityName }

// Validate ensures the command was created through the constructor.
func (c ChangeBatchQuantity) Validate() error {
	return c.guard.Validate(ErrChangeBatchQuantityIsNotConstructed)
}

// CommandID returns the unique identifier assigned to this command instance.
func (c ChangeBatchQuantity) CommandID() uuid.UUID { return c.commandID }

// Ref returns the batch reference.
func (c ChangeBatchQuantity) Ref() string { return c.ref }

// Qty returns the new purchased quantity.
func (c ChangeBatchQuantity) Qty() int { return c.qty }

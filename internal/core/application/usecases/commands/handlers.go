// Package commands contains the write-side operations of the allocation
// service. Each handler is a plain function taking (ctx, command, deps...);
// the bootstrap binds the trailing dependencies through the injector and the
// message bus routes each command to its single bound handler.
//
// A command handler failure is fatal to the bus invocation that triggered
// it: the error propagates unmodified to the caller.
package commands

import (
	"context"
	"errors"

	"allocation/internal/core/application/messages"
	"allocation/internal/core/domain/model/product"
	"allocation/internal/core/ports"
	"allocation/internal/pkg/errs"
)

// AddBatch records a new batch of purchasable stock. The product aggregate
// for the SKU is created on first use.
func AddBatch(ctx context.Context, cmd messages.CreateBatch, uow ports.UnitOfWork) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.ProductRepository()

	isNew := false
	p, err := repo.Get(ctx, cmd.SKU())
	if err != nil {
		if !errors.Is(err, errs.ErrObjectNotFound) {
			return err
		}
		if p, err = product.NewProduct(cmd.SKU()); err != nil {
			return err
		}
		isNew = true
	}

	batch, err := product.NewBatch(cmd.Ref(), cmd.SKU(), cmd.Qty(), cmd.ETA())
	if err != nil {
		return err
	}
	if err = p.AddBatch(batch); err != nil {
		return err
	}

	if isNew {
		err = repo.Add(ctx, p)
	} else {
		err = repo.Update(ctx, p)
	}
	if err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// Allocate allocates an order line to the best available batch for its SKU.
// An unknown SKU yields errs.ObjectNotFoundError; exhausted stock yields
// product.ErrOutOfStock. Either way nothing is committed, but the aggregate
// keeps any events it recorded (such as OutOfStock) for a later drain.
func Allocate(ctx context.Context, cmd messages.Allocate, uow ports.UnitOfWork) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	line, err := product.NewOrderLine(cmd.OrderID(), cmd.SKU(), cmd.Qty())
	if err != nil {
		return err
	}

	if err = uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.ProductRepository()
	p, err := repo.Get(ctx, cmd.SKU())
	if err != nil {
		return err
	}

	if _, err = p.Allocate(line); err != nil {
		return err
	}

	if err = repo.Update(ctx, p); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// ChangeBatchQuantity adjusts a batch's purchased quantity. Lines the batch
// can no longer hold are deallocated by the aggregate, and the resulting
// Deallocated events drive reallocation once the bus drains them.
func ChangeBatchQuantity(ctx context.Context, cmd messages.ChangeBatchQuantity, uow ports.UnitOfWork) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.ProductRepository()
	p, err := repo.GetByBatchRef(ctx, cmd.Ref())
	if err != nil {
		return err
	}

	if err = p.ChangeBatchQuantity(cmd.Ref(), cmd.Qty()); err != nil {
		return err
	}

	if err = repo.Update(ctx, p); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

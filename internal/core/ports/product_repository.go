package ports

import (
	"context"

	"allocation/internal/core/domain/model/product"
)

// ProductRepository persists Product aggregates. Implementations must report
// every aggregate returned by Add or Get to the unit of work's tracker so
// its domain events can be collected later.
type ProductRepository interface {
	// Add saves a new product aggregate.
	Add(ctx context.Context, p *product.Product) error

	// Get loads the product for a SKU, including its batches and
	// allocations. Returns errs.ObjectNotFoundError for an unknown SKU.
	Get(ctx context.Context, sku string) (*product.Product, error)

	// GetByBatchRef loads the product owning the batch with the given
	// reference. Returns errs.ObjectNotFoundError when no batch matches.
	GetByBatchRef(ctx context.Context, ref string) (*product.Product, error)

	// Update persists the current state of a previously loaded product.
	Update(ctx context.Context, p *product.Product) error
}

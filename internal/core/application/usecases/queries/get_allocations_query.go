// Package queries contains the read-side operations. Queries never touch
// write-side domain objects: they read the denormalized allocations view
// and return flat response records.
package queries

import (
	"errors"

	"allocation/internal/pkg/errs"
	"allocation/internal/pkg/guard"
)

var ErrGetAllocationsQueryIsNotConstructed = errors.New(
	"GetAllocationsQuery must be created via NewGetAllocationsQuery constructor",
)

// GetAllocationsQuery asks which batches an order's lines are allocated to.
type GetAllocationsQuery struct {
	orderID string

	guard guard.ConstructorGuard
}

// NewGetAllocationsQuery creates a query for one order's allocations.
func NewGetAllocationsQuery(orderID string) (GetAllocationsQuery, error) {
	if orderID == "" {
		return GetAllocationsQuery{}, errs.NewValueIsRequiredError("order_id")
	}

	return GetAllocationsQuery{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetAllocationsQuery) Validate() error {
	return q.guard.Validate(ErrGetAllocationsQueryIsNotConstructed)
}

// OrderID returns the order being queried.
func (q GetAllocationsQuery) OrderID() string {
	return q.orderID
}

// GetAllocationsQueryResponse is one allocation of the queried order.
type GetAllocationsQueryResponse struct {
	SKU      string `json:"sku"`
	BatchRef string `json:"batchref"`
}

package queries

import (
	"context"

	"allocation/internal/core/ports"
)

// GetAllocationsQueryHandler reads an order's allocations from the view
// store. An order with no allocations (or one that never existed) yields an
// empty slice, not an error; distinguishing the two is left to the HTTP
// adapter.
type GetAllocationsQueryHandler struct {
	views ports.AllocationViewRepository
}

// NewGetAllocationsQueryHandler creates a handler over the given view store.
func NewGetAllocationsQueryHandler(views ports.AllocationViewRepository) GetAllocationsQueryHandler {
	return GetAllocationsQueryHandler{views: views}
}

// Handle executes the query.
func (h GetAllocationsQueryHandler) Handle(
	ctx context.Context,
	query GetAllocationsQuery,
) ([]GetAllocationsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.views.ForOrder(ctx, query.OrderID())
	if err != nil {
		return nil, err
	}

	out := make([]GetAllocationsQueryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, GetAllocationsQueryResponse{
			SKU:      row.SKU,
			BatchRef: row.BatchRef,
		})
	}

	return out, nil
}

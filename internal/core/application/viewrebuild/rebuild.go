// Package viewrebuild reconstructs the allocations read model from the
// event history. It is the repair procedure for projection divergence: the
// view is derived state, so clearing it and replaying every committed
// Allocated and Deallocated event restores exactly the rows incremental
// handling would have produced.
package viewrebuild

import (
	"context"
	"fmt"

	"allocation/internal/core/application/messages"
	"allocation/internal/core/ports"
)

// Rebuild clears the view store and replays the full event history against
// it. Events other than Allocated and Deallocated do not touch the view and
// are skipped.
func Rebuild(ctx context.Context, log ports.EventLog, view ports.AllocationViewRepository) error {
	history, err := log.History(ctx)
	if err != nil {
		return fmt.Errorf("viewrebuild: load history: %w", err)
	}

	if err := view.Clear(ctx); err != nil {
		return fmt.Errorf("viewrebuild: clear view: %w", err)
	}

	for _, event := range history {
		switch e := event.(type) {
		case messages.Allocated:
			err = view.Add(ctx, ports.Allocation{OrderID: e.OrderID, SKU: e.SKU, BatchRef: e.BatchRef})
		case messages.Deallocated:
			err = view.Remove(ctx, e.OrderID, e.SKU)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("viewrebuild: replay %s: %w", event.Name(), err)
		}
	}

	return nil
}

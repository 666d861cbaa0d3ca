// Package registry declares which handler serves each command and which
// handlers, in order, serve each event. The tables hold raw handler
// functions; the bootstrap binds them to concrete dependencies through the
// injector. Production and test bootstraps share these tables and differ
// only in the dependency map, so swapping fakes can never change routing.
package registry

import (
	"allocation/internal/core/application/messages"
	"allocation/internal/core/application/usecases/commands"
	"allocation/internal/core/application/usecases/events"
)

// Commands maps each command name to its single handler.
func Commands() map[string]any {
	return map[string]any{
		messages.CreateBatchName:         commands.AddBatch,
		messages.AllocateName:            commands.Allocate,
		messages.ChangeBatchQuantityName: commands.ChangeBatchQuantity,
	}
}

// Events maps each event name to its ordered handler list. Order is
// externally observable side-effect order and is preserved by the bus.
func Events() map[string][]any {
	return map[string][]any{
		messages.AllocatedName: {
			events.PublishAllocated,
			events.AddAllocationToReadModel,
		},
		messages.DeallocatedName: {
			events.RemoveAllocationFromReadModel,
			events.Reallocate,
		},
		messages.OutOfStockName: {
			events.SendOutOfStockNotification,
		},
	}
}

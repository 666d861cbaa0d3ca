package events_test

import (
	"context"
	"errors"
	"testing"

	"allocation/internal/adapters/out/memory"
	"allocation/internal/core/application/messages"
	"allocation/internal/core/application/usecases/commands"
	"allocation/internal/core/application/usecases/events"
	"allocation/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics []string
	events []messages.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, e messages.Event) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return p.err
}

type fakeSender struct {
	destinations []string
	bodies       []string
}

func (s *fakeSender) Send(_ context.Context, destination, message string) error {
	s.destinations = append(s.destinations, destination)
	s.bodies = append(s.bodies, message)
	return nil
}

func allocated() messages.Allocated {
	return messages.Allocated{OrderID: "order-1", SKU: "CHAIR", Qty: 2, BatchRef: "batch-001"}
}

func TestAddAllocationToReadModel(t *testing.T) {
	uow := memory.NewUnitOfWork(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, events.AddAllocationToReadModel(ctx, allocated(), uow))

	rows, err := uow.AllocationViewRepository().ForOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, []ports.Allocation{{OrderID: "order-1", SKU: "CHAIR", BatchRef: "batch-001"}}, rows)
}

func TestAddAllocationToReadModel_RedeliveryIsIdempotent(t *testing.T) {
	uow := memory.NewUnitOfWork(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, events.AddAllocationToReadModel(ctx, allocated(), uow))
	require.NoError(t, events.AddAllocationToReadModel(ctx, allocated(), uow))

	rows, err := uow.AllocationViewRepository().ForOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "redelivered event must not duplicate the row")
}

func TestRemoveAllocationFromReadModel(t *testing.T) {
	uow := memory.NewUnitOfWork(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, events.AddAllocationToReadModel(ctx, allocated(), uow))

	deallocated := messages.Deallocated{OrderID: "order-1", SKU: "CHAIR", Qty: 2}
	require.NoError(t, events.RemoveAllocationFromReadModel(ctx, deallocated, uow))

	rows, err := uow.AllocationViewRepository().ForOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Deleting again is a no-op, not an error.
	require.NoError(t, events.RemoveAllocationFromReadModel(ctx, deallocated, uow))
}

func TestReallocate_MovesLineToAnotherBatch(t *testing.T) {
	uow := memory.NewUnitOfWork(memory.NewStore())
	ctx := context.Background()

	batch, err := messages.NewCreateBatch("batch-002", "TABLE", 50, nil)
	require.NoError(t, err)
	require.NoError(t, commands.AddBatch(ctx, batch, uow))

	deallocated := messages.Deallocated{OrderID: "order-1", SKU: "TABLE", Qty: 20}
	require.NoError(t, events.Reallocate(ctx, deallocated, uow))

	raised := uow.CollectNewEvents()
	require.Len(t, raised, 1)
	assert.Equal(t, messages.Allocated{
		OrderID:  "order-1",
		SKU:      "TABLE",
		Qty:      20,
		BatchRef: "batch-002",
	}, raised[0])
}

func TestPublishAllocated(t *testing.T) {
	pub := &fakePublisher{}

	require.NoError(t, events.PublishAllocated(context.Background(), allocated(), pub))

	assert.Equal(t, []string{events.AllocatedTopic}, pub.topics)
	require.Len(t, pub.events, 1)
	assert.Equal(t, allocated(), pub.events[0])
}

func TestPublishAllocated_TransportFailurePropagatesToTheBoundary(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}

	err := events.PublishAllocated(context.Background(), allocated(), pub)
	require.EqualError(t, err, "redis down")
}

func TestSendOutOfStockNotification(t *testing.T) {
	sender := &fakeSender{}

	e := messages.OutOfStock{SKU: "CHAIR"}
	require.NoError(t, events.SendOutOfStockNotification(context.Background(), e, sender))

	require.Len(t, sender.bodies, 1)
	assert.Equal(t, "Out of stock for CHAIR", sender.bodies[0])
}

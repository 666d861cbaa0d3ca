package messagebus_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"allocation/internal/core/application/inject"
	"allocation/internal/core/application/messagebus"
	"allocation/internal/core/application/messages"
	"allocation/internal/core/ports"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUoW scripts what CollectNewEvents returns on each drain, so tests can
// stage cascades without a real persistence layer.
type stubUoW struct {
	drains [][]messages.Event
}

func (u *stubUoW) Begin(context.Context) error    { return nil }
func (u *stubUoW) Commit(context.Context) error   { return nil }
func (u *stubUoW) Rollback(context.Context) error { return nil }
func (u *stubUoW) ProductRepository() ports.ProductRepository {
	return nil
}
func (u *stubUoW) AllocationViewRepository() ports.AllocationViewRepository {
	return nil
}

func (u *stubUoW) CollectNewEvents() []messages.Event {
	if len(u.drains) == 0 {
		return nil
	}
	head := u.drains[0]
	u.drains = u.drains[1:]
	return head
}

// stubFactory hands out the scripted units of work in order, one per
// Handle call, and counts how many were created.
type stubFactory struct {
	uows    []ports.UnitOfWork
	created int
}

func (f *stubFactory) Create() ports.UnitOfWork {
	f.created++
	if len(f.uows) == 0 {
		return &stubUoW{}
	}
	head := f.uows[0]
	f.uows = f.uows[1:]
	return head
}

func singleUoW(uow ports.UnitOfWork) *stubFactory {
	return &stubFactory{uows: []ports.UnitOfWork{uow}}
}

// fixedTables ignores the per-invocation unit of work and always returns
// the same routing tables, which is all the dispatch tests need.
func fixedTables(
	commands map[string]inject.BoundHandler,
	events map[string][]inject.BoundHandler,
) messagebus.Binder {
	return func(ports.UnitOfWork) (messagebus.HandlerTables, error) {
		return messagebus.HandlerTables{Commands: commands, Events: events}, nil
	}
}

// recorder captures the order handlers ran in.
type recorder struct {
	calls []string
}

func (r *recorder) note(s string) { r.calls = append(r.calls, s) }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustBind(t *testing.T, handler any, deps inject.Dependencies) inject.BoundHandler {
	t.Helper()
	bound, err := inject.Bind(handler, deps)
	require.NoError(t, err)
	return bound
}

func mustAllocate(t *testing.T) messages.Allocate {
	t.Helper()
	cmd, err := messages.NewAllocate("order-1", "CHAIR", 2)
	require.NoError(t, err)
	return cmd
}

func TestHandle_RoutesCommandToItsSingleHandler(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	handler := func(ctx context.Context, cmd messages.Allocate, r *recorder) error {
		r.note("allocate " + cmd.OrderID())
		return nil
	}

	bus := messagebus.New(
		&stubFactory{},
		fixedTables(map[string]inject.BoundHandler{messages.AllocateName: mustBind(t, handler, deps)}, nil),
		quietLogger(),
		0,
	)

	require.NoError(t, bus.Handle(context.Background(), mustAllocate(t)))
	assert.Equal(t, []string{"allocate order-1"}, rec.calls)
}

func TestHandle_UnknownCommandIsAnError(t *testing.T) {
	bus := messagebus.New(&stubFactory{}, fixedTables(nil, nil), quietLogger(), 0)

	err := bus.Handle(context.Background(), mustAllocate(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestHandle_BindFailurePropagates(t *testing.T) {
	failing := func(ports.UnitOfWork) (messagebus.HandlerTables, error) {
		return messagebus.HandlerTables{}, errors.New("no dependency for parameter")
	}
	bus := messagebus.New(&stubFactory{}, failing, quietLogger(), 0)

	err := bus.Handle(context.Background(), mustAllocate(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind handlers")
}

func TestHandle_CommandFailurePropagatesAndAbandonsQueue(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	failing := func(ctx context.Context, cmd messages.Allocate, r *recorder) error {
		return errors.New("boom")
	}
	projection := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("projection")
		return nil
	}

	// The drain is scripted, but a failed command never reaches it: the
	// error returns before any event can be enqueued.
	uow := &stubUoW{drains: [][]messages.Event{{messages.Allocated{OrderID: "order-1"}}}}

	bus := messagebus.New(
		singleUoW(uow),
		fixedTables(
			map[string]inject.BoundHandler{messages.AllocateName: mustBind(t, failing, deps)},
			map[string][]inject.BoundHandler{messages.AllocatedName: {mustBind(t, projection, deps)}},
		),
		quietLogger(),
		0,
	)

	err := bus.Handle(context.Background(), mustAllocate(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "command Allocate")
	require.ErrorContains(t, err, "boom")
	assert.Empty(t, rec.calls, "no event handler may run after a command failure")
}

func TestHandle_EventHandlersRunInRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	first := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("first")
		return nil
	}
	second := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("second")
		return nil
	}

	bus := messagebus.New(
		&stubFactory{},
		fixedTables(nil, map[string][]inject.BoundHandler{
			messages.AllocatedName: {mustBind(t, first, deps), mustBind(t, second, deps)},
		}),
		quietLogger(),
		0,
	)

	require.NoError(t, bus.Handle(context.Background(), messages.Allocated{OrderID: "order-1"}))
	assert.Equal(t, []string{"first", "second"}, rec.calls)
}

func TestHandle_EventHandlerFailureDoesNotBlockSiblings(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	failing := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		return errors.New("publish failed")
	}
	projection := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("projection")
		return nil
	}

	bus := messagebus.New(
		&stubFactory{},
		fixedTables(nil, map[string][]inject.BoundHandler{
			messages.AllocatedName: {mustBind(t, failing, deps), mustBind(t, projection, deps)},
		}),
		quietLogger(),
		0,
	)

	require.NoError(t, bus.Handle(context.Background(), messages.Allocated{OrderID: "order-1"}),
		"event handler failures must not surface to the caller")
	assert.Equal(t, []string{"projection"}, rec.calls)
}

func TestHandle_EventWithNoHandlersIsANoOp(t *testing.T) {
	bus := messagebus.New(&stubFactory{}, fixedTables(nil, nil), quietLogger(), 0)

	require.NoError(t, bus.Handle(context.Background(), messages.OutOfStock{SKU: "CHAIR"}))
}

func TestHandle_DrainedEventsAreProcessedBreadthFirst(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	command := func(ctx context.Context, cmd messages.Allocate, r *recorder) error {
		r.note("command")
		return nil
	}
	onAllocated := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("allocated " + e.OrderID)
		return nil
	}
	onDeallocated := func(ctx context.Context, e messages.Deallocated, r *recorder) error {
		r.note("deallocated " + e.OrderID)
		return nil
	}

	// The command raises two events; the first event's handler raises a
	// third. Breadth-first means both direct consequences run before the
	// third, deeper one.
	uow := &stubUoW{drains: [][]messages.Event{
		{messages.Allocated{OrderID: "a"}, messages.Deallocated{OrderID: "b"}},
		{messages.Allocated{OrderID: "c"}},
	}}

	bus := messagebus.New(
		singleUoW(uow),
		fixedTables(
			map[string]inject.BoundHandler{messages.AllocateName: mustBind(t, command, deps)},
			map[string][]inject.BoundHandler{
				messages.AllocatedName:   {mustBind(t, onAllocated, deps)},
				messages.DeallocatedName: {mustBind(t, onDeallocated, deps)},
			},
		),
		quietLogger(),
		0,
	)

	require.NoError(t, bus.Handle(context.Background(), mustAllocate(t)))
	assert.Equal(t, []string{"command", "allocated a", "deallocated b", "allocated c"}, rec.calls)
}

func TestHandle_EachInvocationOwnsItsUnitOfWork(t *testing.T) {
	rec := &recorder{}
	deps := inject.Dependencies{"recorder": rec}

	command := func(ctx context.Context, cmd messages.Allocate, r *recorder) error {
		return nil
	}
	onAllocated := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		r.note("allocated " + e.OrderID)
		return nil
	}

	// The first invocation's unit of work still holds an undrained event
	// when the second invocation starts. A bus that reused it would pull
	// "stale" into the second call's queue; a fresh unit of work per call
	// never sees it.
	leftover := &stubUoW{drains: [][]messages.Event{
		{messages.Allocated{OrderID: "first"}},
		nil,
		{messages.Allocated{OrderID: "stale"}},
	}}
	factory := &stubFactory{uows: []ports.UnitOfWork{leftover, &stubUoW{}}}

	bus := messagebus.New(
		factory,
		fixedTables(
			map[string]inject.BoundHandler{messages.AllocateName: mustBind(t, command, deps)},
			map[string][]inject.BoundHandler{messages.AllocatedName: {mustBind(t, onAllocated, deps)}},
		),
		quietLogger(),
		0,
	)

	require.NoError(t, bus.Handle(context.Background(), mustAllocate(t)))
	require.NoError(t, bus.Handle(context.Background(), mustAllocate(t)))

	assert.Equal(t, 2, factory.created, "every Handle call must create a fresh unit of work")
	assert.NotContains(t, rec.calls, "allocated stale",
		"one invocation's pending events must not leak into another's drain")
}

func TestHandle_QueueCapGuardsCyclicHandlers(t *testing.T) {
	deps := inject.Dependencies{"recorder": &recorder{}}

	// Every Allocated handler attempt drains another Allocated: a cycle.
	cyclic := &cyclicUoW{}
	onAllocated := func(ctx context.Context, e messages.Allocated, r *recorder) error {
		return nil
	}

	bus := messagebus.New(
		singleUoW(cyclic),
		fixedTables(nil, map[string][]inject.BoundHandler{
			messages.AllocatedName: {mustBind(t, onAllocated, deps)},
		}),
		quietLogger(),
		5,
	)

	err := bus.Handle(context.Background(), messages.Allocated{OrderID: "order-1"})
	require.ErrorIs(t, err, messagebus.ErrQueueOverflow)
}

type cyclicUoW struct{ stubUoW }

func (u *cyclicUoW) CollectNewEvents() []messages.Event {
	return []messages.Event{messages.Allocated{OrderID: "again"}}
}

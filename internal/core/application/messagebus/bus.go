// Package messagebus implements the single-consumer work-queue dispatcher
// at the heart of the service. One Handle call owns one FIFO queue: the
// input message is processed first, and events raised as side effects are
// appended to the back, giving a breadth-first, deterministic fan-out order
// within the call. The bus does not run handlers concurrently; separate
// Handle calls from separate goroutines each own their own queue and their
// own unit of work, created fresh from the factory per call.
package messagebus

import (
	"context"
	"fmt"

	"allocation/internal/core/application/inject"
	"allocation/internal/core/application/messages"
	"allocation/internal/core/ports"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultQueueCap bounds how many messages one Handle call may process.
// The handler graph is acyclic by domain convention, not by mechanism; the
// cap turns an accidental cycle into an error instead of a livelock.
const DefaultQueueCap = 1000

// ErrQueueOverflow is returned when one Handle call exceeds the queue cap.
var ErrQueueOverflow = fmt.Errorf("messagebus: queue cap exceeded, handlers may be cyclic")

// HandlerTables holds the routing tables for one Handle invocation: each
// command's single handler and each event's ordered handler list.
type HandlerTables struct {
	Commands map[string]inject.BoundHandler
	Events   map[string][]inject.BoundHandler
}

// Binder binds the handler registry against one invocation's unit of work.
// The composition root supplies it and validates it once at assembly time,
// so a dispatch-time bind failure indicates a wiring bug.
type Binder func(uow ports.UnitOfWork) (HandlerTables, error)

// MessageBus routes commands to their single handler and events to their
// ordered handler lists. Routing is fixed after bootstrap; the only
// per-invocation state is the unit of work each Handle call creates for
// itself.
type MessageBus struct {
	uowFactory ports.UnitOfWorkFactory
	bind       Binder
	logger     *logrus.Logger
	queueCap   int
}

// New creates a bus over a unit of work factory and a handler binder. A nil
// logger falls back to the logrus standard logger, and a non-positive
// queueCap falls back to DefaultQueueCap.
func New(
	uowFactory ports.UnitOfWorkFactory,
	bind Binder,
	logger *logrus.Logger,
	queueCap int,
) *MessageBus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}

	return &MessageBus{
		uowFactory: uowFactory,
		bind:       bind,
		logger:     logger,
		queueCap:   queueCap,
	}
}

// Handle processes the message and everything it transitively raises,
// breadth-first, until the queue drains. Each call creates its own unit of
// work, so concurrent callers never see each other's transactions or
// pending events.
//
// A command handler error propagates immediately and abandons the rest of
// the queue: commands are intents, and a failed intent is the caller's
// problem. An event handler error is logged and isolated: events are facts
// that already happened, and a lagging projection must not undo or block
// the fact's other consequences.
func (b *MessageBus) Handle(ctx context.Context, m messages.Message) error {
	uow := b.uowFactory.Create()

	tables, err := b.bind(uow)
	if err != nil {
		return fmt.Errorf("messagebus: bind handlers: %w", err)
	}

	queue := []messages.Message{m}

	for processed := 0; len(queue) > 0; processed++ {
		if processed >= b.queueCap {
			return ErrQueueOverflow
		}

		msg := queue[0]
		queue = queue[1:]

		switch v := msg.(type) {
		case messages.Command:
			raised, err := b.handleCommand(ctx, v, tables, uow)
			if err != nil {
				return err
			}
			queue = append(queue, raised...)
		case messages.Event:
			queue = append(queue, b.handleEvent(ctx, v, tables, uow)...)
		default:
			return fmt.Errorf("messagebus: %q is neither command nor event", msg.Name())
		}
	}

	return nil
}

// handleCommand runs the command's single handler and, on success, drains
// the events it raised.
func (b *MessageBus) handleCommand(
	ctx context.Context,
	cmd messages.Command,
	tables HandlerTables,
	uow ports.UnitOfWork,
) ([]messages.Message, error) {
	handler, ok := tables.Commands[cmd.Name()]
	if !ok {
		return nil, fmt.Errorf("messagebus: no handler registered for command %q", cmd.Name())
	}

	b.logger.WithFields(commandFields(cmd)).Debug("handling command")

	if err := handler.Handle(ctx, cmd); err != nil {
		return nil, fmt.Errorf("command %s: %w", cmd.Name(), err)
	}

	return drain(uow), nil
}

// handleEvent runs every registered handler in order inside its own failure
// boundary and drains newly raised events after each attempt, so the queue
// reflects raise order across handlers. An event with no handlers is a
// no-op.
func (b *MessageBus) handleEvent(
	ctx context.Context,
	e messages.Event,
	tables HandlerTables,
	uow ports.UnitOfWork,
) []messages.Message {
	var raised []messages.Message

	for _, handler := range tables.Events[e.Name()] {
		if err := handler.Handle(ctx, e); err != nil {
			b.logger.WithFields(logrus.Fields{
				"event":   e.Name(),
				"handler": handler.Name(),
			}).WithError(err).Error("event handler failed")
		}

		raised = append(raised, drain(uow)...)
	}

	return raised
}

func drain(uow ports.UnitOfWork) []messages.Message {
	events := uow.CollectNewEvents()
	out := make([]messages.Message, 0, len(events))
	for _, e := range events {
		out = append(out, e)
	}
	return out
}

func commandFields(cmd messages.Command) logrus.Fields {
	fields := logrus.Fields{"command": cmd.Name()}
	if c, ok := cmd.(interface{ CommandID() uuid.UUID }); ok {
		fields["command_id"] = c.CommandID().String()
	}
	return fields
}

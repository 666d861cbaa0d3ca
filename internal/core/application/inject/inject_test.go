package inject_test

import (
	"context"
	"errors"
	"testing"

	"allocation/internal/core/application/inject"
	"allocation/internal/core/application/messages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spySender struct {
	destinations []string
	bodies       []string
	err          error
}

func (s *spySender) Send(_ context.Context, destination, message string) error {
	s.destinations = append(s.destinations, destination)
	s.bodies = append(s.bodies, message)
	return s.err
}

type sender interface {
	Send(ctx context.Context, destination, message string) error
}

func notifyOutOfStock(ctx context.Context, e messages.OutOfStock, s sender) error {
	return s.Send(ctx, "stock@example.com", "Out of stock for "+e.SKU)
}

func TestBind_InvokesHandlerWithBoundDependencies(t *testing.T) {
	spy := &spySender{}
	deps := inject.Dependencies{"notifications": spy}

	bound, err := inject.Bind(notifyOutOfStock, deps)
	require.NoError(t, err)

	err = bound.Handle(context.Background(), messages.OutOfStock{SKU: "CHAIR"})

	require.NoError(t, err)
	assert.Equal(t, []string{"stock@example.com"}, spy.destinations)
	assert.Equal(t, []string{"Out of stock for CHAIR"}, spy.bodies)
}

func TestBind_HandlerErrorPropagates(t *testing.T) {
	spy := &spySender{err: errors.New("smtp down")}
	bound, err := inject.Bind(notifyOutOfStock, inject.Dependencies{"notifications": spy})
	require.NoError(t, err)

	err = bound.Handle(context.Background(), messages.OutOfStock{SKU: "CHAIR"})

	require.EqualError(t, err, "smtp down")
}

func TestBind_MissingDependency(t *testing.T) {
	_, err := inject.Bind(notifyOutOfStock, inject.Dependencies{})

	var missing *inject.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Handler, "notifyOutOfStock")
}

func TestBind_AmbiguousDependency(t *testing.T) {
	_, err := inject.Bind(notifyOutOfStock, inject.Dependencies{
		"notifications": &spySender{},
		"send_mail":     &spySender{},
	})

	var ambiguous *inject.AmbiguousDependencyError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"notifications", "send_mail"}, ambiguous.Names)
}

func TestBind_RejectsBadShapes(t *testing.T) {
	deps := inject.Dependencies{}

	t.Run("not_a_function", func(t *testing.T) {
		_, err := inject.Bind(42, deps)
		require.Error(t, err)
	})

	t.Run("missing_context", func(t *testing.T) {
		_, err := inject.Bind(func(e messages.OutOfStock) error { return nil }, deps)
		require.Error(t, err)
	})

	t.Run("second_param_not_a_message", func(t *testing.T) {
		_, err := inject.Bind(func(ctx context.Context, s string) error { return nil }, deps)
		require.Error(t, err)
	})

	t.Run("no_error_return", func(t *testing.T) {
		_, err := inject.Bind(func(ctx context.Context, e messages.OutOfStock) {}, deps)
		require.Error(t, err)
	})
}

func TestBoundHandler_RejectsWrongMessageType(t *testing.T) {
	bound, err := inject.Bind(notifyOutOfStock, inject.Dependencies{"notifications": &spySender{}})
	require.NoError(t, err)

	err = bound.Handle(context.Background(), messages.Allocated{OrderID: "order-1"})

	require.Error(t, err)
}

func TestBind_SameHandlerDifferentMaps(t *testing.T) {
	// Binding through two maps changes only the collaborator instances,
	// never the handler identity or message routing.
	first := &spySender{}
	second := &spySender{}

	a, err := inject.Bind(notifyOutOfStock, inject.Dependencies{"notifications": first})
	require.NoError(t, err)
	b, err := inject.Bind(notifyOutOfStock, inject.Dependencies{"notifications": second})
	require.NoError(t, err)

	assert.Equal(t, a.Name(), b.Name())
	assert.Equal(t, a.MessageName(), b.MessageName())

	require.NoError(t, a.Handle(context.Background(), messages.OutOfStock{SKU: "CHAIR"}))
	assert.Len(t, first.bodies, 1)
	assert.Empty(t, second.bodies)
}

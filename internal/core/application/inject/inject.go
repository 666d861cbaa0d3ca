// Package inject binds raw handler functions to the collaborators they
// declare. A handler is a plain function of the shape
//
//	func(ctx context.Context, msg <ConcreteMessage>, deps ...) error
//
// where every parameter after the message is a collaborator (a unit of work,
// a publisher, a notification sender). Bind resolves each of those
// parameters against a named dependency map and returns a bound handler
// taking only a context and a message — the uniform shape the message bus
// dispatches, identical for commands and events.
//
// Go reflection exposes parameter types but not parameter names, so
// resolution matches each parameter by assignability against the map's
// values; the map's names exist for the bootstrap surface and for error
// messages. Binding is a pure transformation: the same registry bound
// through two different dependency maps runs the same handlers in the same
// order, only with different collaborators.
package inject

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"allocation/internal/core/application/messages"
)

// Dependencies maps stable collaborator names (e.g. "uow", "publish",
// "notifications") to live instances. Built once per bootstrap call.
type Dependencies map[string]any

var (
	ctxType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType     = reflect.TypeOf((*error)(nil)).Elem()
	messageType = reflect.TypeOf((*messages.Message)(nil)).Elem()
)

// MissingDependencyError reports a handler parameter no dependency in the
// map can satisfy. Surfaced at bind time, never at call time.
type MissingDependencyError struct {
	Handler string
	Param   reflect.Type
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("inject: handler %s requires %s, which no dependency provides", e.Handler, e.Param)
}

// AmbiguousDependencyError reports a handler parameter more than one
// dependency could satisfy.
type AmbiguousDependencyError struct {
	Handler string
	Param   reflect.Type
	Names   []string
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf("inject: handler %s parameter %s is satisfied by multiple dependencies: %s",
		e.Handler, e.Param, strings.Join(e.Names, ", "))
}

// BoundHandler is a handler with its collaborators already bound. Its
// dependency set never changes for the lifetime of the bound handler.
type BoundHandler struct {
	name    string
	msgType reflect.Type
	fn      reflect.Value
	bound   []reflect.Value
}

// Name returns the handler identity (the function's name), used when the
// bus logs an event-handler failure.
func (b BoundHandler) Name() string { return b.name }

// Handle invokes the handler with the message and the bound collaborators.
// The message must be of the concrete type the handler declares.
func (b BoundHandler) Handle(ctx context.Context, m messages.Message) error {
	mv := reflect.ValueOf(m)
	if !mv.Type().AssignableTo(b.msgType) {
		return fmt.Errorf("inject: handler %s expects %s, got %s", b.name, b.msgType, mv.Type())
	}

	args := make([]reflect.Value, 0, 2+len(b.bound))
	args = append(args, reflect.ValueOf(ctx), mv)
	args = append(args, b.bound...)

	out := b.fn.Call(args)
	if err, ok := out[0].Interface().(error); ok && err != nil {
		return err
	}
	return nil
}

// MessageName returns the Name() of the message type the handler accepts.
func (b BoundHandler) MessageName() string {
	msg := reflect.Zero(b.msgType).Interface().(messages.Message)
	return msg.Name()
}

// Bind inspects the handler's signature and binds every parameter after the
// message to a value from deps. It fails if the handler does not have the
// expected shape, if a parameter cannot be satisfied (MissingDependencyError)
// or if it can be satisfied by more than one dependency.
func Bind(handler any, deps Dependencies) (BoundHandler, error) {
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return BoundHandler{}, fmt.Errorf("inject: handler must be a function, got %T", handler)
	}

	name := funcName(fn)
	t := fn.Type()

	if t.NumOut() != 1 || !t.Out(0).Implements(errType) {
		return BoundHandler{}, fmt.Errorf("inject: handler %s must return exactly one error", name)
	}
	if t.NumIn() < 2 {
		return BoundHandler{}, fmt.Errorf("inject: handler %s must take (context.Context, message, deps...)", name)
	}
	if t.In(0) != ctxType {
		return BoundHandler{}, fmt.Errorf("inject: handler %s first parameter must be context.Context", name)
	}
	if !t.In(1).Implements(messageType) {
		return BoundHandler{}, fmt.Errorf("inject: handler %s second parameter must be a message, got %s", name, t.In(1))
	}

	bound := make([]reflect.Value, 0, t.NumIn()-2)
	for i := 2; i < t.NumIn(); i++ {
		v, err := resolve(name, t.In(i), deps)
		if err != nil {
			return BoundHandler{}, err
		}
		bound = append(bound, v)
	}

	return BoundHandler{
		name:    name,
		msgType: t.In(1),
		fn:      fn,
		bound:   bound,
	}, nil
}

// resolve finds the single dependency assignable to the parameter type.
// Names are visited in sorted order so failures are deterministic.
func resolve(handler string, param reflect.Type, deps Dependencies) (reflect.Value, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var matched []string
	var value reflect.Value
	for _, name := range names {
		dep := deps[name]
		if dep == nil {
			continue
		}
		dv := reflect.ValueOf(dep)
		if dv.Type().AssignableTo(param) {
			matched = append(matched, name)
			value = dv
		}
	}

	switch len(matched) {
	case 0:
		return reflect.Value{}, &MissingDependencyError{Handler: handler, Param: param}
	case 1:
		return value, nil
	default:
		return reflect.Value{}, &AmbiguousDependencyError{Handler: handler, Param: param, Names: matched}
	}
}

// funcName returns the bare function name without package path.
func funcName(fn reflect.Value) string {
	full := runtime.FuncForPC(fn.Pointer()).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return full
}

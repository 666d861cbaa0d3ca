// Package guard provides a defensive construction check for value objects,
// commands and queries. Embedding a ConstructorGuard in a struct makes a
// zero-value instance distinguishable from one built through its constructor,
// so Validate calls can reject objects that skipped validation.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when the caller passes a
// nil error for a zero-value guard.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks whether its enclosing struct went through a
// constructor. The zero value always fails validation.
//
// Example:
//
//	type Allocate struct {
//	    orderID string
//	    guard   guard.ConstructorGuard
//	}
//
//	func NewAllocate(orderID string) (Allocate, error) {
//	    return Allocate{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
//	}
//
//	func (c Allocate) Validate() error {
//	    return c.guard.Validate(ErrAllocateIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard that passes validation. Constructors
// assign it to the guard field after their own checks succeed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns nil for a constructed guard. For a zero-value guard it
// returns notConstructedErr, or ErrDefaultConstructorGuard when the caller
// passes nil.
func (g ConstructorGuard) Validate(notConstructedErr error) error {
	if g.isConstructed {
		return nil
	}

	if notConstructedErr == nil {
		return ErrDefaultConstructorGuard
	}

	return notConstructedErr
}

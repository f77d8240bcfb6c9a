// Package cart tracks remote cart state and applies resolved items to it
// through a narrow action surface. The engine never owns the surface; the
// workflow driver acquires it and passes it in.
package cart

import (
	"context"
	"errors"
	"fmt"
)

// Surface is the remote cart action surface. Implementations wrap whatever
// mechanism actually mutates the cart (a browser session in production, a
// scripted fake in tests). All calls block until the remote effect settles.
type Surface interface {
	// ReadTotal returns the cart's current monetary total.
	ReadTotal(ctx context.Context) (float64, error)

	// ReadTitles enumerates the titles currently in the cart. partial is
	// true when the total is nonzero but titles could not be read; callers
	// must then treat the cart contents as unknown rather than empty.
	ReadTitles(ctx context.Context) (titles []string, partial bool, err error)

	// Add puts quantity units of the product identified by target (a
	// product URL or free search text) into the cart and returns how many
	// units actually landed. A product that cannot be located returns
	// (0, nil); only transport-level faults return an error.
	Add(ctx context.Context, target string, quantity int) (added int, err error)
}

// TransportError marks an unexpected fault in the action surface itself,
// as opposed to a product that simply was not found.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cart transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a transport fault for the given operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether any error in the chain is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

package domain

import (
	"fmt"
	"strings"
)

// StoreIOError reports a failure of the durable tier of a named store.
// errors.Is(err, ErrStoreIO) holds for every StoreIOError.
type StoreIOError struct {
	Store string
	Op    string
	Err   error
}

// NewStoreIOError wraps err as a durable tier failure of the given store operation.
func NewStoreIOError(store, op string, err error) *StoreIOError {
	return &StoreIOError{Store: store, Op: op, Err: err}
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

// Unwrap exposes both the category sentinel and the cause.
func (e *StoreIOError) Unwrap() []error {
	return []error{ErrStoreIO, e.Err}
}

// CompositeCloseError lists every failure hit while closing a set of stores.
type CompositeCloseError struct {
	Failures []error
}

func (e *CompositeCloseError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCompositeClose.Error())
	fmt.Fprintf(&b, " (%d failed)", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes the category sentinel followed by every failure.
func (e *CompositeCloseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrCompositeClose)
	return append(errs, e.Failures...)
}

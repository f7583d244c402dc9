package visibility

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by errors returned when Apply or
	// ApplyType receive a nil item list.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnrecoverable marks a filter failure that must abort evaluation
	// instead of vetoing a single item.
	ErrUnrecoverable = errors.New("unrecoverable filter failure")

	// ErrNilFilter is returned when registering a nil filter.
	ErrNilFilter = errors.New("filter is nil")

	// ErrDuplicateFilter is returned when a filter with the same name is
	// already registered.
	ErrDuplicateFilter = errors.New("filter already registered")
)

// InvalidArgumentError reports a nil item list. It records the scope type
// and the caller so the failing call site can be found from the message.
type InvalidArgumentError struct {
	// ScopeType is the name of the scope type, or "<nil>".
	ScopeType string
	// Caller is the caller name carried by the context (see WithCaller).
	Caller string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("descriptor list is nil for scope %q in caller %q", e.ScopeType, e.Caller)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// FilterError is returned by Apply and ApplyType when a filter fails
// unrecoverably.
type FilterError struct {
	// Filter is the name of the failing filter.
	Filter string
	// Item is the ID of the item being evaluated.
	Item string
	// Err is the underlying failure.
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %q failed on %q: %v", e.Filter, e.Item, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking filter.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("filter panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error, so a filter can
// panic with Unrecoverable(err) and still abort the evaluation.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// Unrecoverable wraps err so that it matches ErrUnrecoverable.
func Unrecoverable(err error) error {
	if err == nil {
		return ErrUnrecoverable
	}

	return fmt.Errorf("%w: %w", ErrUnrecoverable, err)
}

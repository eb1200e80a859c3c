package translate

import (
	"errors"
	"fmt"
)

// ErrNotYetImplemented marks a recognized construct that has no rule yet.
// The driver skips the item with a placeholder comment.
var ErrNotYetImplemented = errors.New("not yet implemented")

// UnhandledError reports a recognized top-level construct that is never
// translated, such as a function with a body or an unknown macro. The driver
// skips the item with a placeholder comment naming it.
type UnhandledError struct {
	Name string
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("unhandled item %s", e.Name)
}

// UnsupportedTypeError reports a type shape with no mapping. It aborts the run.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %s", e.Type)
}

// UnsupportedSyntaxError reports a syntax form with no mapping, such as a glob
// import or a malformed STRUCT! body. It aborts the run.
type UnsupportedSyntaxError struct {
	Construct string
	Err       error
}

func (e *UnsupportedSyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported syntax %s: %v", e.Construct, e.Err)
	}
	return fmt.Sprintf("unsupported syntax %s", e.Construct)
}

func (e *UnsupportedSyntaxError) Unwrap() error { return e.Err }

// IsSoft reports whether err is a soft failure: the item is skipped with a
// placeholder comment and translation continues.
func IsSoft(err error) bool {
	var unhandled *UnhandledError
	return errors.As(err, &unhandled) || errors.Is(err, ErrNotYetImplemented)
}

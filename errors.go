package pixtone

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with [errors.Is].
var (
	// ErrLoad reports a missing, unsupported or corrupt image source.
	ErrLoad error = errorString("load error")
	// ErrInvalidParameter reports a non-numeric parameter or one outside an operator's domain.
	ErrInvalidParameter error = errorString("invalid parameter")
	// ErrSave reports a write failure or an unsupported target format.
	ErrSave error = errorString("save error")
	// ErrOperatorFailure reports an internal numeric failure inside an operator.
	ErrOperatorFailure error = errorString("operator failure")
)

// Error carries one of the error kinds above along with the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf returns an [*Error] of the given kind. The formatted message becomes
// the wrapped cause, so %w verbs keep working.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapError tags err with kind unless err already carries it.
func WrapError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

type errorString string

func (e errorString) Error() string { return string(e) }

package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures surfaced by the importer and the exchange client.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindTransport     ErrorKind = "transport"
	KindStructural    ErrorKind = "structural"
)

// Error is a classified failure. Message is safe to show to a user.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	// Status is the HTTP status returned by a remote endpoint, if any.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewConfigurationError(op, msg string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: msg}
}

func NewValidationError(op, msg string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Err: err}
}

func NewTransportError(op, msg string, status int, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: msg, Status: status, Err: err}
}

func NewStructuralError(op, msg string, err error) *Error {
	return &Error{Kind: KindStructural, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// Package dberr provides the typed errors raised by the execution layer.
package dberr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per Kind. A *Error matches its kind's sentinel
// through errors.Is.
var (
	// ErrConfiguration indicates an unknown backend name or dialect.
	ErrConfiguration = errors.New("dbexec: configuration error")

	// ErrConnection indicates the backend could not be opened or authenticated.
	ErrConnection = errors.New("dbexec: connection error")

	// ErrValidation indicates a malformed operation descriptor.
	ErrValidation = errors.New("dbexec: validation error")

	// ErrExecution indicates a single operation failed in the backend.
	ErrExecution = errors.New("dbexec: execution error")

	// ErrTransaction indicates a batch or cursor failed after a transaction was opened.
	ErrTransaction = errors.New("dbexec: transaction error")
)

// Kind classifies an Error.
type Kind uint8

const (
	KindConfiguration Kind = iota + 1
	KindConnection
	KindValidation
	KindExecution
	KindTransaction
)

var kindNames = map[Kind]string{
	KindConfiguration: "ConfigurationError",
	KindConnection:    "ConnectionError",
	KindValidation:    "ValidationError",
	KindExecution:     "ExecutionError",
	KindTransaction:   "TransactionError",
}

var kindSentinels = map[Kind]error{
	KindConfiguration: ErrConfiguration,
	KindConnection:    ErrConnection,
	KindValidation:    ErrValidation,
	KindExecution:     ErrExecution,
	KindTransaction:   ErrTransaction,
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is the rich error type carried to the exception/logging collaborator.
type Error struct {
	// Kind is the taxonomy entry.
	Kind Kind

	// Path is a dotted string identifying the failing operation.
	Path string

	// Context is the caller-supplied exception context tag.
	Context Context

	// Message is the human-readable error message.
	Message string

	// Details holds backend diagnostic fields (sqlstate, constraint, ...).
	Details map[string]any

	// Payload is the operation payload kept for diagnostic logging.
	Payload any

	// Cause is the underlying error.
	Cause error
}

// New creates an Error with no cause.
func New(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, path, format string, args ...any) *Error {
	return New(kind, path, fmt.Sprintf(format, args...))
}

// Wrap creates an Error around cause. The cause's message becomes the
// error message.
func Wrap(kind Kind, path string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Path: path, Message: msg, Cause: cause}
}

// Validation is shorthand for a ValidationError with a formatted message.
func Validation(path, format string, args ...any) *Error {
	return Newf(KindValidation, path, format, args...)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("dbexec [")
	b.WriteString(e.Kind.String())
	b.WriteString("]")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// WithDetails merges diagnostic fields into the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithPayload attaches the operation payload.
func (e *Error) WithPayload(payload any) *Error {
	e.Payload = payload
	return e
}

// WithContext sets the exception context tag.
func (e *Error) WithContext(ctx Context) *Error {
	e.Context = ctx
	return e
}

// Prefix prepends segments to the error path.
func (e *Error) Prefix(segments ...string) *Error {
	parts := make([]string, 0, len(segments)+1)
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	e.Path = strings.Join(parts, ".")
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return 0
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransaction checks if an error is a transaction error.
func IsTransaction(err error) bool {
	return errors.Is(err, ErrTransaction)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

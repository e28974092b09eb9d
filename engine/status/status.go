// Package status defines the error taxonomy shared by the render service, the engine and the transport.
package status

import (
	"errors"
	"fmt"
)

// Code classifies a request failure.
type Code int

const (
	// OK is the code of a nil error.
	OK Code = iota
	// NotFound reports an unknown identifier or scene index.
	NotFound
	// InvalidArgument reports a request rejected before any mutation.
	InvalidArgument
	// ResourceExhausted reports a one-shot resource used twice or a cap exceeded.
	ResourceExhausted
	// Internal reports a broken invariant or a device failure.
	Internal
)

var codeNames = map[Code]string{
	OK:                "OK",
	NotFound:          "NOT_FOUND",
	InvalidArgument:   "INVALID_ARGUMENT",
	ResourceExhausted: "RESOURCE_EXHAUSTED",
	Internal:          "INTERNAL",
}

// String returns the wire name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// ParseCode maps a wire name back to its Code. Unknown names map to Internal.
//
// Parameters:
//   - name: the wire name
//
// Returns:
//   - Code: the parsed code
func ParseCode(name string) Code {
	for c, n := range codeNames {
		if n == name {
			return c
		}
	}
	return Internal
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound          = &Error{Code: NotFound}
	ErrInvalidArgument   = &Error{Code: InvalidArgument}
	ErrResourceExhausted = &Error{Code: ResourceExhausted}
	ErrInternal          = &Error{Code: Internal}
)

// Error is a request failure carrying a Code and a descriptive message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// Is matches any *Error with the same code, so the sentinels compare by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Errorf creates an *Error with the given code and formatted message.
//
// Parameters:
//   - code: the failure class
//   - format: fmt format string
//   - args: format arguments
//
// Returns:
//   - error: the new error
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code of err. A nil error is OK, an error without a
// Code anywhere in its chain is Internal.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - Code: the failure class
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Message returns the message of the first *Error in the chain, or err.Error() otherwise.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - string: the message
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

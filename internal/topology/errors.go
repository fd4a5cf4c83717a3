package topology

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a traversal failure.
type ErrorCode string

// Error codes.
const (
	ErrCodeOpenFailure    ErrorCode = "OPEN_FAILURE"
	ErrCodeReadFailure    ErrorCode = "READ_FAILURE"
	ErrCodeCastFailure    ErrorCode = "CAST_FAILURE"
	ErrCodeCycleDetected  ErrorCode = "CYCLE_DETECTED"
	ErrCodeDepthExceeded  ErrorCode = "DEPTH_EXCEEDED"
	ErrCodeCancelled      ErrorCode = "CANCELLED"
	ErrCodeDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"
)

// Sentinel errors returned by platform implementations.
var (
	// ErrNoParts means a part has no parts in the requested direction (end of path).
	ErrNoParts = errors.New("no parts in this direction")
	// ErrNotConnected means a connector is not wired to a peer.
	ErrNotConnected = errors.New("connector is not connected")
	// ErrNoInterface means a part does not implement the requested control.
	ErrNoInterface = errors.New("interface not supported")
	// ErrNoDescription means the platform has no description for a property key.
	ErrNoDescription = errors.New("no description for property key")
)

// Error is a traversal failure with its location.
type Error struct {
	Code     ErrorCode
	Op       string
	Location string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Op)
	if e.Location != "" {
		msg += " at " + e.Location
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode reports whether the error carries the given code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

func newError(code ErrorCode, op, location string, cause error) *Error {
	return &Error{Code: code, Op: op, Location: location, Cause: cause}
}

// IsCode reports whether err (or anything it wraps) is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == code
}

// Diagnostic is a recoverable failure recorded inline in a report.
type Diagnostic struct {
	Code     ErrorCode `json:"code" yaml:"code"`
	Op       string    `json:"op" yaml:"op"`
	Location string    `json:"location,omitempty" yaml:"location,omitempty"`
	Message  string    `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Location != "" {
		return fmt.Sprintf("[%s] %s at %s: %s", d.Code, d.Op, d.Location, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Op, d.Message)
}

// Diagnose converts an error into a Diagnostic. Errors that are not *Error become read failures.
func Diagnose(err error) Diagnostic {
	var te *Error
	if errors.As(err, &te) {
		d := Diagnostic{Code: te.Code, Op: te.Op, Location: te.Location}
		if te.Cause != nil {
			d.Message = te.Cause.Error()
		} else {
			d.Message = string(te.Code)
		}
		return d
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Diagnostic{Code: ErrCodeCancelled, Op: "walk", Message: err.Error()}
	}
	return Diagnostic{Code: ErrCodeReadFailure, Op: "read", Message: err.Error()}
}

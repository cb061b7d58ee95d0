// Package errors defines the stable error code system for qbdtest.
package errors

import (
	"errors"
	"fmt"
	"io"
)

// Code is a stable error code string.
type Code string

// Error codes. Stable public contract: scripts and the UI match on these.
const (
	EUsage         Code = "E_USAGE"
	EInvalidConfig Code = "E_INVALID_CONFIG"

	// Broker / IPC error codes
	ENotConnected      Code = "E_NOT_CONNECTED"      // QuickBooks not running or company file closed
	ENotAuthorized     Code = "E_NOT_AUTHORIZED"     // integration access denied by the company file
	EConnectionLost    Code = "E_CONNECTION_LOST"    // live handle went away mid-session
	ETimeout           Code = "E_TIMEOUT"            // caller-local IPC timeout elapsed
	EBrokerUnavailable Code = "E_BROKER_UNAVAILABLE" // broker endpoint unreachable after redial attempts
	EBrokerStopped     Code = "E_BROKER_STOPPED"     // broker shut down with the request still queued
	EBrokerRunning     Code = "E_BROKER_RUNNING"     // another broker instance already binds the endpoint

	// Query/command error codes
	EParse    Code = "E_PARSE"     // malformed or unexpected response structure
	ENotFound Code = "E_NOT_FOUND" // remote record does not exist
	ERemote   Code = "E_REMOTE"    // external system answered with a non-zero status

	// Session error codes
	ECorruptState  Code = "E_CORRUPT_STATE"  // session document failed integrity checks on restore
	EPersistFailed Code = "E_PERSIST_FAILED" // session file could not be written

	// Verification error codes
	ECheckFailure Code = "E_CHECK_FAILURE" // a verification check failed (not an engine failure)

	EInternal Code = "E_INTERNAL"
)

// Error is the standard error type for qbdtest errors.
type Error struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string // optional structured context
}

// Error returns the stable error format: "CODE: message".
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NewWithDetails creates a new Error with code, message, and details.
// Details map is defensively copied (nil if empty).
func NewWithDetails(code Code, msg string, details map[string]string) error {
	return &Error{Code: code, Msg: msg, Details: copyDetails(details)}
}

// Wrap creates a new Error wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &Error{Code: code, Msg: msg, Cause: err}
}

// GetCode extracts the error code from an error, or empty string if not an Error.
func GetCode(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsCode reports whether err is or wraps an Error with the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// AsError returns (*Error, true) if err is or wraps an Error.
func AsError(err error) (*Error, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// copyDetails returns a defensive copy of the details map, or nil if empty/nil.
func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// ExitCode returns the appropriate exit code for an error.
// Returns 0 if err is nil, 2 for E_USAGE, 1 for all other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if GetCode(err) == EUsage {
		return 2
	}
	return 1
}

// Print writes the error to w in the stable stderr format:
//
//	error_code: <CODE>
//	<message>
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	var qe *Error
	if errors.As(err, &qe) {
		_, _ = fmt.Fprintf(w, "error_code: %s\n", qe.Code)
		_, _ = fmt.Fprintln(w, qe.Msg)
	} else {
		// Fallback for non-Error errors (should not happen in practice)
		_, _ = fmt.Fprintln(w, err.Error())
	}
}

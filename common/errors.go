// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
// These can be checked with errors.Is() for proper error handling.
var (
	// Taxonomy roots, matched by the typed errors below.
	ErrValidation = errors.New("validation error")
	ErrIO         = errors.New("persistence error")
	ErrProcess    = errors.New("client process error")

	// Controller errors.
	ErrShuttingDown = errors.New("controller is shutting down")
	ErrNotStarted   = errors.New("controller not started")

	// Process errors.
	ErrNotRunning    = errors.New("client process not running")
	ErrNoClient      = errors.New("client command not configured")
	ErrStopTimedOut  = errors.New("client process did not exit in time")
	ErrUnexpectedEnd = errors.New("client process exited unexpectedly")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrDecryption          = errors.New("decryption error")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")
)

// ValidationError reports a rejected intent or malformed configuration entry.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IOError reports a persistence read or write failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is matches ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// ProcessErrorKind classifies client process failures.
type ProcessErrorKind int

const (
	// KindSpawn means the client could not be started.
	KindSpawn ProcessErrorKind = iota
	// KindExit means the client exited while it was expected to run.
	KindExit
	// KindTerminate means the client could not be stopped in time.
	KindTerminate
)

// String returns the string representation of the kind.
func (k ProcessErrorKind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindExit:
		return "exit"
	case KindTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// ProcessError reports a client process fault. It is delivered
// asynchronously for spawn and exit faults.
type ProcessError struct {
	Kind  ProcessErrorKind
	RunID string
	Label string
	Err   error
	// Output holds the last lines the client wrote before failing.
	Output []string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("client %s failed", e.Kind)
	if e.Label != "" {
		msg = fmt.Sprintf("client %s failed for %q", e.Kind, e.Label)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Is matches ErrProcess.
func (e *ProcessError) Is(target error) bool {
	return target == ErrProcess
}

// Details renders the error with the captured client output, for display.
func (e *ProcessError) Details() string {
	if len(e.Output) == 0 {
		return e.Error()
	}
	return e.Error() + "\n" + strings.Join(e.Output, "\n")
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

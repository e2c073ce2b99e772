// Package apperrors defines the typed error kinds shared across the session
// manager core. Every component that rejects a request returns one of these
// kinds so callers (RPC adapters, the scheduler, tests) can branch on Kind
// instead of sniffing error strings.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure. See spec §7.
type Kind string

const (
	NotFound      Kind = "NOT_FOUND"
	InvalidConfig Kind = "INVALID_CONFIG"
	InvalidState  Kind = "INVALID_STATE"
	Internal      Kind = "INTERNAL"
	Network       Kind = "NETWORK"
	Storage       Kind = "STORAGE"
	Uninitialized Kind = "UNINITIALIZED"
)

// Error is the single error type used throughout the core. It carries a
// Kind, a human-readable message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewNotFound reports a missing session, task or executor by id.
func NewNotFound(id string) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("<%s> not found", id)}
}

// NewInvalidConfig reports a malformed or incomplete FlameContext.
func NewInvalidConfig(msg string) *Error {
	return &Error{Kind: InvalidConfig, Message: msg}
}

// NewInvalidState reports a verb that is not legal in the target's current
// state (e.g. a second complete_task on an already-Succeed task).
func NewInvalidState(msg string) *Error {
	return &Error{Kind: InvalidState, Message: msg}
}

// NewInternal wraps an unexpected failure (lock poisoning, inconsistent
// index, engine I/O failure) that is fatal to the request but not to the
// process.
func NewInternal(msg string, cause error) *Error {
	return &Error{Kind: Internal, Message: msg, Cause: cause}
}

// NewNetwork reports a transport-level failure.
func NewNetwork(msg string, cause error) *Error {
	return &Error{Kind: Network, Message: msg, Cause: cause}
}

// NewStorage reports an engine/backing-store failure.
func NewStorage(msg string, cause error) *Error {
	return &Error{Kind: Storage, Message: msg, Cause: cause}
}

// NewUninitialized reports use of a component before its required setup
// step (e.g. a Storage that was never handed an Engine).
func NewUninitialized(msg string) *Error {
	return &Error{Kind: Uninitialized, Message: msg}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

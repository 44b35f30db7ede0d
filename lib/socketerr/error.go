// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socketerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure in the command socket subsystem.
type Kind string

const (
	// KindBindFailed means the listening socket could not be created:
	// the address is in use, the path is inaccessible, or the manager
	// is not in a startable state.
	KindBindFailed Kind = "bind_failed"

	// KindPermissionDenied means a peer's credentials could not be
	// read or are not in the allow-list.
	KindPermissionDenied Kind = "permission_denied"

	// KindMalformedInput means a request or response could not be
	// parsed: unterminated quotes, a trailing backslash, a response
	// without its delimiters, an oversized payload.
	KindMalformedInput Kind = "malformed_input"

	// KindIOFailure means a read, write, or dial on a connection
	// failed.
	KindIOFailure Kind = "io_failure"

	// KindRunnerFault means the command runner failed to produce an
	// exit code (as opposed to producing a nonzero one).
	KindRunnerFault Kind = "runner_fault"
)

// Error is a classified failure. Context is the human-readable
// description of what was being done; Err is the underlying cause and
// may be nil.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

// Error formats as "context: cause", or just the context when there
// is no cause. The kind is not included; it travels separately.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Context
	}
	if e.Context == "" {
		return e.Err.Error()
	}
	return e.Context + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...), Err: cause}
}

// BindFailed creates a bind failure.
func BindFailed(cause error, format string, args ...any) *Error {
	return New(KindBindFailed, cause, format, args...)
}

// PermissionDenied creates a peer authorization failure.
func PermissionDenied(cause error, format string, args ...any) *Error {
	return New(KindPermissionDenied, cause, format, args...)
}

// MalformedInput creates a parse failure.
func MalformedInput(cause error, format string, args ...any) *Error {
	return New(KindMalformedInput, cause, format, args...)
}

// IOFailure creates a connection I/O failure.
func IOFailure(cause error, format string, args ...any) *Error {
	return New(KindIOFailure, cause, format, args...)
}

// RunnerFault creates a command runner failure.
func RunnerFault(cause error, format string, args ...any) *Error {
	return New(KindRunnerFault, cause, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or the
// empty Kind if there is none.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

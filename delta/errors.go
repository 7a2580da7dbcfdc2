// Package delta defines the tree-delta editor protocol: the depth-first,
// streaming description of a change to a versioned tree that every other
// component in svncore (working copy, repository, sync engine) produces or
// consumes. See spec §4.1.
package delta

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a stable error category. Messages are informational;
// callers should match on Kind, never on Message text.
type Kind string

const (
	KindOutOfDate               Kind = "out-of-date"
	KindConflict                Kind = "conflict"
	KindUnversionedPath         Kind = "unversioned-path"
	KindNotFound                Kind = "not-found"
	KindInconsistentEOL         Kind = "inconsistent-eol"
	KindUnknownEOLStyle         Kind = "unknown-eol-style"
	KindUnsupportedFeature      Kind = "unsupported-feature"
	KindCancelled               Kind = "cancelled"
	KindBadChecksum              Kind = "bad-checksum"
	KindPartialReplayUnsupported Kind = "partial-replay-unsupported"
	KindArgParseError           Kind = "arg-parse-error"
	KindTxnOutOfDate            Kind = "txn-out-of-date"
	KindAlreadyInitialized      Kind = "already-initialized"
	KindProtocolViolation       Kind = "protocol-violation"
)

// Error is a typed error with an optional cause chain. The cause is
// captured via github.com/pkg/errors so callers can still unwrap / print a
// stack trace during debugging without every call site needing to know
// about it.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause chain to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error with no cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error from an existing error, preserving it as the
// cause chain (via pkg/errors, so a stack trace is captured at the
// innermost wrap point).
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Cancelled is the distinguished cancellation error kind (spec §4.2, §5).
func Cancelled() *Error { return New(KindCancelled, "operation cancelled") }

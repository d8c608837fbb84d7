package core

import (
	"errors"
	"fmt"
)

// ErrStaleStatus is returned by a conditional status write whose expected
// prior status no longer matches the stored one. Callers decide whether the
// race loser is a conflict or an idempotent no-op.
var ErrStaleStatus = errors.New("stale status precondition")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UnauthorizedError reports a request with no resolvable identity.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string { return e.Msg }

// ForbiddenError reports an identity that is not allowed to act on the
// resource.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// NotFoundError reports a missing order or payment.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// ConflictError reports an operation against a record that is not in an
// eligible state (already processed, already refunded, concurrent writer
// won).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// SignatureMismatchError is kept distinct from ValidationError: a failed
// signature check is a security event and is logged and counted separately.
type SignatureMismatchError struct {
	SessionID string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("notification signature mismatch for session %s", e.SessionID)
}

// UpstreamError reports a gateway call that returned a non-success status or
// a body that could not be parsed. RawBody is retained for audit; it never
// contains credentials.
type UpstreamError struct {
	Operation  string
	StatusCode int
	RawBody    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway %s failed: status %d", e.Operation, e.StatusCode)
}

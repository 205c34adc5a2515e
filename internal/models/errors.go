package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller input. Both wrap ErrInvalidInput.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrInvalidInput)
	ErrInvalidDepth   = fmt.Errorf("%w: max depth must be at least 1", ErrInvalidInput)
)

// Sentinel errors for the remote ledger API.
//
// Transient errors are retried by the ledger client; once retries run out they
// surface wrapped in ErrRemoteUnavailable. Fatal errors are never retried.
var (
	ErrRemoteTransient   = errors.New("remote ledger temporarily unavailable")
	ErrRateLimited       = fmt.Errorf("%w: rate limited", ErrRemoteTransient)
	ErrRemoteUnavailable = errors.New("remote ledger unavailable after retries")
	ErrRemoteFatal       = errors.New("remote ledger request failed")
	ErrUnauthorized      = fmt.Errorf("%w: authentication failed", ErrRemoteFatal)
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrRemoteFatal)
)

// Sentinel errors for background searches.
var (
	ErrSearchNotFound = errors.New("search not found")
	ErrQueueFull      = errors.New("search queue full")
)

// IsTransient reports whether err is worth retrying against the remote ledger.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteTransient) && !errors.Is(err, ErrRemoteUnavailable)
}

// ErrInvalidDirection returns an input error for an unknown traversal direction.
func ErrInvalidDirection(s string) error {
	return fmt.Errorf("%w: direction must be both, out or in, got %q", ErrInvalidInput, s)
}

// ErrFieldTooLarge returns an input error for a numeric field above its limit.
func ErrFieldTooLarge(field string, maxVal int) error {
	return fmt.Errorf("%w: %s exceeds maximum of %d", ErrInvalidInput, field, maxVal)
}

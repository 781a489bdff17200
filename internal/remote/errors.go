package remote

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the authority has no package for a code.
var ErrNotFound = errors.New("package not found")

// NetworkError is a connectivity-class failure: the request may never have
// reached the authority, or the response was lost. Network errors are
// retryable; the executor queues the action and reconciliation replays it.
type NetworkError struct {
	Op  string // operation being attempted, e.g. "submit action"
	Err error  // underlying transport error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApplicationError is a business-rule rejection from the authority: the
// request arrived, was understood, and was refused. Retrying will not help,
// so application errors are surfaced verbatim and never queued.
type ApplicationError struct {
	Op      string // operation being attempted
	Status  int    // HTTP status the authority answered with
	Message string // authority's message, surfaced to the operator as-is
}

func (e *ApplicationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s rejected (%d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s rejected (%d)", e.Op, e.Status)
}

// IsNetworkError reports whether err is a connectivity-class failure.
// Uses errors.As to handle wrapped errors.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsApplicationError reports whether err is a business-rule rejection.
// Uses errors.As to handle wrapped errors.
func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

package engine

import (
	"errors"
	"fmt"

	"github.com/juakali/scanflow/internal/model"
)

// ScanError represents a failure detected while handling a scan action.
//
// Scan errors include:
//   - Illegal transition: action not legal for the package's current state
//   - No cached data: offline with no snapshot to resolve against
//   - Queue full: the pending queue hit its bound
//   - Package not found: the authority has no such code
//   - Storage error: the persistence substrate failed
//
// ScanError carries structured fields for diagnostics and operator messages.
type ScanError struct {
	// Code identifies the error category.
	Code ScanErrorCode

	// Message is a human-readable description.
	Message string

	// PackageCode identifies the affected package, when known.
	PackageCode string

	// Action identifies the attempted action, when relevant.
	Action model.ActionType

	// Err is the underlying cause, when one exists.
	Err error
}

// ScanErrorCode categorizes scan errors.
type ScanErrorCode string

const (
	// ErrCodeIllegalTransition indicates the action is not in the resolved
	// set for the package's current state. Detected locally, never sent.
	ErrCodeIllegalTransition ScanErrorCode = "ILLEGAL_TRANSITION"

	// ErrCodeNoCachedData indicates an offline scan with an empty cache.
	ErrCodeNoCachedData ScanErrorCode = "NO_CACHED_DATA"

	// ErrCodeQueueFull indicates the pending queue refused a new action.
	ErrCodeQueueFull ScanErrorCode = "QUEUE_FULL"

	// ErrCodePackageNotFound indicates the authority has no such package.
	ErrCodePackageNotFound ScanErrorCode = "PACKAGE_NOT_FOUND"

	// ErrCodeStorage indicates the persistence substrate failed. Fatal to
	// the operation, not to the process.
	ErrCodeStorage ScanErrorCode = "STORAGE_ERROR"
)

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.PackageCode != "" && e.Action != "" {
		return fmt.Sprintf("%s: %s (package=%s, action=%s)", e.Code, e.Message, e.PackageCode, e.Action)
	}
	if e.PackageCode != "" {
		return fmt.Sprintf("%s: %s (package=%s)", e.Code, e.Message, e.PackageCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// HasScanCode reports whether err is a ScanError with the given code.
// Uses errors.As to handle wrapped errors.
func HasScanCode(err error, code ScanErrorCode) bool {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNoCachedData returns true for offline-with-empty-cache failures.
func IsNoCachedData(err error) bool {
	return HasScanCode(err, ErrCodeNoCachedData)
}

// IsQueueFull returns true when the pending queue refused a new action.
func IsQueueFull(err error) bool {
	return HasScanCode(err, ErrCodeQueueFull)
}

// NewIllegalTransitionError creates a ScanError for a locally rejected action.
func NewIllegalTransitionError(pkg string, state model.PackageState, role model.Role, action model.ActionType) *ScanError {
	return &ScanError{
		Code:        ErrCodeIllegalTransition,
		Message:     fmt.Sprintf("action not legal in state %s for role %s", state, role),
		PackageCode: pkg,
		Action:      action,
	}
}

// NewNoCachedDataError creates a ScanError for an offline cache miss.
func NewNoCachedDataError(pkg string) *ScanError {
	return &ScanError{
		Code:        ErrCodeNoCachedData,
		Message:     "no offline data for package",
		PackageCode: pkg,
	}
}

// NewQueueFullError creates a ScanError for a pending queue at its bound.
func NewQueueFullError(pkg string, limit int) *ScanError {
	return &ScanError{
		Code:        ErrCodeQueueFull,
		Message:     fmt.Sprintf("pending queue is full (limit %d)", limit),
		PackageCode: pkg,
	}
}

// NewPackageNotFoundError creates a ScanError for an unknown package code.
func NewPackageNotFoundError(pkg string) *ScanError {
	return &ScanError{
		Code:        ErrCodePackageNotFound,
		Message:     "authority has no package for code",
		PackageCode: pkg,
	}
}

// NewStorageError wraps a persistence substrate failure.
func NewStorageError(op string, err error) *ScanError {
	return &ScanError{
		Code:    ErrCodeStorage,
		Message: op,
		Err:     err,
	}
}

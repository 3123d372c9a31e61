package database

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable matches any failure of the underlying persistence layer.
	// Callers may retry; the store itself never does.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotReady is returned by every operation before Init has succeeded
	ErrNotReady = errors.New("store not initialized")
	// ErrDuplicateUser is returned when registering a username that already exists
	ErrDuplicateUser = errors.New("username already exists")
	// ErrNotFound is returned when an operation targets a row that does not exist
	ErrNotFound = errors.New("not found")
)

// StoreError wraps a driver or transaction failure for one store operation
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) true for every StoreError
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// PartitionViolation is the panic value raised when a row belonging to one user
// surfaces in another user's query. It signals a defect, not a runtime condition.
type PartitionViolation struct {
	Collection string
	Want       string
	Got        string
}

func (p PartitionViolation) Error() string {
	return fmt.Sprintf("partition violation in %s: want user %q, got %q", p.Collection, p.Want, p.Got)
}

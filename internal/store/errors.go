package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets an entry that does not exist.
var ErrNotFound = errors.New("entry not found")

// CorruptStoreError means the persisted collection could not be decoded.
// It is fatal at startup: the store refuses to run over data it cannot read.
type CorruptStoreError struct {
	Location string
	Err      error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt store %s: %v", e.Location, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// PersistenceError means a durable write did not complete. The mutation that
// triggered it has been rolled back; the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

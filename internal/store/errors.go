package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDuplicateSchedule  = errors.New("availability window already exists for pastor and date")
	ErrHistoryUnavailable = errors.New("history collection unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PersistenceError wraps a remote-store or local-database failure. Core
// mutations fail loudly with one of these; the caller must know the data did
// not persist.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

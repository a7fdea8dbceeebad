package repository

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for ledger store errors.
var (
	ErrLockTimeout = errors.New("store lock not acquired")
	ErrPersist     = errors.New("ledger persist failed")
)

// NewLockTimeout reports a bounded lock wait that expired.
func NewLockTimeout(after time.Duration) error {
	return fmt.Errorf("%w within %s", ErrLockTimeout, after)
}

// WrapLock tags a lock acquisition aborted by the caller's context.
func WrapLock(err error) error {
	return fmt.Errorf("%w: %w", ErrLockTimeout, err)
}

// WrapPersist tags a failure while writing the ledger document.
func WrapPersist(err error) error {
	return fmt.Errorf("%w: %w", ErrPersist, err)
}

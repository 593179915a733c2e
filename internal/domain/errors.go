package domain

import "errors"

// Sentinel errors shared by the catalog, ledger and reservation services.
// Callers match them with errors.Is; each one implies a different caller action.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrCapacityTooLow   = errors.New("capacity below booked total")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
)

// ErrWriteConflict is returned by stores when the atomic unit could not commit
// because of a concurrent writer (serialization failure, deadlock, lock timeout).
// Services retry it a bounded number of times and then report ErrConflict.
var ErrWriteConflict = errors.New("write conflict")

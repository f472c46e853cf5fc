package reconcile

import "errors"

var (
	// ErrStorageUnavailable means the snapshot could not be taken. No write
	// was attempted.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWriteFailed means an upsert, delete or the commit failed. The run
	// was rolled back.
	ErrWriteFailed = errors.New("write failed")

	// ErrInvalidInput means the mirror id or a record was rejected before
	// touching storage.
	ErrInvalidInput = errors.New("invalid input")
)

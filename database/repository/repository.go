package repository

import "errors"

// Store-level outcomes. Repositories wrap driver errors with these so the
// service layer can classify failures without importing a driver.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrWriteConflict signals that a concurrent transaction committed first.
	// The whole unit of work may be retried.
	ErrWriteConflict = errors.New("write conflict with concurrent transaction")

	// ErrDuplicate signals a unique index violation.
	ErrDuplicate = errors.New("duplicate key")

	// ErrMalformedDocument is returned when a stored document fails validation on decode.
	ErrMalformedDocument = errors.New("malformed document")
)

package document

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("document not found")

	// ErrConflict means the write's revision precondition no longer
	// matched the live document. It is the only signal the caller may
	// treat as "another writer won"; every other failure is transport.
	ErrConflict = errors.New("document revision conflict")
)

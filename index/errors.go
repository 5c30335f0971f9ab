package index

import "errors"

var (
	// ErrInvalidEntry indicates an entry with a missing id or empty vector.
	ErrInvalidEntry = errors.New("invalid index entry")

	// ErrInvalidQuery indicates a query with an empty vector or
	// non-positive topK.
	ErrInvalidQuery = errors.New("invalid index query")

	// ErrIndexClosed indicates an operation on a closed index.
	ErrIndexClosed = errors.New("index is closed")
)

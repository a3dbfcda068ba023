package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidConfig marks a taxonomy or lexicon that cannot be used to build an index.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNormalization marks a document the lemmatizer could not process.
	// It is scoped to one document and never invalidates a shared index.
	ErrNormalization = errors.New("normalization failed")
)

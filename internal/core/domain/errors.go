package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, chunker or store type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnreadableDocument indicates text could not be extracted from a file.
	ErrUnreadableDocument = errors.New("unreadable document")

	// Storage Errors.

	// ErrStorageUnavailable indicates the ledger or vector store cannot be opened or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStoreCorrupt indicates persisted vector data could not be read back.
	// The store recovers by reinitialising empty.
	ErrStoreCorrupt = errors.New("vector store corrupt")

	// Provider Errors.

	// ErrProviderUnavailable indicates the embedding or LLM provider failed or is not configured.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Citation Errors.

	// ErrUnknownReference indicates the model cited an identifier outside the evidence set.
	ErrUnknownReference = errors.New("unknown reference")
)

// UnknownReferenceError names the identifier that could not be resolved.
type UnknownReferenceError struct {
	ID string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q", e.ID)
}

// Is makes errors.Is(err, ErrUnknownReference) match.
func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}

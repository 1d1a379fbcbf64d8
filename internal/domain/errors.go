package domain

import "errors"

var (
	// ErrValidation signals a malformed request rejected before any pipeline work.
	ErrValidation = errors.New("validation failed")
	// ErrDocumentNotFound signals a missing contract.
	ErrDocumentNotFound = errors.New("contract not found")
	// ErrIndexUnavailable signals a connectivity-level vector index failure,
	// distinct from a query-level error (which the funnel degrades around).
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrMissingRepresentation signals a query bundle without the required
	// dense-coarse representation.
	ErrMissingRepresentation = errors.New("missing dense-coarse representation")
)

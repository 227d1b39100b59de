package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedBackend indicates an unknown store backend was configured.
	ErrUnsupportedBackend = errors.New("unsupported store backend")

	// ErrNothingToSanitize indicates the corpus handed to maintenance was
	// absent, empty, or not a sequence of records.
	ErrNothingToSanitize = errors.New("no records found to sanitize")

	// ErrReadOnly indicates the store has no write credential configured.
	// Saves become no-ops; callers that must persist can check for it.
	ErrReadOnly = errors.New("knowledge store is read-only")

	// ErrStoreUnavailable indicates the knowledge store could not be read.
	// Write paths refuse to continue so an unread corpus is never overwritten.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	// ErrOverridesDisabled indicates no override store is configured.
	ErrOverridesDisabled = errors.New("answer overrides are not enabled")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Scoring falls back to lexical similarity without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrClassifierUnavailable indicates the quality classifier could not
	// produce a verdict. Maintenance keeps the affected records.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)

package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a chunk repository is not provided.
	ErrRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSummarizerRequired is returned when a summarizer is not provided.
	ErrSummarizerRequired = errors.New("summarizer required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrNamerRequired is returned when a document namer is not provided.
	ErrNamerRequired = errors.New("document namer required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is less than 1.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNotDirectory is returned when a directory ingestion target is a file.
	ErrNotDirectory = errors.New("not a directory")
)

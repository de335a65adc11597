package storage

import (
	"context"

	"github.com/poiesic/docingest/core"
)

// DefaultListLimit is the page size used when ListOptions.Limit is not positive.
const DefaultListLimit = 100

// ListOptions controls document listing.
type ListOptions struct {
	// Limit caps the number of results. Non-positive means DefaultListLimit.
	Limit int

	// Offset skips that many matching documents.
	Offset int

	// Metadata restricts results to documents whose metadata contains every
	// key with exactly the given value.
	Metadata map[string]string
}

// Normalized returns a copy with defaults applied.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// MatchesMetadata reports whether metadata contains every pair in filter.
func MatchesMetadata(metadata, filter map[string]string) bool {
	for k, v := range filter {
		got, ok := metadata[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// ChunkRepository stores documents and their enriched chunks.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// SaveDocument creates or replaces the document row.
	// CreatedAt is set on first save and preserved afterwards; UpdatedAt is
	// refreshed on every save.
	SaveDocument(ctx context.Context, doc *core.Document) error

	// InsertChunk stores one chunk, replacing any chunk with the same
	// document ID and chunk number. Sets InsertedAt if not already set.
	InsertChunk(ctx context.Context, chunk *core.Chunk) error

	// HasDocument reports whether a document with the given ID exists.
	HasDocument(ctx context.Context, id core.ID) (bool, error)

	// CountChunks returns how many chunks are stored for the document.
	CountChunks(ctx context.Context, id core.ID) (int, error)

	// GetDocument returns the document with its chunks in index order.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.StoredDocument, error)

	// ListDocuments returns documents newest first with their chunk counts.
	ListDocuments(ctx context.Context, opts ListOptions) ([]*core.DocumentSummary, error)

	// Close releases resources held by the repository.
	Close() error
}

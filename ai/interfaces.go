package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Summary is a generated title and summary for one chunk.
type Summary struct {
	Title   string
	Summary string
}

// Summarizer produces a title and summary for a chunk of text.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns a title and summary for content, which was taken
	// from the page or file identified by url.
	Summarize(ctx context.Context, url, content string) (Summary, error)
}

// DocumentName is a generated short name and topic for a document.
type DocumentName struct {
	// DocName is a short underscore-separated identifier such as "react_hooks_doc".
	DocName string

	// TopicName is a human-readable topic label.
	TopicName string
}

// DocumentNamer names a document from samples of its text.
// Implementations must be thread-safe for concurrent use.
type DocumentNamer interface {
	// NameDocument returns a name and topic for the document the samples were
	// taken from. Samples are opening chunks in document order.
	NameDocument(ctx context.Context, samples []string) (DocumentName, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Summarizer returns the chunk title and summary service.
	Summarizer() Summarizer

	// DocumentNamer returns the document naming service.
	DocumentNamer() DocumentNamer

	// Close releases resources held by the provider and its services.
	Close() error
}

package ingestion

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
)

// Placeholders stored when title and summary generation fails.
const (
	PlaceholderTitle   = "Error processing title"
	PlaceholderSummary = "Error processing summary"
)

// Enricher fills in the title, summary, embedding and metadata of chunks.
// Chunks of a document are enriched concurrently on a bounded worker pool.
type Enricher struct {
	summarizer ai.Summarizer
	embedder   ai.Embedder
	pool       *ants.Pool
	dimension  int
	attempts   int
	baseDelay  time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewEnricher creates an enricher. Call Release when done.
func NewEnricher(summarizer ai.Summarizer, embedder ai.Embedder, opts ...Option) (*Enricher, error) {
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newEnricher(summarizer, embedder, s)
}

func newEnricher(summarizer ai.Summarizer, embedder ai.Embedder, s *settings) (*Enricher, error) {
	pool, err := ants.NewPool(s.enrichConcurrency)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		summarizer: summarizer,
		embedder:   embedder,
		pool:       pool,
		dimension:  s.dimension,
		attempts:   s.maxAttempts,
		baseDelay:  s.retryBaseDelay,
		now:        s.now,
		logger:     s.logger.With("component", "enricher"),
	}, nil
}

// Enrich enriches every chunk in place and returns the same slice, in the
// input order. Failures never abort the batch: a failed summary leaves the
// placeholder strings and a failed embedding leaves a zero vector. Chunks not
// yet started when ctx ends are left unenriched; callers check ctx.Err.
func (e *Enricher) Enrich(ctx context.Context, chunks []*core.Chunk, name ai.DocumentName) []*core.Chunk {
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			e.enrichChunk(ctx, chunk, name)
		}
		if err := e.pool.Submit(task); err != nil {
			e.logger.Warn("worker pool unavailable, enriching inline", "err", err)
			task()
		}
	}
	wg.Wait()
	return chunks
}

func (e *Enricher) enrichChunk(ctx context.Context, chunk *core.Chunk, name ai.DocumentName) {
	if ctx.Err() != nil {
		return
	}
	chunk.Title, chunk.Summary = e.summarize(ctx, chunk)
	chunk.Embedding = e.embed(ctx, chunk)
	chunk.Metadata = core.ChunkMetadata{
		Source:    name.DocName,
		Topic:     name.TopicName,
		ChunkSize: utf8.RuneCountInString(chunk.Content),
		CrawledAt: e.now(),
		URLPath:   urlPath(chunk.URL),
	}
}

func (e *Enricher) summarize(ctx context.Context, chunk *core.Chunk) (string, string) {
	var result ai.Summary
	err := RetryWithBackoff(ctx, e.logger, func() error {
		var err error
		result, err = e.summarizer.Summarize(ctx, chunk.URL, chunk.Content)
		return err
	}, e.attempts, e.baseDelay)
	if err != nil {
		e.logger.Error("error getting title and summary", "url", chunk.URL, "chunk", chunk.ChunkNumber, "err", err)
		return PlaceholderTitle, PlaceholderSummary
	}
	return result.Title, result.Summary
}

func (e *Enricher) embed(ctx context.Context, chunk *core.Chunk) []float32 {
	var vector []float32
	err := RetryWithBackoff(ctx, e.logger, func() error {
		var err error
		vector, err = e.embedder.EmbedText(ctx, chunk.Content)
		return err
	}, e.attempts, e.baseDelay)
	if err != nil {
		e.logger.Error("error getting embedding", "url", chunk.URL, "chunk", chunk.ChunkNumber, "err", err)
		return core.ZeroVector(e.dimension)
	}
	if len(vector) != e.dimension {
		e.logger.Error("embedding has wrong dimension",
			"url", chunk.URL,
			"chunk", chunk.ChunkNumber,
			"got", len(vector),
			"want", e.dimension)
		return core.ZeroVector(e.dimension)
	}
	return vector
}

// Release releases the worker pool.
func (e *Enricher) Release() {
	e.pool.Release()
}

// urlPath returns the path component of a URL, or the raw string for file
// paths that do not parse as URLs.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

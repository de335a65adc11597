package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// PersistReport counts the outcome of one document's chunk inserts.
type PersistReport struct {
	Inserted int
	Failed   int
}

// Persister writes a document row and its chunks.
// Chunk inserts run concurrently on a bounded pool and are independent: a
// failed insert is logged and counted, never rolled back.
type Persister struct {
	repo   storage.ChunkRepository
	pool   *ants.Pool
	logger *slog.Logger
}

// NewPersister creates a persister. Call Release when done.
func NewPersister(repo storage.ChunkRepository, opts ...Option) (*Persister, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newPersister(repo, s)
}

func newPersister(repo storage.ChunkRepository, s *settings) (*Persister, error) {
	pool, err := ants.NewPool(s.persistConcurrency)
	if err != nil {
		return nil, err
	}
	return &Persister{
		repo:   repo,
		pool:   pool,
		logger: s.logger.With("component", "persister"),
	}, nil
}

// Persist saves doc, then inserts every chunk. The returned error is non-nil
// only when the document row itself cannot be saved, in which case no chunk
// is attempted.
func (p *Persister) Persist(ctx context.Context, doc *core.Document, chunks []*core.Chunk) (PersistReport, error) {
	if err := p.repo.SaveDocument(ctx, doc); err != nil {
		return PersistReport{}, fmt.Errorf("save document %s: %w", doc.Source, err)
	}

	var inserted, failed atomic.Int64
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := p.repo.InsertChunk(ctx, chunk); err != nil {
				failed.Add(1)
				p.logger.Error("error inserting chunk", "url", chunk.URL, "chunk", chunk.ChunkNumber, "err", err)
				return
			}
			inserted.Add(1)
			p.logger.Debug("inserted chunk", "url", chunk.URL, "chunk", chunk.ChunkNumber)
		}
		if err := p.pool.Submit(task); err != nil {
			p.logger.Warn("worker pool unavailable, inserting inline", "err", err)
			task()
		}
	}
	wg.Wait()

	return PersistReport{Inserted: int(inserted.Load()), Failed: int(failed.Load())}, nil
}

// Release releases the worker pool.
func (p *Persister) Release() {
	p.pool.Release()
}

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/chunker"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// DocumentReport describes the ingestion of one document.
type DocumentReport struct {
	DocumentID core.ID
	Source     string
	Name       string
	Topic      string
	Chunks     int
	Inserted   int
	Failed     int

	// Skipped is set when the document was already stored or had no text.
	Skipped bool
}

// RunReport summarizes a directory ingestion.
type RunReport struct {
	Documents []DocumentReport
	Ingested  int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Pipeline runs chunk → name → enrich → persist for documents and
// directories of documents.
type Pipeline struct {
	repo      storage.ChunkRepository
	chunker   *chunker.Chunker
	namer     *Namer
	enricher  *Enricher
	persister *Persister
	include   []string
	now       func() time.Time
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline. Call Release when done.
func NewPipeline(repo storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	enricher, err := newEnricher(provider.Summarizer(), provider.Embedder(), s)
	if err != nil {
		return nil, err
	}
	persister, err := newPersister(repo, s)
	if err != nil {
		enricher.Release()
		return nil, err
	}

	return &Pipeline{
		repo:      repo,
		chunker:   s.chunker,
		namer:     newNamer(provider.DocumentNamer(), s),
		enricher:  enricher,
		persister: persister,
		include:   s.includePatterns,
		now:       s.now,
		logger:    s.logger.With("component", "pipeline"),
	}, nil
}

// IngestDocument ingests one document. Documents already stored with every
// chunk are skipped, so re-running over unchanged files does no model calls.
// A document left incomplete by failed chunk inserts is ingested again.
// Cancellation is returned as an error and nothing is persisted after it.
func (p *Pipeline) IngestDocument(ctx context.Context, source, text string) (DocumentReport, error) {
	id := core.DocumentIDFor(source, text)
	report := DocumentReport{DocumentID: id, Source: source}

	chunks := p.chunker.ChunkDocument(id, source, text)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		p.logger.Warn("document has no text after cleanup", "source", source)
		report.Skipped = true
		return report, nil
	}

	complete, err := p.stored(ctx, id, len(chunks))
	if err != nil {
		return report, fmt.Errorf("check %s: %w", source, err)
	}
	if complete {
		p.logger.Debug("document already ingested", "source", source, "id", id)
		report.Skipped = true
		return report, nil
	}
	for _, c := range chunks {
		p.logger.Debug("chunk", "source", source, "chunk", c.ChunkNumber, "length", len(c.Content))
	}

	name := p.namer.Name(ctx, chunks)
	report.Name, report.Topic = name.DocName, name.TopicName
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest %s: %w", source, err)
	}

	p.enricher.Enrich(ctx, chunks, name)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest %s: %w", source, err)
	}

	doc := &core.Document{
		ID:     id,
		Name:   name.DocName,
		Topic:  name.TopicName,
		Source: source,
		Metadata: map[string]string{
			core.MetaDocName:    name.DocName,
			core.MetaTopic:      name.TopicName,
			core.MetaSourcePath: source,
		},
		CreatedAt: p.now(),
	}
	persisted, err := p.persister.Persist(ctx, doc, chunks)
	if err != nil {
		return report, err
	}
	report.Inserted, report.Failed = persisted.Inserted, persisted.Failed

	p.logger.Info("ingested document",
		"source", source,
		"doc_name", name.DocName,
		"chunks", len(chunks),
		"inserted", persisted.Inserted,
		"failed", persisted.Failed)
	return report, nil
}

// stored reports whether id is stored with all want chunks.
func (p *Pipeline) stored(ctx context.Context, id core.ID, want int) (bool, error) {
	exists, err := p.repo.HasDocument(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	have, err := p.repo.CountChunks(ctx, id)
	if err != nil {
		return false, err
	}
	if have < want {
		p.logger.Info("resuming incomplete document", "id", id, "stored", have, "chunks", want)
		return false, nil
	}
	return true, nil
}

// IngestFile reads path and ingests it with the path as the source.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (DocumentReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DocumentReport{Source: path}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.IngestDocument(ctx, path, string(data))
}

// IngestDirectory ingests every file under dir matching the include patterns,
// in lexical order. A failing document does not stop the run; all failures
// are joined into the returned error. Cancellation stops the run and is
// always part of the returned error.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) (RunReport, error) {
	start := time.Now()
	var report RunReport

	files, err := p.matchFiles(dir)
	if err != nil {
		return report, err
	}
	p.logger.Info("ingesting directory", "dir", dir, "files", len(files))

	var errs []error
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		doc, err := p.IngestFile(ctx, path)
		report.Documents = append(report.Documents, doc)
		switch {
		case err != nil:
			report.Failed++
			p.logger.Error("error ingesting document", "source", path, "err", err)
			if ctx.Err() == nil {
				errs = append(errs, err)
			}
		case doc.Skipped:
			report.Skipped++
		default:
			report.Ingested++
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, fmt.Errorf("ingest %s interrupted: %w", dir, err))
	}

	report.Duration = time.Since(start)
	return report, errors.Join(errs...)
}

func (p *Pipeline) matchFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if p.Includes(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Includes reports whether the slash-separated path rel, relative to an
// ingested directory, matches an include pattern.
func (p *Pipeline) Includes(rel string) bool {
	for _, pattern := range p.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.enricher.Release()
	p.persister.Release()
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/ai/openai"
	"github.com/poiesic/docingest/config"
	"github.com/poiesic/docingest/crawl"
	"github.com/poiesic/docingest/ingestion"
	"github.com/poiesic/docingest/jobs"
	"github.com/poiesic/docingest/server"
	"github.com/poiesic/docingest/storage"
	"github.com/poiesic/docingest/storage/badger"
	"github.com/poiesic/docingest/storage/postgres"
)

// Engine wires storage, the model provider, the pipeline, the crawler and the
// job manager from one configuration.
type Engine struct {
	cfg      *config.Config
	repo     storage.ChunkRepository
	provider ai.AIProvider
	pipeline *ingestion.Pipeline
	crawler  *crawl.Crawler
	jobs     *jobs.Manager
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	repo     storage.ChunkRepository
	provider ai.AIProvider
	fetcher  crawl.PageFetcher
	onPage   crawl.PageFunc
	logger   *slog.Logger
}

// WithRepository uses repo instead of opening the configured backend.
// The engine still closes it.
func WithRepository(repo storage.ChunkRepository) EngineOption {
	return func(o *engineOptions) {
		o.repo = repo
	}
}

// WithProvider uses provider instead of the OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithFetcher replaces the HTTP page fetcher.
func WithFetcher(fetcher crawl.PageFetcher) EngineOption {
	return func(o *engineOptions) {
		o.fetcher = fetcher
	}
}

// WithCrawlProgress registers a per-page crawl callback.
func WithCrawlProgress(fn crawl.PageFunc) EngineOption {
	return func(o *engineOptions) {
		o.onPage = fn
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine builds every component described by cfg.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: options.logger}

	repo := options.repo
	if repo == nil {
		var err error
		repo, err = openRepository(ctx, cfg, options.logger)
		if err != nil {
			return nil, err
		}
	}
	e.repo = repo

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("create AI provider: %w", err)
		}
	}
	e.provider = provider

	pipeline, err := ingestion.NewPipeline(repo, provider,
		append(cfg.IngestionOptions(), ingestion.WithLogger(options.logger))...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.pipeline = pipeline

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = crawl.NewHTTPFetcher(
			crawl.WithFetchClient(&http.Client{Timeout: cfg.Crawl.FetchTimeout}),
			crawl.WithRateLimit(cfg.Crawl.RequestsPerSecond, int(cfg.Crawl.RequestsPerSecond)),
			crawl.WithFetchLogger(options.logger),
		)
	}
	crawler, err := crawl.New(fetcher,
		crawl.WithDocumentsDir(cfg.Ingestion.DocumentsDir),
		crawl.WithMaxConcurrent(cfg.Crawl.MaxConcurrent),
		crawl.WithOnPage(options.onPage),
		crawl.WithLogger(options.logger),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.crawler = crawler

	manager, err := jobs.NewManager(pipeline, crawler,
		jobs.WithDocumentsDir(cfg.Ingestion.DocumentsDir),
		jobs.WithMaxRetainedJobs(cfg.Ingestion.MaxRetainedJobs),
		jobs.WithJobTimeout(cfg.Ingestion.JobTimeout),
		jobs.WithLogger(options.logger),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.jobs = manager

	return e, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ChunkRepository, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Storage.DatabaseURL,
			postgres.WithDimension(cfg.AI.EmbeddingDimension),
			postgres.WithLogger(logger))
	default:
		return badger.NewRepository(cfg.Storage.Path)
	}
}

// Repository returns the chunk store.
func (e *Engine) Repository() storage.ChunkRepository {
	return e.repo
}

// Pipeline returns the ingestion pipeline.
func (e *Engine) Pipeline() *ingestion.Pipeline {
	return e.pipeline
}

// Crawler returns the site crawler.
func (e *Engine) Crawler() *crawl.Crawler {
	return e.crawler
}

// Jobs returns the job manager.
func (e *Engine) Jobs() *jobs.Manager {
	return e.jobs
}

// NewServer creates the HTTP API over this engine.
func (e *Engine) NewServer() *server.Server {
	return server.New(e.jobs, e.repo,
		server.WithMaxUploadBytes(e.cfg.Server.MaxUploadBytes),
		server.WithLogger(e.logger))
}

// Close waits for running jobs and releases every component.
func (e *Engine) Close() error {
	var errs []error
	if e.jobs != nil {
		if err := e.jobs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Error("error closing repository", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

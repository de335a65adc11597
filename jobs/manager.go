package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/docingest/crawl"
	"github.com/poiesic/docingest/ingestion"
)

// Ingestor ingests every document in a directory.
type Ingestor interface {
	IngestDirectory(ctx context.Context, dir string) (ingestion.RunReport, error)

	// Includes reports whether a file at rel (relative to the directory)
	// would be selected by IngestDirectory.
	Includes(rel string) bool
}

// Crawler crawls a site into the documents directory.
type Crawler interface {
	Run(ctx context.Context, base string) (crawl.Result, error)
}

var (
	_ Ingestor = (*ingestion.Pipeline)(nil)
	_ Crawler  = (*crawl.Crawler)(nil)
)

// Manager runs website and upload ingestions one at a time.
type Manager struct {
	ingestor Ingestor
	crawler  Crawler
	dir      string
	table    *Table
	timeout  time.Duration
	logger   *slog.Logger

	// pipelineMu serializes every crawl and ingestion run.
	pipelineMu sync.Mutex

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type config struct {
	dir         string
	maxRetained int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*config)

// WithDocumentsDir sets the directory uploads are saved to and ingested from.
func WithDocumentsDir(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.dir = dir
		}
	}
}

// WithMaxRetainedJobs caps the job table.
func WithMaxRetainedJobs(n int) Option {
	return func(c *config) {
		c.maxRetained = n
	}
}

// WithJobTimeout bounds each background ingestion. Zero means no limit.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewManager creates a Manager. crawler may be nil when website ingestion is
// not needed.
func NewManager(ingestor Ingestor, crawler Crawler, opts ...Option) (*Manager, error) {
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}
	cfg := config{
		dir:         crawl.DefaultDocumentsDir,
		maxRetained: MaxRetainedJobs,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	table, err := NewTable(cfg.maxRetained)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ingestor: ingestor,
		crawler:  crawler,
		dir:      cfg.dir,
		table:    table,
		timeout:  cfg.timeout,
		logger:   cfg.logger.With("component", "jobs"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// DocumentsDir returns the directory uploads are written to.
func (m *Manager) DocumentsDir() string {
	return m.dir
}

// IngestWebsite crawls url and ingests the documents directory while holding
// the pipeline lock. It blocks until both steps finish.
func (m *Manager) IngestWebsite(ctx context.Context, url string) (string, error) {
	if m.crawler == nil {
		return "", ErrCrawlerRequired
	}

	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()

	m.logger.Info("ingesting website", "url", url)
	res, err := m.crawler.Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("crawl %s: %w", url, err)
	}

	report, err := m.ingestor.IngestDirectory(ctx, m.dir)
	if err != nil {
		return "", fmt.Errorf("ingest %s: %w", m.dir, err)
	}

	return fmt.Sprintf("Crawled %d of %d pages from %s into %s. Ingested %d documents, %d unchanged.",
		res.Succeeded, res.Discovered, url, filepath.Base(res.ArtifactPath),
		report.Ingested, report.Skipped), nil
}

// SaveUpload stores an uploaded payload in the documents directory and
// returns the path written.
func (m *Manager) SaveUpload(name string, r io.Reader) (string, error) {
	return SaveUpload(m.dir, name, r)
}

// SubmitFile saves the upload, registers a queued job and ingests the
// documents directory in the background. ctx bounds only the upload itself.
// Uploads the ingestor would not select are rejected with ErrUnsupportedFile
// before anything is written.
func (m *Manager) SubmitFile(ctx context.Context, name string, r io.Reader) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if m.isClosed() {
		return Job{}, ErrManagerClosed
	}

	base, err := SanitizeFilename(name)
	if err != nil {
		return Job{}, err
	}
	if !m.ingestor.Includes(base) {
		return Job{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, base)
	}

	path, err := m.SaveUpload(base, r)
	if err != nil {
		return Job{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		if rmErr := os.Remove(path); rmErr != nil {
			m.logger.Warn("could not remove upload", "file", path, "err", rmErr)
		}
		return Job{}, ErrManagerClosed
	}

	job := m.table.Create(filepath.Base(path))
	m.logger.Info("queued ingestion job", "job_id", job.ID, "file", path)

	m.wg.Add(1)
	go m.runJob(job.ID, path)
	return job, nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) runJob(id, path string) {
	defer m.wg.Done()

	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()

	m.advance(id, StatusRunning, nil)

	err := m.ingestUpload(path)
	if err != nil {
		m.logger.Error("ingestion job failed", "job_id", id, "err", err)
		m.advance(id, StatusFailed, err)
		return
	}
	m.logger.Info("ingestion job succeeded", "job_id", id)
	m.advance(id, StatusSucceeded, nil)
}

// ingestUpload runs the directory ingestion and fails unless the run
// processed path.
func (m *Manager) ingestUpload(path string) error {
	report, err := m.ingestDirectory()
	if err != nil {
		return err
	}
	for _, doc := range report.Documents {
		if doc.Source == path {
			return nil
		}
	}
	return fmt.Errorf("%s was not ingested", filepath.Base(path))
}

func (m *Manager) ingestDirectory() (report ingestion.RunReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()

	ctx := m.ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.ingestor.IngestDirectory(ctx, m.dir)
}

func (m *Manager) advance(id string, status Status, cause error) {
	var msg string
	if cause != nil {
		msg = cause.Error()
	}
	if err := m.table.Transition(id, status, msg); err != nil {
		m.logger.Warn("could not update job status", "job_id", id, "status", status, "err", err)
	}
}

// Status returns a snapshot of the job, or ErrJobNotFound.
func (m *Manager) Status(id string) (Job, error) {
	return m.table.Get(id)
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops accepting uploads, cancels running jobs and waits for them.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}

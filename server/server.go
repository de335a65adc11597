package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/jobs"
	"github.com/poiesic/docingest/storage"
)

// DefaultMaxUploadBytes caps multipart upload bodies.
const DefaultMaxUploadBytes = 32 << 20

// JobService runs ingestions. *jobs.Manager implements it.
type JobService interface {
	IngestWebsite(ctx context.Context, url string) (string, error)
	SubmitFile(ctx context.Context, name string, r io.Reader) (jobs.Job, error)
	Status(id string) (jobs.Job, error)
}

// DocumentReader reads stored documents. Any storage.ChunkRepository implements it.
type DocumentReader interface {
	GetDocument(ctx context.Context, id core.ID) (*core.StoredDocument, error)
	ListDocuments(ctx context.Context, opts storage.ListOptions) ([]*core.DocumentSummary, error)
}

var (
	_ JobService     = (*jobs.Manager)(nil)
	_ DocumentReader = (storage.ChunkRepository)(nil)
)

// Server holds the state for the REST API server.
type Server struct {
	jobs      JobService
	docs      DocumentReader
	router    *gin.Engine
	maxUpload int64
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps upload request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server.
func New(jobSvc JobService, docs DocumentReader, opts ...Option) *Server {
	s := &Server{
		jobs:      jobSvc,
		docs:      docs,
		maxUpload: DefaultMaxUploadBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.router = r
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthCheck)

	api := s.router.Group("/api")
	api.POST("/ingest/website", s.handleIngestWebsite)
	api.POST("/ingest/file", s.handleIngestFile)
	api.GET("/ingest/jobs/:id", s.handleJobStatus)
	api.GET("/documents", s.handleListDocuments)
	api.GET("/documents/:id", s.handleGetDocument)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func writeError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"error": err.Error()})
}

package ingestion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/poiesic/docingest/chunker"
	"github.com/poiesic/docingest/core"
)

const (
	// DefaultEnrichConcurrency caps simultaneous chunk enrichments.
	DefaultEnrichConcurrency = 8

	// DefaultPersistConcurrency caps simultaneous chunk inserts.
	DefaultPersistConcurrency = 8

	// DefaultRetryBaseDelay is the first backoff delay when retries are enabled.
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// DefaultIncludePatterns select the files IngestDirectory reads.
var DefaultIncludePatterns = []string{"**/*.md", "**/*.txt", "**/*.markdown"}

// settings holds the tunables shared by the enricher, namer, persister and
// pipeline. Each component reads only the fields it needs.
type settings struct {
	logger             *slog.Logger
	enrichConcurrency  int
	persistConcurrency int
	dimension          int
	maxAttempts        int
	retryBaseDelay     time.Duration
	includePatterns    []string
	chunker            *chunker.Chunker
	now                func() time.Time
}

func defaultSettings() *settings {
	return &settings{
		logger:             slog.Default(),
		enrichConcurrency:  DefaultEnrichConcurrency,
		persistConcurrency: DefaultPersistConcurrency,
		dimension:          core.DefaultEmbeddingDimension,
		maxAttempts:        1,
		retryBaseDelay:     DefaultRetryBaseDelay,
		includePatterns:    DefaultIncludePatterns,
		chunker:            chunker.New(),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func applyOptions(opts []Option) (*settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Option configures the ingestion components.
type Option func(*settings) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEnrichConcurrency sets the enrichment worker pool size.
// Values below 1 are raised to 1.
func WithEnrichConcurrency(n int) Option {
	return func(s *settings) error {
		s.enrichConcurrency = max(n, 1)
		return nil
	}
}

// WithPersistConcurrency sets the persistence worker pool size.
// Values below 1 are raised to 1.
func WithPersistConcurrency(n int) Option {
	return func(s *settings) error {
		s.persistConcurrency = max(n, 1)
		return nil
	}
}

// WithEmbeddingDimension sets the length of a valid embedding. Embeddings of
// any other length are replaced by a zero vector of this length.
func WithEmbeddingDimension(dim int) Option {
	return func(s *settings) error {
		if dim < 1 {
			return fmt.Errorf("invalid embedding dimension %d", dim)
		}
		s.dimension = dim
		return nil
	}
}

// WithRetry enables retries with exponential backoff on model calls.
// The default of one attempt means failures degrade immediately.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *settings) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = maxAttempts
		s.retryBaseDelay = baseDelay
		return nil
	}
}

// WithIncludePatterns sets the doublestar globs IngestDirectory selects,
// matched against slash-separated paths relative to the directory.
func WithIncludePatterns(patterns ...string) Option {
	return func(s *settings) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid include pattern %q", p)
			}
		}
		if len(patterns) > 0 {
			s.includePatterns = patterns
		}
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(s *settings) error {
		if c != nil {
			s.chunker = c
		}
		return nil
	}
}

// withClock overrides the timestamp source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(s *settings) error {
		s.now = now
		return nil
	}
}

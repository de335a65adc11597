// Package config loads docingest settings from YAML, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/chunker"
	"github.com/poiesic/docingest/crawl"
	"github.com/poiesic/docingest/ingestion"
	"github.com/poiesic/docingest/jobs"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config holds all configuration for docingest.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AIConfig holds model service configuration.
type AIConfig struct {
	Host                string `yaml:"host"`
	EmbeddingHost       string `yaml:"embedding_host"` // overrides host for embeddings
	ChatHost            string `yaml:"chat_host"`      // overrides host for chat
	APIKey              string `yaml:"api_key"`
	ChatModel           string `yaml:"chat_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimension  int    `yaml:"embedding_dimension"`
	SummaryContextChars int    `yaml:"summary_context_chars"`
}

// StorageConfig selects and configures the chunk store.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // "badger" or "postgres"
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

// IngestionConfig holds pipeline tunables.
type IngestionConfig struct {
	DocumentsDir       string        `yaml:"documents_dir"`
	Includes           []string      `yaml:"includes"`
	ChunkSize          int           `yaml:"chunk_size"`
	EnrichConcurrency  int           `yaml:"enrich_concurrency"`
	PersistConcurrency int           `yaml:"persist_concurrency"`
	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`
	MaxRetainedJobs    int           `yaml:"max_retained_jobs"`
	JobTimeout         time.Duration `yaml:"job_timeout"`
}

// CrawlConfig holds crawler tunables.
type CrawlConfig struct {
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Host:                ai.DefaultHost,
			ChatModel:           ai.DefaultChatModel,
			EmbeddingModel:      ai.DefaultEmbeddingModel,
			EmbeddingDimension:  ai.DefaultEmbeddingDimension,
			SummaryContextChars: ai.DefaultSummaryContextChars,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "docingest.db",
		},
		Ingestion: IngestionConfig{
			DocumentsDir:       crawl.DefaultDocumentsDir,
			Includes:           ingestion.DefaultIncludePatterns,
			ChunkSize:          chunker.DefaultChunkSize,
			EnrichConcurrency:  ingestion.DefaultEnrichConcurrency,
			PersistConcurrency: ingestion.DefaultPersistConcurrency,
			RetryAttempts:      1,
			RetryBaseDelay:     ingestion.DefaultRetryBaseDelay,
			MaxRetainedJobs:    jobs.MaxRetainedJobs,
		},
		Crawl: CrawlConfig{
			MaxConcurrent:     crawl.DefaultMaxConcurrent,
			RequestsPerSecond: crawl.DefaultRequestsPerSecond,
			FetchTimeout:      crawl.DefaultFetchTimeout,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults. A
// missing file, or an empty path, yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("OPENAI_API_KEY", &c.AI.APIKey)
	str("OPENAI_BASE_URL", &c.AI.Host)
	str("LLM_MODEL", &c.AI.ChatModel)
	str("EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("DOCINGEST_STORAGE", &c.Storage.Backend)
	str("DOCINGEST_STORAGE_PATH", &c.Storage.Path)
	str("DOCINGEST_DOCUMENTS_DIR", &c.Ingestion.DocumentsDir)
	str("DOCINGEST_ADDR", &c.Server.Addr)
	str("DOCINGEST_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("EMBEDDING_DIMENSION"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EMBEDDING_DIMENSION: %w", err)
		}
		c.AI.EmbeddingDimension = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for the badger backend")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: storage.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Ingestion.DocumentsDir == "" {
		return errors.New("config: ingestion.documents_dir is required")
	}
	if c.Ingestion.RetryAttempts < 1 {
		return errors.New("config: ingestion.retry_attempts must be at least 1")
	}
	return c.AIConfig().Validate()
}

// AIConfig builds the model service configuration.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithEmbeddingDimension(c.AI.EmbeddingDimension),
		ai.WithSummaryContextChars(c.AI.SummaryContextChars),
	)
	if c.AI.EmbeddingHost != "" {
		cfg.EmbeddingHost = c.AI.EmbeddingHost
	}
	if c.AI.ChatHost != "" {
		cfg.ChatHost = c.AI.ChatHost
	}
	return cfg
}

// IngestionOptions returns the pipeline options for this configuration.
func (c *Config) IngestionOptions() []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithEmbeddingDimension(c.AI.EmbeddingDimension),
		ingestion.WithRetry(c.Ingestion.RetryAttempts, c.Ingestion.RetryBaseDelay),
		ingestion.WithChunker(chunker.New(chunker.WithChunkSize(c.Ingestion.ChunkSize))),
	}
	if c.Ingestion.EnrichConcurrency > 0 {
		opts = append(opts, ingestion.WithEnrichConcurrency(c.Ingestion.EnrichConcurrency))
	}
	if c.Ingestion.PersistConcurrency > 0 {
		opts = append(opts, ingestion.WithPersistConcurrency(c.Ingestion.PersistConcurrency))
	}
	if len(c.Ingestion.Includes) > 0 {
		opts = append(opts, ingestion.WithIncludePatterns(c.Ingestion.Includes...))
	}
	return opts
}

package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

//go:embed schema.sql
var schemaTemplate string

// Store implements storage.ChunkRepository on a pgx connection pool.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

var _ storage.ChunkRepository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithDimension sets the embedding column width. Default is 1536.
func WithDimension(dim int) Option {
	return func(s *Store) error {
		if dim < 1 {
			return fmt.Errorf("invalid embedding dimension %d", dim)
		}
		s.dimension = dim
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// Open applies the schema and connects a pool to databaseURL.
func Open(ctx context.Context, databaseURL string, opts ...Option) (storage.ChunkRepository, error) {
	return open(ctx, databaseURL, opts...)
}

func open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	s := &Store{
		dimension: core.DefaultEmbeddingDimension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "postgres-store")

	// the vector type must exist before the pool registers it
	if err := migrate(ctx, databaseURL, s.dimension); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s.pool = pool
	s.logger.Info("postgres store ready", "dimension", s.dimension)
	return s, nil
}

func migrate(ctx context.Context, databaseURL string, dimension int) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	schema := strings.ReplaceAll(schemaTemplate, "{{dimension}}", strconv.Itoa(dimension))
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveDocument upserts the document row.
func (s *Store) SaveDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	meta, err := json.Marshal(nonNil(doc.Metadata))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	now := time.Now().UTC()
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	const q = `
INSERT INTO documents (id, name, topic, source, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    topic = EXCLUDED.topic,
    source = EXCLUDED.source,
    metadata = EXCLUDED.metadata,
    updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`

	err = s.pool.QueryRow(ctx, q,
		int64(doc.ID), doc.Name, doc.Topic, doc.Source, string(meta), createdAt, now,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// InsertChunk upserts one row into website_pages.
func (s *Store) InsertChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(chunk.Embedding), s.dimension)
	}
	if chunk.InsertedAt.IsZero() {
		chunk.InsertedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	const q = `
INSERT INTO website_pages (document_id, url, chunk_number, title, summary, content, metadata, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
ON CONFLICT (document_id, chunk_number) DO UPDATE SET
    url = EXCLUDED.url,
    title = EXCLUDED.title,
    summary = EXCLUDED.summary,
    content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

	_, err = s.pool.Exec(ctx, q,
		int64(chunk.DocumentID), chunk.URL, chunk.ChunkNumber, chunk.Title, chunk.Summary,
		chunk.Content, string(meta), pgvector.NewVector(chunk.Embedding), chunk.InsertedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chunk %d of %s: %w", chunk.ChunkNumber, chunk.DocumentID, err)
	}
	return nil
}

// HasDocument reports whether a documents row exists.
func (s *Store) HasDocument(ctx context.Context, id core.ID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, int64(id)).Scan(&exists)
	return exists, err
}

// CountChunks counts the website_pages rows of a document.
func (s *Store) CountChunks(ctx context.Context, id core.ID) (int, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM website_pages WHERE document_id = $1`, int64(id)).Scan(&count)
	return int(count), err
}

// GetDocument loads a document and its chunks in index order.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.StoredDocument, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, topic, source, metadata, created_at, updated_at
FROM documents WHERE id = $1`, int64(id))

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT url, chunk_number, title, summary, content, metadata, embedding, created_at
FROM website_pages WHERE document_id = $1
ORDER BY chunk_number`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &core.StoredDocument{Document: *doc}
	for rows.Next() {
		chunk := &core.Chunk{DocumentID: id}
		var meta []byte
		var vec pgvector.Vector
		if err := rows.Scan(&chunk.URL, &chunk.ChunkNumber, &chunk.Title, &chunk.Summary,
			&chunk.Content, &meta, &vec, &chunk.InsertedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		chunk.Embedding = vec.Slice()
		result.Chunks = append(result.Chunks, chunk)
	}
	return result, rows.Err()
}

// ListDocuments returns documents newest first with derived chunk counts.
func (s *Store) ListDocuments(ctx context.Context, opts storage.ListOptions) ([]*core.DocumentSummary, error) {
	opts = opts.Normalized()

	filter, err := json.Marshal(nonNil(opts.Metadata))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT d.id, d.name, d.topic, d.source, d.metadata, d.created_at, d.updated_at,
       (SELECT count(*) FROM website_pages p WHERE p.document_id = d.id) AS chunk_count
FROM documents d
WHERE d.metadata @> $1::jsonb
ORDER BY d.created_at DESC, d.id DESC
LIMIT $2 OFFSET $3`, string(filter), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.DocumentSummary
	for rows.Next() {
		var count int64
		doc, err := scanDocument(rows, &count)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.DocumentSummary{Document: *doc, ChunkCount: int(count)})
	}
	return results, rows.Err()
}

func scanDocument(row pgx.Row, extra ...any) (*core.Document, error) {
	var (
		id   int64
		meta []byte
		doc  core.Document
	)
	dest := append([]any{&id, &doc.Name, &doc.Topic, &doc.Source, &meta, &doc.CreatedAt, &doc.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	doc.ID = core.ID(uint64(id))
	if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return &doc, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DefaultEmbeddingDimension is the vector length produced by text-embedding-3-small.
const DefaultEmbeddingDimension = 1536

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentIDFor derives the ID of a document from its source and full text.
// Re-ingesting unchanged content from the same source yields the same ID.
func DocumentIDFor(source, text string) ID {
	return IDFromContent(source + "\x00" + text)
}

// String formats the ID as a fixed-width hex string.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID parses the hex form produced by String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(v), nil
}

// ChunkMetadata is attached to every stored chunk. Keys match the row store's
// metadata column.
type ChunkMetadata struct {
	Source    string    `json:"source"` // document name shared by every chunk of a document
	Topic     string    `json:"topic"`
	ChunkSize int       `json:"chunk_size"`
	CrawledAt time.Time `json:"crawled_at"`
	URLPath   string    `json:"url_path"`
}

// Chunk is a contiguous slice of a document's text.
// Title, Summary and Embedding stay empty until the chunk is enriched.
type Chunk struct {
	DocumentID  ID            `json:"document_id"`
	URL         string        `json:"url"`
	ChunkNumber int           `json:"chunk_number"`
	Title       string        `json:"title"`
	Summary     string        `json:"summary"`
	Content     string        `json:"content"`
	Metadata    ChunkMetadata `json:"metadata"`
	Embedding   []float32     `json:"embedding,omitempty"`
	InsertedAt  time.Time     `json:"inserted_at"`
}

// Document is the unit of ingestion: one crawl artifact or one uploaded file.
type Document struct {
	ID        ID                `json:"id"`
	Name      string            `json:"name"`
	Topic     string            `json:"topic"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Metadata keys written on every document row.
const (
	MetaDocName    = "doc_name"
	MetaTopic      = "topic"
	MetaSourcePath = "source_path"
)

// StoredDocument is a document read back from storage with its chunks in index order.
type StoredDocument struct {
	Document
	Chunks []*Chunk `json:"chunks"`
}

// Content concatenates chunk contents in index order.
func (d *StoredDocument) Content() string {
	var size int
	for _, c := range d.Chunks {
		size += len(c.Content) + 2
	}
	buf := make([]byte, 0, size)
	for i, c := range d.Chunks {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, c.Content...)
	}
	return string(buf)
}

// DocumentSummary is a listing entry with a derived chunk count.
type DocumentSummary struct {
	Document
	ChunkCount int `json:"chunk_count"`
}

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// Repository implements storage.ChunkRepository for BadgerDB.
type Repository struct {
	backend   *Backend
	ownsStore bool
}

var _ storage.ChunkRepository = (*Repository)(nil)

// NewRepository opens a BadgerDB store at path and returns a repository
// that owns it. Closing the repository closes the store.
func NewRepository(path string) (storage.ChunkRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &Repository{backend: backend, ownsStore: true}, nil
}

// NewChunkRepository creates a repository on an existing backend.
// The caller keeps ownership of the backend.
func NewChunkRepository(backend *Backend) *Repository {
	return &Repository{backend: backend}
}

// Close closes the backend if the repository opened it.
func (r *Repository) Close() error {
	if r.ownsStore {
		return r.backend.Close()
	}
	return nil
}

// SaveDocument creates or replaces a document row.
func (r *Repository) SaveDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		key := makeDocumentKey(doc.ID)

		existing, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			doc.CreatedAt = existing.CreatedAt
		} else if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Set(makeDocumentDateKey(doc.CreatedAt, doc.ID), storage.MarshalID(doc.ID))
	})
}

// InsertChunk stores a chunk under its document ID and chunk number.
func (r *Repository) InsertChunk(ctx context.Context, chunk *core.Chunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if chunk.InsertedAt.IsZero() {
		chunk.InsertedAt = time.Now().UTC()
	}

	value, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeChunkKey(chunk.DocumentID, chunk.ChunkNumber), value)
	})
}

// HasDocument reports whether the document row exists.
func (r *Repository) HasDocument(ctx context.Context, id core.ID) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDocumentKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// CountChunks counts the chunk keys stored under the document.
func (r *Repository) CountChunks(ctx context.Context, id core.ID) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = countChunks(tx, id)
		return err
	}, false)
	return count, err
}

// GetDocument retrieves a document with its chunks in index order.
func (r *Repository) GetDocument(ctx context.Context, id core.ID) (*core.StoredDocument, error) {
	var result *core.StoredDocument
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		chunks, err := readChunks(tx, id)
		if err != nil {
			return err
		}
		result = &core.StoredDocument{Document: *doc, Chunks: chunks}
		return nil
	}, false)
	return result, err
}

// ListDocuments walks the creation date index newest first, applying the
// metadata filter before pagination.
func (r *Repository) ListDocuments(ctx context.Context, opts storage.ListOptions) ([]*core.DocumentSummary, error) {
	opts = opts.Normalized()

	var results []*core.DocumentSummary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		prefix := []byte(documentDatePrefix)
		skipped := 0
		for iter.Seek(maxDocumentDateKey()); iter.ValidForPrefix(prefix) && len(results) < opts.Limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var docID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			doc, err := readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc == nil || !storage.MatchesMetadata(doc.Metadata, opts.Metadata) {
				continue
			}
			if skipped < opts.Offset {
				skipped++
				continue
			}

			count, err := countChunks(tx, docID)
			if err != nil {
				return err
			}
			results = append(results, &core.DocumentSummary{Document: *doc, ChunkCount: count})
		}
		return nil
	}, false)

	return results, err
}

func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

func readChunks(tx *badger.Txn, docID core.ID) ([]*core.Chunk, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(docID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var chunks []*core.Chunk
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.Chunk
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		}); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func countChunks(tx *badger.Txn, docID core.ID) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(docID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count, nil
}

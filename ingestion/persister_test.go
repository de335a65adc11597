package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
	"github.com/poiesic/docingest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepository fails inserts for chosen chunk numbers and delegates the rest.
type flakyRepository struct {
	storage.ChunkRepository
	failChunks map[int]bool
	saveErr    error

	mu       sync.Mutex
	attempts []int
}

func (r *flakyRepository) SaveDocument(ctx context.Context, doc *core.Document) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.ChunkRepository.SaveDocument(ctx, doc)
}

func (r *flakyRepository) InsertChunk(ctx context.Context, chunk *core.Chunk) error {
	r.mu.Lock()
	r.attempts = append(r.attempts, chunk.ChunkNumber)
	fail := r.failChunks[chunk.ChunkNumber]
	r.mu.Unlock()
	if fail {
		return errors.New("constraint violation")
	}
	return r.ChunkRepository.InsertChunk(ctx, chunk)
}

func newMemoryRepo(t *testing.T) storage.ChunkRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func testDoc() *core.Document {
	return &core.Document{ID: 1, Name: "n_doc", Topic: "n", Source: "documents/n.md"}
}

func TestPersist_InsertsAllChunks(t *testing.T) {
	repo := newMemoryRepo(t)
	p, err := NewPersister(repo, WithPersistConcurrency(4))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.Persist(context.Background(), testDoc(), testChunks(20, "documents/n.md"))
	require.NoError(t, err)
	assert.Equal(t, PersistReport{Inserted: 20}, report)

	stored, err := repo.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, stored.Chunks, 20)
}

func TestPersist_FailedInsertDoesNotAffectSiblings(t *testing.T) {
	repo := &flakyRepository{ChunkRepository: newMemoryRepo(t), failChunks: map[int]bool{2: true, 5: true}}
	p, err := NewPersister(repo)
	require.NoError(t, err)
	defer p.Release()

	report, err := p.Persist(context.Background(), testDoc(), testChunks(8, "u"))
	require.NoError(t, err)
	assert.Equal(t, PersistReport{Inserted: 6, Failed: 2}, report)
	assert.Len(t, repo.attempts, 8, "every chunk is attempted")

	stored, err := repo.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored.Chunks, 6)
	for _, c := range stored.Chunks {
		assert.NotContains(t, []int{2, 5}, c.ChunkNumber)
	}
}

func TestPersist_DocumentSaveFailure(t *testing.T) {
	boom := errors.New("disk full")
	repo := &flakyRepository{ChunkRepository: newMemoryRepo(t), saveErr: boom}
	p, err := NewPersister(repo)
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Persist(context.Background(), testDoc(), testChunks(3, "u"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, repo.attempts)
}

func TestNewPersister_Required(t *testing.T) {
	_, err := NewPersister(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

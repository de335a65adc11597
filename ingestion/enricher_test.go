package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/ai/mock"
	"github.com/poiesic/docingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func testChunks(n int, url string) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			DocumentID:  1,
			URL:         url,
			ChunkNumber: i,
			Content:     strings.Repeat("x", i+1),
		}
	}
	return chunks
}

func newTestEnricher(t *testing.T, s ai.Summarizer, e ai.Embedder, opts ...Option) *Enricher {
	t.Helper()
	opts = append([]Option{withClock(fixedClock)}, opts...)
	enricher, err := NewEnricher(s, e, opts...)
	require.NoError(t, err)
	t.Cleanup(enricher.Release)
	return enricher
}

func TestNewEnricher_RequiresServices(t *testing.T) {
	_, err := NewEnricher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrSummarizerRequired)

	_, err = NewEnricher(mock.NewMockSummarizer(), nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestEnrich_FillsFieldsAndPreservesOrder(t *testing.T) {
	summarizer := mock.NewMockSummarizer().WithSummarizeFunc(func(_ context.Context, url, content string) (ai.Summary, error) {
		return ai.Summary{Title: "t" + content, Summary: "s" + url}, nil
	})
	embedder := mock.NewMockEmbedder()
	enricher := newTestEnricher(t, summarizer, embedder, WithEnrichConcurrency(3))

	chunks := testChunks(10, "https://example.com/docs/intro?x=1")
	name := ai.DocumentName{DocName: "intro_doc", TopicName: "intro"}
	got := enricher.Enrich(context.Background(), chunks, name)

	require.Len(t, got, 10)
	for i, c := range got {
		assert.Equal(t, i, c.ChunkNumber)
		assert.Equal(t, "t"+c.Content, c.Title)
		assert.Equal(t, "shttps://example.com/docs/intro?x=1", c.Summary)
		assert.Len(t, c.Embedding, core.DefaultEmbeddingDimension)
		assert.Equal(t, core.ChunkMetadata{
			Source:    "intro_doc",
			Topic:     "intro",
			ChunkSize: i + 1,
			CrawledAt: fixedTime,
			URLPath:   "/docs/intro",
		}, c.Metadata)
	}
	assert.Equal(t, 10, summarizer.CallCount())
	assert.Equal(t, 10, embedder.CallCount())
}

func TestEnrich_SummaryFailureUsesPlaceholders(t *testing.T) {
	summarizer := mock.NewMockSummarizer().WithSummarizeFunc(func(_ context.Context, _, content string) (ai.Summary, error) {
		if content == "xx" {
			return ai.Summary{}, errors.New("model unavailable")
		}
		return ai.Summary{Title: "ok", Summary: "ok"}, nil
	})
	enricher := newTestEnricher(t, summarizer, mock.NewMockEmbedder())

	got := enricher.Enrich(context.Background(), testChunks(3, "u"), ai.DocumentName{})
	assert.Equal(t, "ok", got[0].Title)
	assert.Equal(t, PlaceholderTitle, got[1].Title)
	assert.Equal(t, PlaceholderSummary, got[1].Summary)
	assert.Equal(t, "ok", got[2].Title)
	assert.NotEqual(t, core.ZeroVector(0), got[1].Embedding, "embedding is independent of summary failure")
}

func TestEnrich_EmbeddingFailureUsesZeroVector(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(_ context.Context, text string) ([]float32, error) {
		if text == "x" {
			return nil, errors.New("rate limited")
		}
		v := make([]float32, core.DefaultEmbeddingDimension)
		v[0] = 1
		return v, nil
	})
	enricher := newTestEnricher(t, mock.NewMockSummarizer(), embedder)

	got := enricher.Enrich(context.Background(), testChunks(3, "u"), ai.DocumentName{})
	assert.Equal(t, core.ZeroVector(core.DefaultEmbeddingDimension), got[0].Embedding)
	assert.Equal(t, float32(1), got[1].Embedding[0])
	assert.Equal(t, float32(1), got[2].Embedding[0])
}

func TestEnrich_WrongDimensionUsesZeroVector(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	})
	enricher := newTestEnricher(t, mock.NewMockSummarizer(), embedder, WithEmbeddingDimension(8))

	got := enricher.Enrich(context.Background(), testChunks(1, "u"), ai.DocumentName{})
	assert.Equal(t, make([]float32, 8), got[0].Embedding)
}

func TestEnrich_BoundedConcurrency(t *testing.T) {
	var active, peak atomic.Int64
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return make([]float32, core.DefaultEmbeddingDimension), nil
	})
	enricher := newTestEnricher(t, mock.NewMockSummarizer(), embedder, WithEnrichConcurrency(2))

	enricher.Enrich(context.Background(), testChunks(12, "u"), ai.DocumentName{})
	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, 12, embedder.CallCount())
}

func TestEnrich_RetriesWhenEnabled(t *testing.T) {
	var calls atomic.Int64
	summarizer := mock.NewMockSummarizer().WithSummarizeFunc(func(context.Context, string, string) (ai.Summary, error) {
		if calls.Add(1) == 1 {
			return ai.Summary{}, errors.New("transient")
		}
		return ai.Summary{Title: "second try", Summary: "ok"}, nil
	})
	enricher := newTestEnricher(t, summarizer, mock.NewMockEmbedder(), WithRetry(2, time.Millisecond))

	got := enricher.Enrich(context.Background(), testChunks(1, "u"), ai.DocumentName{})
	assert.Equal(t, "second try", got[0].Title)
	assert.EqualValues(t, 2, calls.Load())
}

func TestURLPath(t *testing.T) {
	assert.Equal(t, "/a/b", urlPath("https://example.com/a/b"))
	assert.Equal(t, "documents/report.md", urlPath("documents/report.md"))
	assert.Equal(t, "", urlPath("https://example.com"))
}

func TestEnrich_CanceledContextSkipsModelCalls(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	embedder := mock.NewMockEmbedder()
	enricher := newTestEnricher(t, summarizer, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := enricher.Enrich(ctx, testChunks(4, "u"), ai.DocumentName{DocName: "a_doc"})

	assert.Zero(t, summarizer.CallCount())
	assert.Zero(t, embedder.CallCount())
	for _, c := range got {
		assert.Empty(t, c.Title)
		assert.Nil(t, c.Embedding)
	}
}

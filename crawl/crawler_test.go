package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCrawler(t *testing.T, fetcher PageFetcher, opts ...Option) *Crawler {
	t.Helper()
	opts = append([]Option{WithDocumentsDir(t.TempDir())}, opts...)
	c, err := New(fetcher, opts...)
	require.NoError(t, err)
	return c
}

func pageURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://docs.test/page-%d", i)
	}
	return urls
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrFetcherRequired)
}

func TestCrawl_BoundsConcurrency(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.Delay = 20 * time.Millisecond
	c := newTestCrawler(t, fetcher, WithMaxConcurrent(3))

	res, err := c.Crawl(context.Background(), pageURLs(15))
	require.NoError(t, err)
	assert.Equal(t, 15, res.Discovered)
	assert.Equal(t, 15, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.LessOrEqual(t, fetcher.Peak(), 3)
	assert.Greater(t, fetcher.Peak(), 0)

	for _, opts := range fetcher.Calls() {
		assert.Equal(t, DefaultFetchOptions, opts)
	}
}

func TestCrawl_SkipsFailedPages(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.FetchFunc = func(_ context.Context, url string, _ FetchOptions) (Page, error) {
		if strings.HasSuffix(url, "-2") {
			return Page{}, errors.New("navigation timeout")
		}
		return Page{URL: url, Content: PlainText("body " + url)}, nil
	}

	var mu sync.Mutex
	progress := map[string]error{}
	c := newTestCrawler(t, fetcher, WithOnPage(func(url string, err error) {
		mu.Lock()
		progress[url] = err
		mu.Unlock()
	}))

	res, err := c.Crawl(context.Background(), pageURLs(4))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, progress, 4)
	assert.Error(t, progress["https://docs.test/page-2"])

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "<!-- Source: "))
	assert.NotContains(t, string(data), "page-2 -->")
}

func TestRun_FallsBackToBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	fetcher := NewMockFetcher()
	c := newTestCrawler(t, fetcher)

	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Discovered)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, filepath.Join(c.DocumentsDir(), "markdown-1.md"), res.ArtifactPath)

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "\n\n<!-- Source: "+srv.URL+" -->\n\ntext of "+srv.URL+"\n", string(data))
}

func TestRun_NoURLs(t *testing.T) {
	srv := sitemapServer(t, http.StatusOK, `<urlset></urlset>`)
	c := newTestCrawler(t, NewMockFetcher())

	_, err := c.Run(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNoURLs)

	entries, err := os.ReadDir(c.DocumentsDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ThreadAffineFetcher(t *testing.T) {
	srv := sitemapServer(t, http.StatusOK, namespacedSitemap)
	fetcher := NewMockFetcher()
	fetcher.Affine = true
	c := newTestCrawler(t, fetcher)

	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, fetcher.Peak())
}

func TestCrawl_ThreadAffineFetcher(t *testing.T) {
	fetcher := NewMockFetcher()
	fetcher.Affine = true
	fetcher.Delay = 10 * time.Millisecond
	c := newTestCrawler(t, fetcher, WithMaxConcurrent(4))

	res, err := c.Crawl(context.Background(), pageURLs(5))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Succeeded)
	assert.Equal(t, 1, fetcher.Peak())
}

func TestRun_ArtifactNumbersIncrease(t *testing.T) {
	srv := sitemapServer(t, http.StatusOK, plainSitemap)
	c := newTestCrawler(t, NewMockFetcher())

	first, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	// a new crawler over the same directory continues the numbering
	again, err := New(NewMockFetcher(), WithDocumentsDir(c.DocumentsDir()))
	require.NoError(t, err)
	second, err := again.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "markdown-1.md", filepath.Base(first.ArtifactPath))
	assert.Equal(t, "markdown-2.md", filepath.Base(second.ArtifactPath))
}

func TestCrawl_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCrawler(t, NewMockFetcher(), WithMaxConcurrent(1))
	_, err := c.Crawl(ctx, pageURLs(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher(t *testing.T) {
	var cacheControl atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl.Store(r.Header.Get("Cache-Control"))
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body><h2>Title</h2><p>Body text.</p></body></html>"))
		case "/notes.md":
			w.Header().Set("Content-Type", "text/markdown")
			_, _ = w.Write([]byte("# raw markdown"))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithFetchClient(srv.Client()), WithRateLimit(0, 0))
	ctx := context.Background()

	page, err := f.Fetch(ctx, srv.URL+"/page", DefaultFetchOptions)
	require.NoError(t, err)
	assert.Equal(t, "## Title\n\nBody text.", page.Text())
	assert.Equal(t, "no-cache", cacheControl.Load())

	page, err = f.Fetch(ctx, srv.URL+"/notes.md", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "# raw markdown", page.Text())
	assert.Equal(t, "", cacheControl.Load())

	_, err = f.Fetch(ctx, srv.URL+"/missing", DefaultFetchOptions)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxConcurrent is the number of simultaneous page fetches.
	DefaultMaxConcurrent = 5

	// DefaultDocumentsDir is where crawl artifacts are written.
	DefaultDocumentsDir = "documents"
)

// Result describes one crawl run.
type Result struct {
	ArtifactPath string
	Discovered   int
	Succeeded    int
	Failed       int
	Duration     time.Duration
}

// PageFunc is called after each page attempt; err is nil on success.
type PageFunc func(url string, err error)

// Crawler discovers and fetches the pages of a site into a crawl artifact.
type Crawler struct {
	fetcher       PageFetcher
	client        *http.Client
	dir           string
	maxConcurrent int
	fetchOpts     FetchOptions
	onPage        PageFunc
	logger        *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDocumentsDir sets the directory artifacts are written to.
func WithDocumentsDir(dir string) Option {
	return func(c *Crawler) {
		if dir != "" {
			c.dir = dir
		}
	}
}

// WithMaxConcurrent sets the fetch concurrency cap. Non-positive values are ignored.
func WithMaxConcurrent(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithHTTPClient sets the client used for sitemap discovery.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithFetchOptions overrides the options passed to every fetch.
func WithFetchOptions(opts FetchOptions) Option {
	return func(c *Crawler) {
		c.fetchOpts = opts
	}
}

// WithOnPage registers a progress callback invoked after each page.
// It may be called from several goroutines at once.
func WithOnPage(fn PageFunc) Option {
	return func(c *Crawler) {
		c.onPage = fn
	}
}

// WithLogger sets the crawler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler that fetches pages with fetcher.
func New(fetcher PageFetcher, opts ...Option) (*Crawler, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	c := &Crawler{
		fetcher:       fetcher,
		client:        &http.Client{Timeout: DefaultFetchTimeout},
		dir:           DefaultDocumentsDir,
		maxConcurrent: DefaultMaxConcurrent,
		fetchOpts:     DefaultFetchOptions,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "crawler")
	return c, nil
}

// DocumentsDir returns the artifact directory.
func (c *Crawler) DocumentsDir() string {
	return c.dir
}

// Run discovers the pages of base and crawls them into a new artifact.
func (c *Crawler) Run(ctx context.Context, base string) (Result, error) {
	urls, err := c.DiscoverURLs(ctx, base)
	if err != nil {
		return Result{}, err
	}
	c.logger.Info("found URLs to crawl", "base", base, "count", len(urls))
	return c.Crawl(ctx, urls)
}

// Crawl fetches urls into a new artifact with at most MaxConcurrent fetches
// in flight. Pages that fail are logged and skipped.
//
// Fetchers that report thread affinity are driven from a single goroutine
// locked to its OS thread; the result is the same either way.
func (c *Crawler) Crawl(ctx context.Context, urls []string) (Result, error) {
	if ta, ok := c.fetcher.(ThreadAffine); ok && ta.ThreadAffinity() {
		c.logger.Info("fetcher requires thread affinity, crawling on a dedicated thread")
		return c.crawlOnLockedThread(ctx, urls)
	}
	return c.crawl(ctx, urls, false)
}

type crawlOutcome struct {
	result Result
	err    error
}

func (c *Crawler) crawlOnLockedThread(ctx context.Context, urls []string) (Result, error) {
	done := make(chan crawlOutcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		res, err := c.crawl(ctx, urls, true)
		done <- crawlOutcome{result: res, err: err}
	}()
	out := <-done
	return out.result, out.err
}

func (c *Crawler) crawl(ctx context.Context, urls []string, inline bool) (Result, error) {
	start := time.Now()

	art, err := NewArtifact(c.dir)
	if err != nil {
		return Result{}, err
	}

	var succeeded, failed atomic.Int64
	page := func(url string) {
		if err := c.crawlPage(ctx, art, url); err != nil {
			failed.Add(1)
		} else {
			succeeded.Add(1)
		}
	}

	var runErr error
	if inline {
		for _, url := range urls {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			page(url)
		}
	} else {
		sem := semaphore.NewWeighted(int64(c.maxConcurrent))
		var wg sync.WaitGroup
		for _, url := range urls {
			if err := sem.Acquire(ctx, 1); err != nil {
				runErr = err
				break
			}
			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				defer sem.Release(1)
				page(url)
			}(url)
		}
		wg.Wait()
	}

	result := Result{
		ArtifactPath: art.Path(),
		Discovered:   len(urls),
		Succeeded:    int(succeeded.Load()),
		Failed:       int(failed.Load()),
		Duration:     time.Since(start),
	}
	if err := art.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	c.logger.Info("crawl complete",
		"artifact", result.ArtifactPath,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration", result.Duration)
	return result, runErr
}

func (c *Crawler) crawlPage(ctx context.Context, art *ArtifactWriter, url string) error {
	page, err := c.fetcher.Fetch(ctx, url, c.fetchOpts)
	if err == nil {
		err = art.Append(url, page.Text())
	}
	if c.onPage != nil {
		c.onPage(url, err)
	}
	if err != nil {
		c.logger.Error("failed to crawl page", "url", url, "err", err)
		return err
	}
	c.logger.Debug("crawled page", "url", url)
	return nil
}

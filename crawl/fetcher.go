package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// FetchOptions is the per-page run configuration handed to a fetch engine.
type FetchOptions struct {
	// BypassCache asks the engine not to serve a cached copy.
	BypassCache bool

	// Headless asks browser-backed engines not to open a window.
	Headless bool
}

// DefaultFetchOptions is the configuration used for every crawl.
var DefaultFetchOptions = FetchOptions{BypassCache: true, Headless: true}

// PageText is fetched page content. Engines return either plain text or a
// richer value that exposes its raw text.
type PageText interface {
	RawText() string
}

// PlainText is page content that is already text.
type PlainText string

// RawText implements PageText.
func (t PlainText) RawText() string { return string(t) }

// Page is one successfully fetched page.
type Page struct {
	URL     string
	Content PageText
}

// Text returns the page's raw text, or "" when there is no content.
func (p Page) Text() string {
	if p.Content == nil {
		return ""
	}
	return p.Content.RawText()
}

// PageFetcher fetches the text of a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error)
}

// ThreadAffine is implemented by fetchers whose engine must be driven from a
// single OS thread. Crawls using such a fetcher run on a dedicated thread.
type ThreadAffine interface {
	ThreadAffinity() bool
}

const (
	// DefaultRequestsPerSecond is the HTTPFetcher politeness limit.
	DefaultRequestsPerSecond = 10

	// DefaultFetchTimeout bounds a single page request.
	DefaultFetchTimeout = 30 * time.Second

	maxPageBytes = 10 << 20
	userAgent    = "docingest/1.0 (+crawler)"
)

// HTTPFetcher fetches pages over plain HTTP and renders HTML as markdown-like
// text. It does not execute JavaScript, so Headless is always satisfied.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ PageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithFetchClient sets the HTTP client used for page requests.
func WithFetchClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRateLimit caps requests per second across all concurrent fetches.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(logger *slog.Logger) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: DefaultFetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "http-fetcher")
	return f
}

// Fetch implements PageFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain,text/markdown;q=0.9,*/*;q=0.5")
	if opts.BypassCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain", "text/markdown", "text/x-markdown":
		data, err := io.ReadAll(body)
		if err != nil {
			return Page{}, err
		}
		return Page{URL: url, Content: PlainText(data)}, nil
	}

	text, err := RenderHTML(body)
	if err != nil {
		return Page{}, fmt.Errorf("render %s: %w", url, err)
	}
	f.logger.Debug("fetched page", "url", url, "length", len(text))
	return Page{URL: url, Content: PlainText(text)}, nil
}

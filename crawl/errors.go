package crawl

import "errors"

var (
	// ErrNoURLs is returned when a sitemap parses but lists no locations.
	ErrNoURLs = errors.New("no URLs found to crawl")

	// ErrFetcherRequired is returned when a Crawler is built without a fetcher.
	ErrFetcherRequired = errors.New("page fetcher is required")

	// ErrArtifactClosed is returned when appending to a closed artifact.
	ErrArtifactClosed = errors.New("artifact is closed")

	// ErrUnexpectedStatus is returned for non-2xx fetch responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

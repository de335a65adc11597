// Package crawl discovers the pages of a website and writes their text into a
// numbered crawl artifact.
//
// Discovery reads <base>/sitemap.xml and falls back to the base URL when the
// sitemap cannot be fetched or parsed. Pages are fetched through a PageFetcher
// with at most MaxConcurrent fetches in flight, and every successful page is
// appended to documents/markdown-<n>.md as a block tagged with its source URL.
package crawl

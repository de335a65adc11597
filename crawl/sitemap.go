package crawl

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxSitemapBytes bounds how much of a sitemap is read.
const maxSitemapBytes = 50 << 20

// SitemapURL returns the sitemap location for base.
func SitemapURL(base string) string {
	return strings.TrimSuffix(base, "/") + "/sitemap.xml"
}

// DiscoverURLs returns the page URLs listed in base's sitemap. When the
// sitemap cannot be fetched or parsed, the base URL is the only candidate.
// A sitemap that parses but lists nothing yields ErrNoURLs.
func (c *Crawler) DiscoverURLs(ctx context.Context, base string) ([]string, error) {
	sitemap := SitemapURL(base)
	urls, err := fetchSitemap(ctx, c.client, sitemap)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("error fetching sitemap, crawling base URL only", "sitemap", sitemap, "err", err)
		return []string{base}, nil
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%s: %w", sitemap, ErrNoURLs)
	}
	c.logger.Debug("discovered URLs", "sitemap", sitemap, "count", len(urls))
	return urls, nil
}

func fetchSitemap(ctx context.Context, client *http.Client, sitemap string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemap, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return parseSitemap(io.LimitReader(resp.Body, maxSitemapBytes))
}

// parseSitemap collects the text of every loc element in the root element's
// namespace. Without a root namespace only unqualified loc elements count.
func parseSitemap(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		urls    []string
		rootNS  string
		started bool
		inLoc   bool
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !started {
				rootNS, started = t.Name.Space, true
			}
			if t.Name.Local == "loc" && t.Name.Space == rootNS {
				inLoc = true
				text.Reset()
			}
		case xml.CharData:
			if inLoc {
				text.Write(t)
			}
		case xml.EndElement:
			if inLoc && t.Name.Local == "loc" {
				inLoc = false
				if loc := strings.TrimSpace(text.String()); loc != "" {
					urls = append(urls, loc)
				}
			}
		}
	}

	if !started {
		return nil, errors.New("sitemap has no root element")
	}
	return urls, nil
}

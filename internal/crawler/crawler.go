// Package crawler implements the bounded, domain-scoped BFS crawl
// described in spec §4.4.
package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/internal/searchcrawl/internal/httpclient"
	"github.com/internal/searchcrawl/internal/ratelimit"
	"github.com/internal/searchcrawl/internal/urlnorm"
)

// fetchTimeout bounds each crawl GET; the pool's own timeout still applies
// when it is shorter.
const fetchTimeout = 10 * time.Second

// Fetched is one successfully (or not) retrieved page, handed to the
// caller so the orchestrator can parse/match without a second fetch.
type Fetched struct {
	URL  string
	Body []byte
}

// Crawler discovers URLs reachable from a seed, restricted to the seed's
// domain, bounded by a page count. Each Discover call owns its own
// pending/visited state — nothing is shared across concurrent calls.
type Crawler struct {
	pool    *httpclient.Pool
	limiter *ratelimit.Limiter
}

// New creates a Crawler backed by the shared HTTP pool and rate limiter.
func New(pool *httpclient.Pool, limiter *ratelimit.Limiter) *Crawler {
	return &Crawler{pool: pool, limiter: limiter}
}

// Discover performs a BFS from seed, visiting at most maxPages URLs all on
// the seed's host, and returns the fetched pages (spec invariants 1 and 2).
func (c *Crawler) Discover(ctx context.Context, seed string, maxPages int) ([]Fetched, error) {
	normSeed, err := urlnorm.Normalize(seed)
	if err != nil {
		return nil, err
	}
	domain, err := urlnorm.Host(normSeed)
	if err != nil {
		return nil, err
	}

	pending := []string{normSeed}
	visited := make(map[string]struct{})
	var fetched []Fetched

	for len(pending) > 0 && len(visited) < maxPages {
		select {
		case <-ctx.Done():
			return fetched, ctx.Err()
		default:
		}

		u := pending[0]
		pending = pending[1:]

		if _, seen := visited[u]; seen {
			continue
		}
		visited[u] = struct{}{}

		body, err := c.fetch(ctx, u)
		if err != nil || body == nil {
			continue
		}
		fetched = append(fetched, Fetched{URL: u, Body: body})

		if len(visited) >= maxPages {
			break
		}

		links := extractLinks(u, body)
		for _, link := range links {
			normLink, err := urlnorm.Normalize(link)
			if err != nil {
				continue
			}
			linkHost, err := urlnorm.Host(normLink)
			if err != nil || !strings.EqualFold(linkHost, domain) {
				continue
			}
			if _, seen := visited[normLink]; seen {
				continue
			}
			pending = append(pending, normLink)
		}
	}

	return fetched, nil
}

// fetch performs one rate-limited GET, releasing the token exactly once
// regardless of outcome (spec §4.4).
func (c *Crawler) fetch(ctx context.Context, u string) ([]byte, error) {
	domain, err := urlnorm.Host(u)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Acquire(ctx, domain); err != nil {
		return nil, err
	}
	released := false
	release := func() {
		if !released {
			c.limiter.Release(domain)
			released = true
		}
	}
	defer release()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	result, err := c.pool.Get(fetchCtx, u)
	if err != nil {
		return nil, nil // transport failure: contained, empty body
	}
	if result.Empty {
		return nil, nil
	}
	return result.Body, nil
}

// extractLinks resolves every <a href> in body against base into an
// absolute URL. Malformed links are silently skipped.
func extractLinks(base string, body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		abs, err := urlnorm.Resolve(base, href)
		if err != nil {
			return
		}
		links = append(links, abs)
	})
	return links
}

// Package search wires the crawler, cache, parser, and ranker into the
// per-search pipeline described in spec §4.8.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/internal/searchcrawl/internal/cache"
	"github.com/internal/searchcrawl/internal/crawler"
	"github.com/internal/searchcrawl/internal/parser"
	"github.com/internal/searchcrawl/internal/rank"
	"github.com/internal/searchcrawl/internal/state"
	"github.com/internal/searchcrawl/internal/workerpool"
)

// Orchestrator runs searches and holds their results in memory until TTL
// eviction (spec §9, "Result retrieval" open question).
type Orchestrator struct {
	Crawler     *crawler.Crawler
	Parser      *parser.Parser
	Cache       cache.Cache
	State       state.Tracker
	Concurrency int

	mu      sync.RWMutex
	results map[string][]rank.SearchResult
	touched map[string]time.Time
}

// New creates an Orchestrator from its dependencies.
func New(c *crawler.Crawler, p *parser.Parser, ch cache.Cache, st state.Tracker, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Orchestrator{
		Crawler:     c,
		Parser:      p,
		Cache:       ch,
		State:       st,
		Concurrency: concurrency,
		results:     make(map[string][]rank.SearchResult),
		touched:     make(map[string]time.Time),
	}
}

// Search executes spec §4.8's steps 1-5 for one (seed, query) request and
// returns the ranked results.
func (o *Orchestrator) Search(ctx context.Context, id, seed, query string, maxPages int) ([]rank.SearchResult, error) {
	if err := o.State.InitSearch(ctx, id); err != nil {
		return nil, fmt.Errorf("init search: %w", err)
	}

	fetched, err := o.Crawler.Discover(ctx, seed, maxPages)
	if err != nil {
		_ = o.State.Fail(ctx, id, err.Error())
		return nil, err
	}

	if err := o.State.SetTotal(ctx, id, len(fetched)); err != nil {
		_ = o.State.Fail(ctx, id, err.Error())
		return nil, err
	}

	var mu sync.Mutex
	var results []rank.SearchResult

	workerpool.Run(ctx, fetched, o.Concurrency, func(ctx context.Context, f crawler.Fetched) {
		result := o.processOne(ctx, f, query)

		_ = o.State.IncProcessed(ctx, id)
		if result != nil {
			_ = o.State.IncFound(ctx, id)
			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
		}
	})

	if ctx.Err() != nil {
		_ = o.State.Fail(ctx, id, "cancelled")
		return nil, ctx.Err()
	}

	sortByRelevance(results)

	o.store(id, results)

	if err := o.State.Complete(ctx, id); err != nil {
		return nil, fmt.Errorf("complete search: %w", err)
	}

	return results, nil
}

// processOne handles the cache-lookup-or-parse/match/cache-store sequence
// for a single page the crawler already fetched; a cache hit skips parsing
// and ranking, not the fetch. Per-URL errors are contained here and never
// fail the overall search (spec §4.8 step 5).
func (o *Orchestrator) processOne(ctx context.Context, f crawler.Fetched, query string) *rank.SearchResult {
	if entry, err := o.Cache.Get(ctx, f.URL, query); err == nil && entry.Found {
		return entry.Result
	}

	page := o.Parser.Parse(f.Body)
	result := rank.MatchAndRank(f.URL, query, page)

	_ = o.Cache.Put(ctx, f.URL, query, result)

	return result
}

func sortByRelevance(results []rank.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
}

func (o *Orchestrator) store(id string, results []rank.SearchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[id] = results
	o.touched[id] = time.Now()
}

// GetResults returns the in-memory results for id, if still retained.
func (o *Orchestrator) GetResults(id string) ([]rank.SearchResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	results, ok := o.results[id]
	return results, ok
}

// SweepExpired evicts retained results untouched for longer than maxAge,
// mirroring the state tracker's TTL eviction (spec §3 CacheEntry/
// SearchState lifecycles, §9 "Result retrieval").
func (o *Orchestrator) SweepExpired(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	o.mu.Lock()
	defer o.mu.Unlock()

	var removed int
	for id, t := range o.touched {
		if t.Before(cutoff) {
			delete(o.results, id)
			delete(o.touched, id)
			removed++
		}
	}
	return removed
}

// Package cache implements the (url, query) -> result cache described in
// spec §4.6: TTL, batch get/put, stats, and size-bounded eviction.
package cache

import (
	"context"
	"time"

	"github.com/internal/searchcrawl/internal/rank"
)

const keyPrefix = "search_cache:"

// Entry is a cached value. A nil Result is a legitimate "no match" outcome
// distinct from "absent".
type Entry struct {
	Result *rank.SearchResult
	Found  bool
}

// Stats mirrors the counters described in spec §4.6.
type Stats struct {
	Entries       int64
	Bytes         int64
	Hits          int64
	Misses        int64
	Writes        int64
	BatchWrites   int64
	Invalidations int64
	Clears        int64
	HitRatePct    float64
}

// Cache is the contract every backend implements. Operations are
// best-effort: any operation may fail silently and return a miss;
// callers must treat the cache as advisory (spec §4.6 consistency note).
type Cache interface {
	Get(ctx context.Context, url, query string) (Entry, error)
	Put(ctx context.Context, url, query string, value *rank.SearchResult) error
	Invalidate(ctx context.Context, url, query string) error
	ClearAll(ctx context.Context) error

	GetMany(ctx context.Context, urls []string, query string) (map[string]Entry, error)
	PutMany(ctx context.Context, values map[string]*rank.SearchResult, query string) error

	SetTTL(d time.Duration)
	GetTTL() time.Duration
	CleanupExpired(ctx context.Context) (int, error)

	Stats() Stats
	MonitorSize(ctx context.Context, limitMB int) (int64, error)
}

// Key builds the namespaced cache key for a (url, query) pair.
func Key(url, query string) string {
	return keyPrefix + url + ":" + query
}

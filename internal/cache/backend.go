package cache

import (
	"context"
	"time"

	"github.com/internal/searchcrawl/internal/rank"
)

// backend is the raw storage contract a cache implementation provides.
// StatsCache wraps a backend to add the uniform counters required by
// spec §4.6, so neither backend has to duplicate stats bookkeeping.
type backend interface {
	get(ctx context.Context, key string) (value *rank.SearchResult, found bool, err error)
	put(ctx context.Context, key string, value *rank.SearchResult, ttl time.Duration) error
	delete(ctx context.Context, key string) error
	clearAll(ctx context.Context) error

	getMany(ctx context.Context, keys []string) (map[string]*rank.SearchResult, error)
	putMany(ctx context.Context, values map[string]*rank.SearchResult, ttl time.Duration) error

	residualTTL(ctx context.Context, key string) (time.Duration, error)
	scanKeys(ctx context.Context) ([]string, error)
	approxSizeBytes(ctx context.Context) (int64, error)
}

package cache

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/internal/searchcrawl/internal/rank"
)

// StatsCache wraps a backend and adds the uniform counters and size-bounded
// eviction contract required by spec §4.6, so neither backend implements
// stats bookkeeping itself.
type StatsCache struct {
	b   backend
	ttl atomic.Int64 // time.Duration, nanoseconds

	entries       atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	writes        atomic.Int64
	batchWrites   atomic.Int64
	invalidations atomic.Int64
	clears        atomic.Int64
}

// NewMemoryCache creates a StatsCache backed by sharded in-process storage.
func NewMemoryCache(defaultTTL time.Duration) *StatsCache {
	sc := &StatsCache{b: newShardedMemoryBackend(defaultTTL, defaultTTL+5*time.Minute)}
	sc.ttl.Store(int64(defaultTTL))
	return sc
}

// NewRedisCache creates a StatsCache backed by Redis.
func NewRedisCache(addr, password string, db int, defaultTTL time.Duration) *StatsCache {
	sc := &StatsCache{b: newRedisBackend(addr, password, db)}
	sc.ttl.Store(int64(defaultTTL))
	return sc
}

func (c *StatsCache) Get(ctx context.Context, url, query string) (Entry, error) {
	result, found, err := c.b.get(ctx, Key(url, query))
	if err != nil || !found {
		c.misses.Add(1)
		return Entry{}, nil
	}
	c.hits.Add(1)
	return Entry{Result: result, Found: true}, nil
}

func (c *StatsCache) Put(ctx context.Context, url, query string, value *rank.SearchResult) error {
	if err := c.b.put(ctx, Key(url, query), value, c.GetTTL()); err != nil {
		return err
	}
	c.writes.Add(1)
	c.entries.Add(1)
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, url, query string) error {
	if err := c.b.delete(ctx, Key(url, query)); err != nil {
		return err
	}
	c.invalidations.Add(1)
	return nil
}

func (c *StatsCache) ClearAll(ctx context.Context) error {
	if err := c.b.clearAll(ctx); err != nil {
		return err
	}
	c.clears.Add(1)
	c.entries.Store(0)
	return nil
}

func (c *StatsCache) GetMany(ctx context.Context, urls []string, query string) (map[string]Entry, error) {
	keys := make([]string, len(urls))
	keyToURL := make(map[string]string, len(urls))
	for i, u := range urls {
		k := Key(u, query)
		keys[i] = k
		keyToURL[k] = u
	}

	raw, err := c.b.getMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Entry, len(raw))
	for k, v := range raw {
		out[keyToURL[k]] = Entry{Result: v, Found: true}
	}
	c.hits.Add(int64(len(raw)))
	c.misses.Add(int64(len(urls) - len(raw)))
	return out, nil
}

func (c *StatsCache) PutMany(ctx context.Context, values map[string]*rank.SearchResult, query string) error {
	keyed := make(map[string]*rank.SearchResult, len(values))
	for url, v := range values {
		keyed[Key(url, query)] = v
	}
	if err := c.b.putMany(ctx, keyed, c.GetTTL()); err != nil {
		return err
	}
	c.batchWrites.Add(1)
	c.writes.Add(int64(len(values)))
	c.entries.Add(int64(len(values)))
	return nil
}

func (c *StatsCache) SetTTL(d time.Duration) {
	c.ttl.Store(int64(d))
}

func (c *StatsCache) GetTTL() time.Duration {
	return time.Duration(c.ttl.Load())
}

// CleanupExpired sweeps the namespace, deleting keys with non-positive
// residual TTL.
func (c *StatsCache) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := c.b.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	var removed int
	for _, k := range keys {
		ttl, err := c.b.residualTTL(ctx, k)
		if err != nil {
			continue
		}
		if ttl <= 0 {
			_ = c.b.delete(ctx, k)
			removed++
		}
	}
	if removed > 0 {
		c.entries.Add(-int64(removed))
	}
	return removed, nil
}

// MonitorSize returns current usage; if over limitMB, triggers
// size-bounded eviction sorted by ascending residual TTL (spec §4.6).
func (c *StatsCache) MonitorSize(ctx context.Context, limitMB int) (int64, error) {
	size, err := c.b.approxSizeBytes(ctx)
	if err != nil {
		return 0, err
	}

	limitBytes := int64(limitMB) * 1024 * 1024
	if size <= limitBytes {
		return size, nil
	}

	keys, err := c.b.scanKeys(ctx)
	if err != nil {
		return size, err
	}

	type keyTTL struct {
		key string
		ttl time.Duration
	}
	ordered := make([]keyTTL, 0, len(keys))
	for _, k := range keys {
		ttl, _ := c.b.residualTTL(ctx, k)
		ordered = append(ordered, keyTTL{key: k, ttl: ttl})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ttl < ordered[j].ttl })

	for _, kt := range ordered {
		if size <= limitBytes {
			break
		}
		_ = c.b.delete(ctx, kt.key)
		c.entries.Add(-1)
		size, _ = c.b.approxSizeBytes(ctx)
	}

	return size, nil
}

func (c *StatsCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if hits+misses > 0 {
		hitRate = math.Round(float64(hits)/float64(hits+misses)*100*100) / 100
	}
	size, _ := c.b.approxSizeBytes(context.Background())

	return Stats{
		Entries:       c.entries.Load(),
		Bytes:         size,
		Hits:          hits,
		Misses:        misses,
		Writes:        c.writes.Load(),
		BatchWrites:   c.batchWrites.Load(),
		Invalidations: c.invalidations.Load(),
		Clears:        c.clears.Load(),
		HitRatePct:    hitRate,
	}
}

// Close releases the underlying backend's resources (the Redis client's
// connection pool); a no-op for the in-memory backend.
func (c *StatsCache) Close() error {
	if closer, ok := c.b.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

var _ Cache = (*StatsCache)(nil)

package cache

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/internal/searchcrawl/internal/rank"

	"github.com/dgryski/go-rendezvous"
)

const shardCount = 64

// shardedMemoryBackend is an in-process cache sharded across several
// patrickmn/go-cache instances, chosen by rendezvous (HRW) hashing so
// shard ownership stays stable if the shard count ever changes, unlike
// the teacher's plain FNV modulo.
type shardedMemoryBackend struct {
	shards []*gocache.Cache
	rendez *rendezvous.Rendezvous
}

func newShardedMemoryBackend(defaultExpiration, cleanupInterval time.Duration) *shardedMemoryBackend {
	shardNames := make([]string, shardCount)
	shards := make([]*gocache.Cache, shardCount)
	for i := 0; i < shardCount; i++ {
		shards[i] = gocache.New(defaultExpiration, cleanupInterval)
		shardNames[i] = strconv.Itoa(i)
	}

	return &shardedMemoryBackend{
		shards: shards,
		rendez: rendezvous.New(shardNames, hashString),
	}
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func (b *shardedMemoryBackend) shardFor(key string) *gocache.Cache {
	name := b.rendez.Lookup(key)
	idx, _ := strconv.Atoi(name)
	return b.shards[idx]
}

func (b *shardedMemoryBackend) get(_ context.Context, key string) (*rank.SearchResult, bool, error) {
	val, found := b.shardFor(key).Get(key)
	if !found {
		return nil, false, nil
	}
	result, _ := val.(*rank.SearchResult)
	return result, true, nil
}

func (b *shardedMemoryBackend) put(_ context.Context, key string, value *rank.SearchResult, ttl time.Duration) error {
	b.shardFor(key).Set(key, value, ttl)
	return nil
}

func (b *shardedMemoryBackend) delete(_ context.Context, key string) error {
	b.shardFor(key).Delete(key)
	return nil
}

func (b *shardedMemoryBackend) clearAll(_ context.Context) error {
	for _, s := range b.shards {
		s.Flush()
	}
	return nil
}

func (b *shardedMemoryBackend) getMany(ctx context.Context, keys []string) (map[string]*rank.SearchResult, error) {
	out := make(map[string]*rank.SearchResult, len(keys))
	for _, k := range keys {
		if v, found, _ := b.get(ctx, k); found {
			out[k] = v
		}
	}
	return out, nil
}

func (b *shardedMemoryBackend) putMany(ctx context.Context, values map[string]*rank.SearchResult, ttl time.Duration) error {
	for k, v := range values {
		_ = b.put(ctx, k, v, ttl)
	}
	return nil
}

func (b *shardedMemoryBackend) residualTTL(_ context.Context, key string) (time.Duration, error) {
	_, expiry, found := b.shardFor(key).GetWithExpiration(key)
	if !found {
		return 0, nil
	}
	if expiry.IsZero() {
		return time.Hour * 24 * 365, nil // no expiration set
	}
	return time.Until(expiry), nil
}

func (b *shardedMemoryBackend) scanKeys(_ context.Context) ([]string, error) {
	var keys []string
	for _, s := range b.shards {
		for k := range s.Items() {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *shardedMemoryBackend) approxSizeBytes(ctx context.Context) (int64, error) {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		v, found, _ := b.get(ctx, k)
		total += int64(len(k))
		if found && v != nil {
			total += int64(len(v.URL) + len(v.Title) + len(v.Context) + 32)
		}
	}
	return total, nil
}

var _ backend = (*shardedMemoryBackend)(nil)

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"

	"github.com/internal/searchcrawl/internal/rank"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// redisBackend stores entries in Redis with SETEX-style TTLs and uses
// pipelining for batch operations, per spec §4.6/§6.
type redisBackend struct {
	client *redis.Client
}

func newRedisBackend(addr, password string, db int) *redisBackend {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     500,
		MinIdleConns: 50,
	})
	return &redisBackend{client: rdb}
}

// wireValue is what actually gets stored: it distinguishes an absent key
// from a present key whose Result is a legitimate cached "no match".
type wireValue struct {
	Result *rank.SearchResult `json:"result"`
}

func (b *redisBackend) get(ctx context.Context, key string) (*rank.SearchResult, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		slog.Warn("RedisCache: GET failed", "key", key, "error", err)
		return nil, false, nil // cache errors degrade to a miss, spec §7
	}
	var wv wireValue
	if err := json.Unmarshal([]byte(val), &wv); err != nil {
		slog.Warn("RedisCache: failed to unmarshal entry", "key", key, "error", err)
		return nil, false, nil
	}
	return wv.Result, true, nil
}

func (b *redisBackend) put(ctx context.Context, key string, value *rank.SearchResult, ttl time.Duration) error {
	payload, err := json.Marshal(wireValue{Result: value})
	if err != nil {
		slog.Warn("RedisCache: failed to marshal entry", "key", key, "error", err)
		return nil
	}
	if err := b.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		slog.Warn("RedisCache: SET failed", "key", key, "error", err)
	}
	return nil
}

func (b *redisBackend) delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("RedisCache: DEL failed", "key", key, "error", err)
	}
	return nil
}

func (b *redisBackend) clearAll(ctx context.Context) error {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("RedisCache: DEL (clearAll) failed", "error", err)
	}
	return nil
}

func (b *redisBackend) getMany(ctx context.Context, keys []string) (map[string]*rank.SearchResult, error) {
	out := make(map[string]*rank.SearchResult, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := b.client.MGet(ctx, keys...).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis MGET failed: %w", err)
	}

	for i, val := range vals {
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		var wv wireValue
		if err := json.Unmarshal([]byte(strVal), &wv); err != nil {
			slog.Warn("RedisCache: MGET failed to unmarshal entry", "key", keys[i], "error", err)
			continue
		}
		out[keys[i]] = wv.Result
	}
	return out, nil
}

func (b *redisBackend) putMany(ctx context.Context, values map[string]*rank.SearchResult, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	pipe := b.client.Pipeline()
	for key, value := range values {
		payload, err := json.Marshal(wireValue{Result: value})
		if err != nil {
			slog.Warn("RedisCache: MSET failed to marshal entry, skipping", "key", key, "error", err)
			continue
		}
		pipe.Set(ctx, key, payload, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("RedisCache: pipelined MSET failed", "error", err)
		return err
	}
	return nil
}

func (b *redisBackend) residualTTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := b.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, nil
	}
	return d, nil
}

func (b *redisBackend) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := b.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return keys, fmt.Errorf("redis SCAN failed: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (b *redisBackend) approxSizeBytes(ctx context.Context) (int64, error) {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		n, err := b.client.StrLen(ctx, k).Result()
		if err == nil {
			total += n
		}
	}
	return total, nil
}

// Close releases the underlying Redis connection pool.
func (b *redisBackend) Close() error {
	return b.client.Close()
}

var _ backend = (*redisBackend)(nil)

package state

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTracker stores SearchState as a Redis hash, using HINCRBY for the
// monotonic counters so inc_processed/inc_found are atomic single-key
// operations without a read-modify-write round trip.
type RedisTracker struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisTracker creates a Tracker backed by Redis.
func NewRedisTracker(addr, password string, db int, maxAge time.Duration) *RedisTracker {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisTracker{client: rdb, maxAge: maxAge}
}

func (t *RedisTracker) touch(ctx context.Context, id string) {
	t.client.Expire(ctx, key(id), t.maxAge)
}

func (t *RedisTracker) InitSearch(ctx context.Context, id string) error {
	now := time.Now().Unix()
	err := t.client.HSet(ctx, key(id), map[string]interface{}{
		"status":      string(StatusWaiting),
		"total":       0,
		"processed":   0,
		"found":       0,
		"start_time":  now,
		"last_update": now,
		"error":       "",
	}).Err()
	if err != nil {
		slog.Warn("RedisTracker: InitSearch failed", "id", id, "error", err)
		return err
	}
	t.touch(ctx, id)
	return nil
}

func (t *RedisTracker) isTerminal(ctx context.Context, id string) bool {
	status, err := t.client.HGet(ctx, key(id), "status").Result()
	if err != nil {
		return false
	}
	return Status(status).IsTerminal()
}

func (t *RedisTracker) SetTotal(ctx context.Context, id string, n int) error {
	exists, err := t.client.Exists(ctx, key(id)).Result()
	if err != nil || exists == 0 {
		return ErrNotFound
	}
	if t.isTerminal(ctx, id) {
		return nil
	}
	pipe := t.client.Pipeline()
	pipe.HSet(ctx, key(id), "total", n, "status", string(StatusSearching), "last_update", time.Now().Unix())
	_, err = pipe.Exec(ctx)
	if err == nil {
		t.touch(ctx, id)
	}
	return err
}

func (t *RedisTracker) IncProcessed(ctx context.Context, id string) error {
	return t.incrementField(ctx, id, "processed")
}

func (t *RedisTracker) IncFound(ctx context.Context, id string) error {
	return t.incrementField(ctx, id, "found")
}

func (t *RedisTracker) incrementField(ctx context.Context, id, field string) error {
	exists, err := t.client.Exists(ctx, key(id)).Result()
	if err != nil || exists == 0 {
		return ErrNotFound
	}
	if t.isTerminal(ctx, id) {
		return nil
	}
	pipe := t.client.Pipeline()
	pipe.HIncrBy(ctx, key(id), field, 1)
	pipe.HSet(ctx, key(id), "last_update", time.Now().Unix())
	_, err = pipe.Exec(ctx)
	if err == nil {
		t.touch(ctx, id)
	}
	return err
}

func (t *RedisTracker) Complete(ctx context.Context, id string) error {
	return t.setTerminal(ctx, id, StatusCompleted, "")
}

func (t *RedisTracker) Fail(ctx context.Context, id string, errMsg string) error {
	return t.setTerminal(ctx, id, StatusError, errMsg)
}

func (t *RedisTracker) setTerminal(ctx context.Context, id string, status Status, errMsg string) error {
	exists, err := t.client.Exists(ctx, key(id)).Result()
	if err != nil || exists == 0 {
		return ErrNotFound
	}
	if t.isTerminal(ctx, id) {
		return nil
	}
	pipe := t.client.Pipeline()
	pipe.HSet(ctx, key(id), "status", string(status), "error", errMsg, "last_update", time.Now().Unix())
	_, err = pipe.Exec(ctx)
	if err == nil {
		t.touch(ctx, id)
	}
	return err
}

func (t *RedisTracker) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	vals, err := t.client.HGetAll(ctx, key(id)).Result()
	if err != nil || len(vals) == 0 {
		return Snapshot{}, false, nil
	}

	total, _ := strconv.Atoi(vals["total"])
	processed, _ := strconv.Atoi(vals["processed"])
	found, _ := strconv.Atoi(vals["found"])
	startTime, _ := strconv.ParseInt(vals["start_time"], 10, 64)
	lastUpdate, _ := strconv.ParseInt(vals["last_update"], 10, 64)

	s := Snapshot{
		ID:            id,
		Status:        Status(vals["status"]),
		TotalURLs:     total,
		ProcessedURLs: processed,
		FoundResults:  found,
		StartTime:     startTime,
		LastUpdate:    lastUpdate,
		Error:         vals["error"],
	}
	return withDerived(s), true, nil
}

// SweepExpired is a no-op for Redis: per-key EXPIRE already evicts stale
// searches. It exists to satisfy the Tracker interface uniformly across
// backends.
func (t *RedisTracker) SweepExpired(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

// Close releases the underlying Redis connection pool.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

var _ Tracker = (*RedisTracker)(nil)

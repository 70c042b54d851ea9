package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTrackerLifecycle(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.InitSearch(ctx, "s1"))

	snap, found, err := tr.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusWaiting, snap.Status)

	require.NoError(t, tr.SetTotal(ctx, "s1", 10))
	snap, _, _ = tr.Get(ctx, "s1")
	assert.Equal(t, StatusSearching, snap.Status)
	assert.Equal(t, 10, snap.TotalURLs)

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.IncProcessed(ctx, "s1"))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.IncFound(ctx, "s1"))
	}

	snap, _, _ = tr.Get(ctx, "s1")
	assert.Equal(t, 5, snap.ProcessedURLs)
	assert.Equal(t, 3, snap.FoundResults)
	assert.InDelta(t, 50.0, snap.ProgressPct, 0.01)

	require.NoError(t, tr.Complete(ctx, "s1"))
	snap, _, _ = tr.Get(ctx, "s1")
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.True(t, snap.Status.IsTerminal())
}

func TestMemoryTrackerUnknownIDReturnsNotFound(t *testing.T) {
	tr := NewMemoryTracker()
	_, found, err := tr.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryTrackerMutationsOnUnknownIDReturnErrNotFound(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	assert.ErrorIs(t, tr.SetTotal(ctx, "nope", 1), ErrNotFound)
	assert.ErrorIs(t, tr.IncProcessed(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, tr.IncFound(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, tr.Complete(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, tr.Fail(ctx, "nope", "boom"), ErrNotFound)
}

func TestMemoryTrackerTerminalStateIsAbsorbing(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.InitSearch(ctx, "s1"))
	require.NoError(t, tr.Fail(ctx, "s1", "first error"))
	require.NoError(t, tr.IncProcessed(ctx, "s1")) // no-op, already terminal
	require.NoError(t, tr.Complete(ctx, "s1"))     // no-op, already terminal

	snap, _, _ := tr.Get(ctx, "s1")
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "first error", snap.Error)
	assert.Equal(t, 0, snap.ProcessedURLs)
}

func TestMemoryTrackerSweepExpired(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.InitSearch(ctx, "stale"))
	time.Sleep(20 * time.Millisecond)

	removed, err := tr.SweepExpired(ctx, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, _ := tr.Get(ctx, "stale")
	assert.False(t, found)
}

func TestMemoryTrackerSweepExpiredKeepsFreshEntries(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.InitSearch(ctx, "fresh"))

	removed, err := tr.SweepExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	_, found, _ := tr.Get(ctx, "fresh")
	assert.True(t, found)
}

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Run{
		ID: "run-1", StartedAt: base, Duration: 120 * time.Millisecond,
		Commit: "abc123", Modules: 3, Changed: 10, Unchanged: 0,
	}))
	require.NoError(t, store.Record(ctx, Run{
		ID: "run-2", StartedAt: base.Add(time.Minute), Duration: 40 * time.Millisecond,
		Modules: 3, Changed: 0, Unchanged: 10,
	}))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	assert.Equal(t, base.Unix(), runs[1].StartedAt.Unix())
	assert.Equal(t, 120*time.Millisecond, runs[1].Duration)
	assert.Equal(t, "abc123", runs[1].Commit)
	assert.Equal(t, 3, runs[1].Modules)
	assert.Equal(t, 10, runs[1].Changed)
}

func TestRecentLimit(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Run{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "e", runs[0].ID)
}

func TestDuplicateRunIDFails(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Run{ID: "dup", StartedAt: time.Now()}))
	assert.Error(t, store.Record(ctx, Run{ID: "dup", StartedAt: time.Now()}))
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ".modkit", "history.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), Run{ID: "r", StartedAt: time.Now()}))
	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestHeadCommitOutsideRepository(t *testing.T) {
	assert.Equal(t, "", HeadCommit(t.TempDir()))
}

package snapshot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"driftwatch/internal/ingest"
)

func testStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(db))
	return NewSQLiteStore(db)
}

func capture(at time.Time, names ...string) ClusterSnapshot {
	s := ClusterSnapshot{CapturedAt: at}
	for _, n := range names {
		s.Jobs = append(s.Jobs, ingest.ScheduledJob{Name: n, Schedule: "0 * * * *"})
	}
	return s
}

func TestStoreSaveAndGet(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := store.Save(ctx, capture(at, "backup"))
	require.NoError(t, err)
	assert.Contains(t, id, "snap_")

	st, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, st.ID)
	assert.WithinDuration(t, at, st.CapturedAt, time.Second)
	require.Len(t, st.Snapshot.Jobs, 1)
	assert.Equal(t, "backup", st.Snapshot.Jobs[0].Name)
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	_, err := store.Get(context.Background(), "snap_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLatestOrdering(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, capture(base.Add(time.Duration(i)*time.Hour), "backup"))
		require.NoError(t, err)
	}

	stored, err := store.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].CapturedAt.After(stored[1].CapturedAt), "newest first")
}

func TestStorePrune(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, capture(base.Add(time.Duration(i)*time.Hour), "backup"))
		require.NoError(t, err)
	}

	n, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stored, err := store.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

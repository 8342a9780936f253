package manifest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "manifest.db"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entries := []Entry{
		{RunID: "run-1", InputPath: "/parts/bracket.step", OutputPath: "/parts/bracket.stl", Status: StatusOK, Facets: 120},
		{RunID: "run-1", InputPath: "/parts/broken.step", Status: StatusError, Error: "STEP file could not be imported or is empty."},
		{RunID: "run-2", InputPath: "/parts/housing.step", OutputPath: "/parts/housing.stl", Status: StatusOK, Facets: 3400},
	}
	for _, entry := range entries {
		require.NoError(t, store.Record(ctx, entry))
	}

	t.Run("newest first", func(t *testing.T) {
		recent, err := store.Recent(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, recent, 3)

		assert.Equal(t, "/parts/housing.step", recent[0].InputPath)
		assert.Equal(t, "/parts/bracket.step", recent[2].InputPath)
		assert.Equal(t, 3400, recent[0].Facets)
	})

	t.Run("filter matches substring", func(t *testing.T) {
		recent, err := store.Recent(ctx, "bracket", 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "/parts/bracket.step", recent[0].InputPath)
	})

	t.Run("limit caps results", func(t *testing.T) {
		recent, err := store.Recent(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})
}

func TestLastSuccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	input := "/parts/gear.step"
	require.NoError(t, store.Record(ctx, Entry{
		RunID: "run-1", InputPath: input, Status: StatusError, Error: "kernel timed out",
	}))
	require.NoError(t, store.Record(ctx, Entry{
		RunID: "run-2", InputPath: input, Status: StatusOK,
		InputSHA256: "abc123", OptionsFP: "fp-1", Facets: 42,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		RunID: "run-3", InputPath: input, Status: StatusOK,
		InputSHA256: "abc123", OptionsFP: "fp-2", Facets: 48,
	}))

	t.Run("returns the latest successful row", func(t *testing.T) {
		entry, found, err := store.LastSuccess(ctx, input)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "fp-2", entry.OptionsFP)
		assert.Equal(t, 48, entry.Facets)
		assert.Equal(t, StatusOK, entry.Status)
	})

	t.Run("unknown input reports not found", func(t *testing.T) {
		_, found, err := store.LastSuccess(ctx, "/parts/unknown.step")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("errors only reports not found", func(t *testing.T) {
		failing := "/parts/failing.step"
		require.NoError(t, store.Record(ctx, Entry{
			RunID: "run-4", InputPath: failing, Status: StatusError, Error: "no faces",
		}))

		_, found, err := store.LastSuccess(ctx, failing)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRecordStampsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Record(ctx, Entry{
		RunID: "run-1", InputPath: "/parts/plate.step", Status: StatusSkipped,
	}))

	recent, err := store.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].CreatedAt.Before(before))
}

package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseOrdering(t *testing.T) {
	assert.Less(t, PhaseIngest.Index(), PhaseSearch.Index())
	assert.Less(t, PhaseSearch.Index(), PhaseEvaluate.Index())
	assert.Equal(t, -1, Phase("bogus").Index())
}

func TestLoadOrCreateFresh(t *testing.T) {
	m := NewManager(t.TempDir())

	cp, err := m.LoadOrCreate("run1", "locomo", "memdb")
	require.NoError(t, err)
	assert.Equal(t, "run1", cp.RunID)
	assert.Empty(t, cp.Items)
	assert.False(t, cp.CreatedAt.IsZero())

	// Cached: same instance on second call.
	cp2, err := m.LoadOrCreate("run1", "locomo", "memdb")
	require.NoError(t, err)
	assert.Same(t, cp, cp2)
}

func TestMarkAndPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, m.MarkInProgress("run1", "locomo", "memdb", "item-1", PhaseIngest))
	require.NoError(t, m.MarkComplete("run1", "locomo", "memdb", "item-1", PhaseIngest))
	require.NoError(t, m.MarkFailed("run1", "locomo", "memdb", "item-2", PhaseEvaluate, errors.New("provider timeout")))

	// File layout: {base}/{runId}/{benchmark}-{provider}.json.
	path := filepath.Join(dir, "run1", "locomo-memdb.json")
	_, err := os.Stat(path)
	require.NoError(t, err)

	// A fresh manager reads the same state back.
	m2 := NewManager(dir)
	cp, err := m2.LoadOrCreate("run1", "locomo", "memdb")
	require.NoError(t, err)
	require.Len(t, cp.Items, 2)

	rec, ok := cp.Record("item-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, PhaseIngest, rec.Phase)

	rec, ok = cp.Record("item-2")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "provider timeout", rec.Error)
}

func TestShouldSkipPhaseSemantics(t *testing.T) {
	m := NewManager(t.TempDir())
	const run, bench, prov = "run1", "locomo", "memdb"

	// Unknown item: never skipped.
	skip, err := m.ShouldSkip(run, bench, prov, "item-1", PhaseIngest)
	require.NoError(t, err)
	assert.False(t, skip)

	// Completed at evaluate covers ingest and search too.
	require.NoError(t, m.MarkComplete(run, bench, prov, "item-1", PhaseEvaluate))
	for _, phase := range []Phase{PhaseIngest, PhaseSearch, PhaseEvaluate} {
		skip, err = m.ShouldSkip(run, bench, prov, "item-1", phase)
		require.NoError(t, err)
		assert.True(t, skip, "phase %s", phase)
	}

	// Completed at ingest does not cover evaluate.
	require.NoError(t, m.MarkComplete(run, bench, prov, "item-2", PhaseIngest))
	skip, err = m.ShouldSkip(run, bench, prov, "item-2", PhaseEvaluate)
	require.NoError(t, err)
	assert.False(t, skip)

	// Failed items are always re-executed.
	require.NoError(t, m.MarkFailed(run, bench, prov, "item-3", PhaseEvaluate, errors.New("x")))
	skip, err = m.ShouldSkip(run, bench, prov, "item-3", PhaseEvaluate)
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestCorruptedCheckpointIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run1", "locomo-memdb.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	m := NewManager(dir)
	_, err := m.LoadOrCreate("run1", "locomo", "memdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted checkpoint")
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, m.MarkComplete("run1", "b", "p", "i", PhaseIngest))

	entries, err := os.ReadDir(filepath.Join(dir, "run1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b-p.json", entries[0].Name())
}

func TestStats(t *testing.T) {
	m := NewManager(t.TempDir())
	const run, bench, prov = "r", "b", "p"

	require.NoError(t, m.MarkComplete(run, bench, prov, "a", PhaseEvaluate))
	require.NoError(t, m.MarkComplete(run, bench, prov, "b", PhaseEvaluate))
	require.NoError(t, m.MarkFailed(run, bench, prov, "c", PhaseEvaluate, errors.New("x")))
	require.NoError(t, m.MarkInProgress(run, bench, prov, "d", PhaseSearch))

	s, err := m.Stats(run, bench, prov)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Completed: 2, Failed: 1, InProgress: 1}, s)
}

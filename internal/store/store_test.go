package store

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRun(t *testing.T, s *Store, runID string) {
	t.Helper()
	require.NoError(t, s.CreateRun(Run{
		ID:         runID,
		Benchmarks: []string{"longmemeval"},
		Providers:  []string{"memdb"},
		Config:     map[string]interface{}{"concurrency": float64(10)},
	}))
}

func result(runID, benchmark, provider, itemID string, correct bool, score float64) *types.EvalResult {
	return &types.EvalResult{
		RunID: runID, Benchmark: benchmark, Provider: provider, ItemID: itemID,
		Question: "q for " + itemID, Expected: "expected", Actual: "actual",
		Score: score, Correct: correct,
		Retrieved: []types.SearchResult{{ID: itemID + "-ctx-0", Content: "ctx", Score: 0.9}},
		Metadata:  map[string]interface{}{"questionType": "temporal"},
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	run, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"longmemeval"}, run.Benchmarks)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, s.CompleteRun("run-1"))
	run, err = s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run.CompletedAt)
	assert.WithinDuration(t, time.Now(), *run.CompletedAt, time.Minute)

	// Re-creating the run (resume) keeps the original record.
	require.NoError(t, s.CreateRun(Run{ID: "run-1"}))
	run, err = s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"longmemeval"}, run.Benchmarks)

	_, err = s.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRunsPagination(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateRun(Run{
			ID:        "run-" + string(rune('a'+i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.ListRuns(2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-e", runs[0].ID, "newest first")

	runs, err = s.ListRuns(2, 2)
	require.NoError(t, err)
	assert.Equal(t, "run-c", runs[0].ID)
}

func TestSaveResultUpsertsOnIdentity(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q1", false, 0.0)))
	// Retry of the same item overwrites rather than duplicating.
	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q1", true, 1.0)))
	// Same item id under a different provider is a distinct row.
	require.NoError(t, s.SaveResult(result("run-1", "lme", "other", "q1", false, 0.2)))

	rows, err := s.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Correct)
	assert.Equal(t, 1.0, rows[0].Score)

	// JSON columns round-trip.
	require.Len(t, rows[0].Retrieved, 1)
	assert.Equal(t, "q1-ctx-0", rows[0].Retrieved[0].ID)
	assert.Equal(t, "temporal", types.MetaString(rows[0].Metadata, "questionType"))
}

func TestAggregates(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q1", true, 1.0)))
	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q2", false, 0.0)))
	require.NoError(t, s.SaveResult(result("run-1", "lme", "other", "q1", true, 0.8)))

	aggs, err := s.Aggregates("run-1")
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, Aggregate{Benchmark: "lme", Provider: "memdb", Total: 2, Correct: 1, AvgScore: 0.5}, aggs[0])
	assert.Equal(t, Aggregate{Benchmark: "lme", Provider: "other", Total: 1, Correct: 1, AvgScore: 0.8}, aggs[1])
}

func TestAggregatesByMetadata(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	r1 := result("run-1", "lme", "memdb", "q1", true, 1.0)
	r2 := result("run-1", "lme", "memdb", "q2", false, 0.0)
	r2.Metadata = map[string]interface{}{"questionType": "preference"}
	r3 := result("run-1", "lme", "memdb", "q3", true, 1.0)
	r3.Metadata = nil
	for _, r := range []*types.EvalResult{r1, r2, r3} {
		require.NoError(t, s.SaveResult(r))
	}

	groups, err := s.AggregatesByMetadata("run-1", "questionType")
	require.NoError(t, err)
	require.Len(t, groups, 3)

	byName := map[string]GroupAggregate{}
	for _, g := range groups {
		byName[g.Group] = g
	}
	assert.Equal(t, 1, byName["temporal"].Correct)
	assert.Equal(t, 1, byName["preference"].Total)
	assert.Equal(t, 1, byName["unknown"].Total, "rows without the field group as unknown")
}

func TestCompareProviders(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q1", true, 0.9)))
	require.NoError(t, s.SaveResult(result("run-1", "lme", "other", "q1", false, 0.2)))
	require.NoError(t, s.SaveResult(result("run-1", "lme", "third", "q1", true, 0.5)))

	aggs, err := s.CompareProviders("run-1", "lme", []string{"memdb", "other"})
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "memdb", aggs[0].Provider, "best average score first")

	// Empty subset compares everything.
	aggs, err = s.CompareProviders("run-1", "lme", nil)
	require.NoError(t, err)
	assert.Len(t, aggs, 3)
}

func TestExportJSON(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")
	require.NoError(t, s.SaveResult(result("run-1", "lme", "memdb", "q1", true, 1.0)))

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(&buf, "run-1"))

	var doc ExportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.Run.ID)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "q1", doc.Results[0].ItemID)
}

func TestExportCSVQuoting(t *testing.T) {
	s := openTestStore(t)
	seedRun(t, s, "run-1")

	r := result("run-1", "lme", "memdb", "q1", true, 0.5)
	r.Question = `What did "Mel" say, exactly?`
	require.NoError(t, s.SaveResult(r))

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf, "run-1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	// Embedded quotes double, the field itself is quoted.
	assert.Contains(t, lines[1], `"What did ""Mel"" say, exactly?"`)
	assert.Contains(t, lines[1], "0.5")
}

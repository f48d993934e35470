package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func writeConfig(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	path := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, name), []byte(body), 0o644))
}

func TestLoadWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "benchmarks", "lme.yaml", `
name: longmemeval
display_name: LongMemEval
version: "1.0"
tags: [qa, memory]
source:
  type: local
  path: data/longmemeval.json
  format: record-array
`)
	writeConfig(t, dir, "providers", "memdb.yaml", `
name: memdb
type: local
local:
  adapter: memdb
`)

	ws, err := loadWorkspace(dir)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"longmemeval"}, ws.benchmarkNames()); diff != "" {
		t.Errorf("benchmark names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"memdb"}, ws.providerNames()); diff != "" {
		t.Errorf("provider names mismatch (-want +got):\n%s", diff)
	}

	selected, err := ws.selectBenchmarks([]string{"longmemeval"})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "LongMemEval", selected[0].DisplayName)
}

func TestLoadWorkspaceMissingDirsTolerated(t *testing.T) {
	ws, err := loadWorkspace(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ws.benchmarkNames())
	assert.Empty(t, ws.providerNames())
}

func TestSelectUnknownNameListsAvailable(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "benchmarks", "a.yaml", "name: alpha\nsource:\n  type: local\n  path: a.jsonl\n")
	ws, err := loadWorkspace(dir)
	require.NoError(t, err)

	_, err = ws.selectBenchmarks([]string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown benchmark "nope"`)
	assert.Contains(t, err.Error(), "alpha")
}

func TestLoadWorkspaceDuplicateNameFails(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "benchmarks", "a.yaml", "name: alpha\nsource:\n  type: local\n  path: a.jsonl\n")
	writeConfig(t, dir, "benchmarks", "b.yaml", "name: alpha\nsource:\n  type: local\n  path: b.jsonl\n")

	_, err := loadWorkspace(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, b ,c"))
	assert.Nil(t, splitCSV(""))
	assert.Nil(t, splitCSV(" , ,"))
}

func TestHasAllTags(t *testing.T) {
	assert.True(t, hasAllTags([]string{"qa", "memory"}, []string{"qa"}))
	assert.True(t, hasAllTags([]string{"qa"}, nil))
	assert.False(t, hasAllTags([]string{"qa"}, []string{"qa", "code"}))
}

func TestGroupByPairPreservesOrder(t *testing.T) {
	rows := []types.EvalResult{
		{Benchmark: "b1", Provider: "p1", ItemID: "q1"},
		{Benchmark: "b1", Provider: "p2", ItemID: "q1"},
		{Benchmark: "b1", Provider: "p1", ItemID: "q2"},
	}
	groups := groupByPair(rows)
	require.Len(t, groups, 2)
	assert.Equal(t, "p1", groups[0].provider)
	require.Len(t, groups[0].results, 2)
	assert.Equal(t, "q1", groups[0].results[0].ItemID)
	assert.Equal(t, "q2", groups[0].results[1].ItemID)
	assert.Equal(t, "p2", groups[1].provider)
}

func TestEvalRejectsInvertedRange(t *testing.T) {
	evalStart, evalEnd = 5, 2
	t.Cleanup(func() { evalStart, evalEnd = 0, 0 })

	err := runEval(evalCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start (5) must not exceed --end (2)")
}

func TestFormatExt(t *testing.T) {
	assert.Equal(t, ".csv", formatExt("tabular"))
	assert.Equal(t, ".json", formatExt("record-array"))
	assert.Equal(t, ".jsonl", formatExt("line-delimited-records"))
	assert.Equal(t, ".jsonl", formatExt(""))
}

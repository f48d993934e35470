package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/checkpoint"
	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/evaluator"
	"github.com/ashikshafi08/memorybench-sub000/internal/loader"
	"github.com/ashikshafi08/memorybench-sub000/internal/metrics"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/provider"
	"github.com/ashikshafi08/memorybench-sub000/internal/store"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// flakyEvaluator fails the first evaluation of each item id it is told to
// trip on, then succeeds. It records every item it sees.
type flakyEvaluator struct {
	mu      sync.Mutex
	tripped map[string]bool
	failIDs map[string]struct{}
	seen    []string
}

func newFlaky(failIDs ...string) *flakyEvaluator {
	ids := map[string]struct{}{}
	for _, id := range failIDs {
		ids[id] = struct{}{}
	}
	return &flakyEvaluator{tripped: map[string]bool{}, failIDs: ids}
}

func (f *flakyEvaluator) Name() string { return "flaky" }

func (f *flakyEvaluator) Evaluate(_ context.Context, in evaluator.Input) (evaluator.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, in.Item.ID)
	if _, shouldFail := f.failIDs[in.Item.ID]; shouldFail && !f.tripped[in.Item.ID] {
		f.tripped[in.Item.ID] = true
		return evaluator.Outcome{}, fmt.Errorf("transient scorer failure")
	}
	return evaluator.Outcome{Actual: in.Item.Answer, Score: 1.0, Correct: true}, nil
}

func (f *flakyEvaluator) seenIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

type testEnv struct {
	runner *Runner
	store  *store.Store
	cps    *checkpoint.Manager
	flaky  *flakyEvaluator
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	packReg, err := packs.DefaultRegistry(nil)
	require.NoError(t, err)

	flaky := newFlaky("r2")
	evals := evaluator.DefaultRegistry(nil)
	require.NoError(t, evals.Register("flaky", flaky))

	cps := checkpoint.NewManager(filepath.Join(dir, "checkpoints"))
	r := New(Deps{
		Loaders:     loader.DefaultRegistry(),
		Evaluators:  evals,
		Packs:       packReg,
		Adapters:    provider.DefaultAdapters(),
		Metrics:     metrics.DefaultRegistry(),
		Checkpoints: cps,
		Store:       s,
	})
	return &testEnv{runner: r, store: s, cps: cps, flaky: flaky}
}

func memdbProvider(name string) *config.ProviderConfig {
	return &config.ProviderConfig{
		Name:  name,
		Type:  config.ProviderLocal,
		Local: &config.LocalProvider{Adapter: "memdb"},
	}
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// codeBenchmark builds a coderet-filerecall config over a two-task dataset
// whose corpus contents lexically match the questions.
func codeBenchmark(t *testing.T) *config.BenchmarkConfig {
	t.Helper()
	data := strings.Join([]string{
		`{"id": "t1", "question": "where does the session cache get fixed", "modified_files": ["src/cache.py"], "corpus": [{"path": "src/cache.py", "content": "the session cache get fixed right here"}, {"path": "src/other.py", "content": "unrelated helper code"}]}`,
		`{"id": "t2", "question": "which file handles token parsing", "modified_files": ["src/parse.py", "src/lex.py"], "corpus": [{"path": "src/parse.py", "content": "this file handles token parsing"}]}`,
	}, "\n")
	return &config.BenchmarkConfig{
		Name:    "coderet-filerecall",
		Source:  config.DataSource{Type: "local", Path: writeDataset(t, "tasks.jsonl", data)},
		Metrics: []string{"accuracy", "file_recall_at_10", "mrr"},
	}
}

func TestRunCodeBenchmarkEndToEnd(t *testing.T) {
	env := newEnv(t)

	var progress []Progress
	var mu sync.Mutex
	out, err := env.runner.Run(context.Background(),
		[]*config.BenchmarkConfig{codeBenchmark(t)},
		[]*config.ProviderConfig{memdbProvider("memdb")},
		Options{RunID: "run-1", Progress: func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		}},
	)
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)

	pair := out.Pairs[0]
	assert.Empty(t, pair.Error)
	assert.Equal(t, 2, pair.TotalItems)
	assert.Equal(t, 2, pair.CompletedItems)
	assert.Zero(t, pair.FailedItems)
	// t1: modified file retrieved; t2: src/parse.py retrieved, src/lex.py
	// absent from the corpus, so coverage is 0.5 but still counts as found.
	assert.Equal(t, 1.0, pair.Accuracy)

	byName := map[string]types.MetricResult{}
	for _, m := range pair.Metrics {
		byName[m.Name] = m
	}
	assert.Equal(t, 1.0, byName["accuracy"].Value)
	assert.InDelta(t, 0.75, byName["file_recall_at_10"].Value, 1e-9)
	assert.Positive(t, byName["mrr"].Value)

	// Rows persisted with telemetry merged into metadata.
	rows, err := env.store.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	tel := types.MetaMap(rows[0].Metadata, "telemetry")
	require.NotNil(t, tel)
	_, ok := tel["totalLatencyMs"]
	assert.True(t, ok)
	assert.NotEmpty(t, types.MetaString(rows[0].Metadata, "reasoning"))

	// Run completion stamped.
	run, err := env.store.GetRun("run-1")
	require.NoError(t, err)
	assert.NotNil(t, run.CompletedAt)

	// Progress covered both phases.
	mu.Lock()
	defer mu.Unlock()
	phases := map[string]bool{}
	for _, p := range progress {
		phases[p.Phase] = true
	}
	assert.True(t, phases["ingest"])
	assert.True(t, phases["evaluate"])
}

func qaBenchmark(t *testing.T, method string) *config.BenchmarkConfig {
	t.Helper()
	data := strings.Join([]string{
		`{"id": "r1", "question": "first question", "answer": "a1", "passage": "first question context"}`,
		`{"id": "r2", "question": "second question", "answer": "a2", "passage": "second question context"}`,
		`{"id": "r3", "question": "third question", "answer": "a3", "passage": "third question context"}`,
	}, "\n")
	return &config.BenchmarkConfig{
		Name:   "simpleqa",
		Source: config.DataSource{Type: "local", Path: writeDataset(t, "qa.jsonl", data), Format: config.FormatLineDelim},
		Schema: config.SchemaConfig{
			ID: "id", Question: "question", Answer: "answer",
			Context: config.ContextSchema{Type: "string", Path: "passage"},
		},
		Evaluation: config.EvaluationConfig{Method: method},
	}
}

func TestPerItemFailureAndResume(t *testing.T) {
	env := newEnv(t)
	bench := qaBenchmark(t, "flaky")
	providers := []*config.ProviderConfig{memdbProvider("memdb")}

	out, err := env.runner.Run(context.Background(), []*config.BenchmarkConfig{bench}, providers, Options{RunID: "run-1"})
	require.NoError(t, err)
	pair := out.Pairs[0]
	assert.Equal(t, 3, pair.TotalItems)
	assert.Equal(t, 2, pair.CompletedItems)
	assert.Equal(t, 1, pair.FailedItems)

	rows, err := env.store.GetResults("run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "failed item has no stored row yet")

	stats, err := env.cps.Stats("run-1", "simpleqa", "memdb")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	// Resume the same run: only the failed item is re-evaluated.
	before := len(env.flaky.seenIDs())
	out, err = env.runner.Run(context.Background(), []*config.BenchmarkConfig{bench}, providers, Options{RunID: "run-1"})
	require.NoError(t, err)
	pair = out.Pairs[0]
	assert.Equal(t, 3, pair.CompletedItems)
	assert.Zero(t, pair.FailedItems)

	seen := env.flaky.seenIDs()
	assert.Equal(t, before+1, len(seen), "completed items are skipped on resume")
	assert.Equal(t, "r2", seen[len(seen)-1])

	rows, err = env.store.GetResults("run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestValidationAbortsBeforeWork(t *testing.T) {
	env := newEnv(t)
	providers := []*config.ProviderConfig{memdbProvider("memdb")}

	t.Run("unknown metric", func(t *testing.T) {
		bench := codeBenchmark(t)
		bench.Metrics = []string{"accuracy", "made_up_metric"}
		_, err := env.runner.Run(context.Background(), []*config.BenchmarkConfig{bench}, providers, Options{RunID: "run-x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "made_up_metric")
	})

	t.Run("unknown evaluator method", func(t *testing.T) {
		bench := qaBenchmark(t, "no-such-method")
		_, err := env.runner.Run(context.Background(), []*config.BenchmarkConfig{bench}, providers, Options{RunID: "run-y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no-such-method")
	})

	t.Run("sealed facet override", func(t *testing.T) {
		bench := codeBenchmark(t)
		bench.Evaluation.Method = "exact-match" // pack owns scoring
		_, err := env.runner.Run(context.Background(), []*config.BenchmarkConfig{bench}, providers, Options{RunID: "run-z"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "coderet-filerecall@1.0.0")
	})

	t.Run("nothing to run", func(t *testing.T) {
		_, err := env.runner.Run(context.Background(), nil, providers, Options{RunID: "run-w"})
		require.Error(t, err)
	})

	// None of the aborted runs left a record.
	for _, id := range []string{"run-x", "run-y", "run-z", "run-w"} {
		_, err := env.store.GetRun(id)
		assert.Error(t, err, id)
	}
}

func TestProviderFailureAbortsPairNotRun(t *testing.T) {
	env := newEnv(t)
	bad := &config.ProviderConfig{
		Name:  "boxed",
		Type:  config.ProviderContainer,
		Container: &config.ContainerProvider{ComposeFile: "compose.yml", Service: "svc"},
	}

	out, err := env.runner.Run(context.Background(),
		[]*config.BenchmarkConfig{codeBenchmark(t)},
		[]*config.ProviderConfig{memdbProvider("memdb"), bad},
		Options{RunID: "run-1"})
	require.NoError(t, err, "one broken provider must not fail the run")
	require.Len(t, out.Pairs, 2)

	byProvider := map[string]PairResult{}
	for _, p := range out.Pairs {
		byProvider[p.Provider] = p
	}
	assert.Empty(t, byProvider["memdb"].Error)
	assert.Equal(t, 2, byProvider["memdb"].CompletedItems)
	assert.NotEmpty(t, byProvider["boxed"].Error)
	assert.Zero(t, byProvider["boxed"].TotalItems)
}

// clearCounting wraps a provider and counts Clear calls.
type clearCounting struct {
	provider.Provider
	clears *atomic.Int32
}

func (c *clearCounting) Clear(ctx context.Context) error {
	c.clears.Add(1)
	return c.Provider.Clear(ctx)
}

func TestCleanupClearsRunScopedState(t *testing.T) {
	env := newEnv(t)
	var clears atomic.Int32
	require.NoError(t, env.runner.deps.Adapters.Register("countmem",
		func(cfg *config.ProviderConfig, scope string) (provider.Provider, error) {
			return &clearCounting{Provider: provider.NewMemDB(cfg.Name, scope), clears: &clears}, nil
		}))
	counting := &config.ProviderConfig{
		Name:  "countmem",
		Type:  config.ProviderLocal,
		Local: &config.LocalProvider{Adapter: "countmem"},
	}

	out, err := env.runner.Run(context.Background(),
		[]*config.BenchmarkConfig{codeBenchmark(t)},
		[]*config.ProviderConfig{counting},
		Options{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)
	assert.Empty(t, out.Pairs[0].Error)
	assert.Equal(t, 2, out.Pairs[0].CompletedItems)
	assert.Equal(t, int32(1), clears.Load(), "run-scoped state is cleared once the pair finishes")
}

func TestEvaluateAbortsOnCheckpointReadFailure(t *testing.T) {
	env := newEnv(t)
	// A plain file where the checkpoint tree should be makes every
	// checkpoint read fail with a real I/O error, not a missing file.
	base := filepath.Join(t.TempDir(), "checkpoints")
	require.NoError(t, os.WriteFile(base, []byte("in the way"), 0o644))
	env.runner.deps.Checkpoints = checkpoint.NewManager(base)

	cfg := qaBenchmark(t, "exact-match")
	pcfg := memdbProvider("memdb")
	prov, err := env.runner.deps.Adapters.New(pcfg, "scope")
	require.NoError(t, err)

	items := []types.BenchmarkItem{{ID: "r1", Question: "q", Answer: "a"}}
	_, err = env.runner.evaluate(context.Background(), prov, cfg, pcfg, items, Options{RunID: "run-1"}, zap.NewNop())
	require.Error(t, err, "checkpoint read failures are fatal for the pair")
	assert.Contains(t, err.Error(), "checkpoint")
}

func TestContextDedupAcrossItems(t *testing.T) {
	// Nested questions share parent contexts; the provider must see each
	// context once.
	env := newEnv(t)
	data := `[{"sample_id": "conv-1", "qa": [{"question": "q one", "answer": "alpha"}, {"question": "q two", "answer": "beta"}], "conversation": {"session_1": [{"speaker": "A", "text": "alpha beta gamma"}], "session_1_date_time": "noon"}}]`
	bench := &config.BenchmarkConfig{
		Name:   "sharedctx",
		Source: config.DataSource{Type: "local", Path: writeDataset(t, "shared.json", data), Format: config.FormatRecordList},
		Schema: config.SchemaConfig{
			ID: "sample_id",
			Questions: &config.NestedQuestionSchema{Path: "qa", Question: "question", Answer: "answer"},
			Context: config.ContextSchema{Type: "object", Path: "conversation"},
		},
		Evaluation: config.EvaluationConfig{Method: "exact-match"},
	}

	out, err := env.runner.Run(context.Background(),
		[]*config.BenchmarkConfig{bench},
		[]*config.ProviderConfig{memdbProvider("memdb")},
		Options{RunID: "run-1"})
	require.NoError(t, err)
	pair := out.Pairs[0]
	assert.Equal(t, 2, pair.TotalItems)
	assert.Empty(t, pair.Error)

	// Both items retrieved the single shared context.
	rows, err := env.store.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Len(t, row.Retrieved, 1)
		assert.Equal(t, "conv-1-session_1", row.Retrieved[0].ID)
	}
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func compute(t *testing.T, in ComputeInput, name string) types.MetricResult {
	t.Helper()
	out, err := DefaultRegistry().Compute(in, []string{name})
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func TestAccuracy(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{Correct: true}, {Correct: false}, {Correct: true}, {Correct: true},
	}}
	got := compute(t, in, "accuracy")
	assert.Equal(t, 0.75, got.Value)
	assert.Equal(t, 3, got.Details["correct"])

	assert.Zero(t, compute(t, ComputeInput{}, "accuracy").Value)
}

func TestGroupedAccuracyIsMacroAveraged(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{Correct: true, Metadata: map[string]interface{}{"questionType": "temporal"}},
		{Correct: false, Metadata: map[string]interface{}{"questionType": "temporal"}},
		{Correct: true, Metadata: map[string]interface{}{"questionType": "preference"}},
	}}
	got := compute(t, in, "accuracy_by_question_type")
	// Macro mean of 0.5 and 1.0, not the pooled 2/3.
	assert.Equal(t, 0.75, got.Value)

	group := got.Details["temporal"].(map[string]interface{})
	assert.Equal(t, 0.5, group["accuracy"])
	assert.Equal(t, 2, group["total"])
}

func TestAccuracyByCategoryNumericFallback(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{Correct: true, Metadata: map[string]interface{}{"categoryName": "temporal"}},
		{Correct: false, Metadata: map[string]interface{}{"category": float64(5)}},
	}}
	got := compute(t, in, "accuracy_by_category")
	assert.Contains(t, got.Details, "temporal")
	assert.Contains(t, got.Details, "category-5")
}

func TestAbstentionAccuracy(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{ItemID: "q1", Correct: true},
		{ItemID: "q2_abs", Correct: true},
		{ItemID: "q3_abs", Correct: false},
		{ItemID: "q4", Correct: false, Metadata: map[string]interface{}{"isAbstention": true}},
	}}
	got := compute(t, in, "abstention_accuracy")
	assert.InDelta(t, 1.0/3.0, got.Value, 1e-9)
	assert.Equal(t, 3, got.Details["total"])
}

func TestLexicalAnswerMetrics(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{Actual: "the cat sat", Expected: "the cat sat"},
	}}
	assert.InDelta(t, 1.0, compute(t, in, "f1").Value, 1e-9)
	assert.InDelta(t, 1.0, compute(t, in, "bleu_1").Value, 1e-9)
	assert.InDelta(t, 1.0, compute(t, in, "rouge_l").Value, 1e-9)

	// BLEU-1 clips repeated candidate tokens to reference counts.
	in = ComputeInput{Results: []types.EvalResult{
		{Actual: "cat cat cat cat", Expected: "the cat"},
	}}
	assert.InDelta(t, 0.25, compute(t, in, "bleu_1").Value, 1e-9)

	// ROUGE-L respects order: subsequence, not bag of words.
	in = ComputeInput{Results: []types.EvalResult{
		{Actual: "sat cat", Expected: "cat sat"},
	}}
	assert.InDelta(t, 0.5, compute(t, in, "rouge_l").Value, 1e-9)
}

func TestMRRWithExplicitQrels(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{
			Metadata: map[string]interface{}{"relevantIds": []string{"c2"}},
			Retrieved: []types.SearchResult{
				{ID: "c1", Content: "irrelevant"},
				{ID: "c2", Content: "also judged only by id"},
			},
		},
		{
			Metadata:  map[string]interface{}{"relevantIds": []string{"missing"}},
			Retrieved: []types.SearchResult{{ID: "c1"}},
		},
	}}
	got := compute(t, in, "mrr")
	assert.InDelta(t, 0.25, got.Value, 1e-9) // (1/2 + 0) / 2
}

func TestPrecisionAtKTokenFallback(t *testing.T) {
	// No qrels, no pack: token-overlap fallback against the expected answer.
	in := ComputeInput{Results: []types.EvalResult{
		{
			Expected: "moved to Paris in May",
			Retrieved: []types.SearchResult{
				{Content: "I moved to Paris in May, remember?"},
				{Content: "the weather is nice"},
				{Content: "moved to Paris"},
			},
		},
	}}
	got := compute(t, in, "precision_at_3")
	assert.InDelta(t, 2.0/3.0, got.Value, 1e-9)
}

func TestRecallAtKUsesExpectedCoverage(t *testing.T) {
	// A huge chunk containing the full answer counts even though its
	// bidirectional F1 with the short answer would be tiny.
	big := "lots of padding text around the fact that I moved to Paris in May twenty twenty three and more padding follows here"
	in := ComputeInput{Results: []types.EvalResult{
		{Expected: "moved to Paris in May", Retrieved: []types.SearchResult{{Content: big}}},
		{Expected: "quantum entanglement", Retrieved: []types.SearchResult{{Content: big}}},
	}}
	got := compute(t, in, "recall_at_1")
	assert.Equal(t, 0.5, got.Value)
}

func TestNDCGUsesFullRelevantSet(t *testing.T) {
	// Two relevant results at ranks 2 and 3; K=3.
	in := ComputeInput{Results: []types.EvalResult{{
		Metadata: map[string]interface{}{"relevantIds": []string{"r1", "r2"}},
		Retrieved: []types.SearchResult{
			{ID: "x"}, {ID: "r1"}, {ID: "r2"},
		},
	}}}
	got := compute(t, in, "ndcg_at_3")
	// DCG = 1/log2(3) + 1/log2(4); IDCG = 1/log2(2) + 1/log2(3).
	dcg := 1.0/1.584962500721156 + 0.5
	idcg := 1.0 + 1.0/1.584962500721156
	assert.InDelta(t, dcg/idcg, got.Value, 1e-9)

	// No relevant results anywhere: 0, not NaN.
	in = ComputeInput{Results: []types.EvalResult{{
		Metadata:  map[string]interface{}{"relevantIds": []string{"none"}},
		Retrieved: []types.SearchResult{{ID: "x"}},
	}}}
	assert.Zero(t, compute(t, in, "ndcg_at_3").Value)
}

func TestPackOwnedRelevance(t *testing.T) {
	reg, err := packs.DefaultRegistry(nil)
	require.NoError(t, err)

	in := ComputeInput{
		Benchmark: "coderet-filerecall",
		Packs:     reg,
		Results: []types.EvalResult{{
			Benchmark: "coderet-filerecall",
			Metadata:  map[string]interface{}{"modifiedFiles": []string{"src/fix.py"}},
			Retrieved: []types.SearchResult{
				{ID: "a", Metadata: map[string]interface{}{"filepath": "src/other.py"}},
				{ID: "b", Metadata: map[string]interface{}{"filepath": "src/fix.py"}},
			},
		}},
	}
	got := compute(t, in, "mrr")
	assert.Equal(t, 0.5, got.Value)
}

func TestFileRecallAndFileMRR(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{{
		Metadata: map[string]interface{}{"modifiedFiles": []string{"src/fix.py", "src/test.py"}},
		Retrieved: []types.SearchResult{
			{Metadata: map[string]interface{}{"filepath": "src/other.py"}},
			{Metadata: map[string]interface{}{"filepath": "src/other.py"}}, // dup, not a new rank
			{Metadata: map[string]interface{}{"filepath": "src/fix.py"}},
		},
	}}}

	assert.Equal(t, 0.5, compute(t, in, "file_recall_at_10").Value)
	// Unique-file ranks: other.py=1, fix.py=2.
	assert.Equal(t, 0.5, compute(t, in, "file_mrr").Value)

	// Rows without file ground truth are excluded, not scored as zero.
	in.Results = append(in.Results, types.EvalResult{Expected: "x"})
	assert.Equal(t, 0.5, compute(t, in, "file_recall_at_10").Value)
}

func TestIoUAtK(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{{
		Metadata: map[string]interface{}{
			"groundTruth": map[string]interface{}{"file": "a.go", "startLine": 10, "endLine": 19},
		},
		Retrieved: []types.SearchResult{
			{Metadata: map[string]interface{}{"filepath": "b.go", "startLine": 10, "endLine": 19}},
			{Metadata: map[string]interface{}{"filepath": "a.go", "startLine": 10, "endLine": 19}},
			{Metadata: map[string]interface{}{"filepath": "a.go", "startLine": 15, "endLine": 24}},
		},
	}}}
	got := compute(t, in, "iou_at_10")
	assert.InDelta(t, 1.0, got.Value, 1e-9, "perfect hit in target file wins")
	assert.Contains(t, got.Details, "p50")

	// Restricting to K=1 leaves only the wrong-file result.
	assert.Zero(t, compute(t, in, "iou_at_1").Value)
}

func TestLatencyMetrics(t *testing.T) {
	rows := make([]types.EvalResult, 0, 20)
	for i := 1; i <= 20; i++ {
		rows = append(rows, types.EvalResult{Metadata: map[string]interface{}{
			"telemetry": map[string]interface{}{
				"searchLatencyMs": float64(i),
				"totalLatencyMs":  float64(i * 10),
			},
		}})
	}
	// One row without telemetry is skipped.
	rows = append(rows, types.EvalResult{})

	in := ComputeInput{Results: rows}
	assert.InDelta(t, 10.5, compute(t, in, "avg_search_latency_ms").Value, 1e-9)
	assert.InDelta(t, 105.0, compute(t, in, "avg_total_latency_ms").Value, 1e-9)
	p95 := compute(t, in, "p95_latency_ms").Value
	assert.InDelta(t, 190.5, p95, 1.0)
}

func TestAvgRetrievalScore(t *testing.T) {
	in := ComputeInput{Results: []types.EvalResult{
		{Retrieved: []types.SearchResult{{Score: 0.8}, {Score: 0.4}}},
		{Retrieved: []types.SearchResult{{Score: 0.6}}},
	}}
	assert.InDelta(t, 0.6, compute(t, in, "avg_retrieval_score").Value, 1e-9)
}

func TestRegistryResolve(t *testing.T) {
	r := DefaultRegistry()

	// Unknown names fail the whole request before computation.
	_, err := r.Compute(ComputeInput{}, []string{"accuracy", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	// Aliases de-duplicate against their primary.
	calcs, err := r.Resolve([]string{"accuracy", "acc", "f1", "token_f1"})
	require.NoError(t, err)
	require.Len(t, calcs, 2)
	assert.Equal(t, "accuracy", calcs[0].Name)
	assert.Equal(t, "f1", calcs[1].Name)
}

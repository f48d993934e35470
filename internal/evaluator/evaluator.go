// Package evaluator scores a generated or retrieved answer against the item's
// expected answer. Benchmarks without a pack-owned scorer select an evaluator
// by the evaluation.method config field.
package evaluator

import (
	"context"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/llm"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Input is everything an evaluator may consult for one item.
type Input struct {
	Item      types.BenchmarkItem
	Retrieved []types.SearchResult
	Eval      config.EvaluationConfig
}

// Outcome is one scored item. Actual is the answer that was graded (generated
// by the answering model, or the expected/retrieved text for lexical methods).
type Outcome struct {
	Actual    string
	Score     float64
	Correct   bool
	Details   map[string]interface{}
	Telemetry types.Telemetry
}

// Evaluator grades one item.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, in Input) (Outcome, error)
}

// NewRegistry creates a strict evaluator registry: two evaluators claiming
// the same method name is a programming error.
func NewRegistry() *registry.Registry[Evaluator] {
	return registry.New[Evaluator]("evaluators", registry.Options{ThrowOnConflict: true})
}

// DefaultRegistry registers the built-in evaluators. The llm-judge evaluator
// needs a model client; lexical evaluators do not.
func DefaultRegistry(client llm.Client) *registry.Registry[Evaluator] {
	r := NewRegistry()
	_ = r.Register("exact-match", &ExactMatch{}, "exact_match")
	_ = r.Register("token-f1", &TokenF1{}, "token_f1", "f1")
	if client != nil {
		_ = r.Register("llm-judge", NewLLMJudge(client), "llm_judge")
	}
	return r
}

// RenderContext flattens retrieved results into the {context} prompt slot.
// Results carry an optional date in metadata; dated entries render with the
// date prefixed so temporal questions remain answerable.
func RenderContext(results []types.SearchResult) string {
	if len(results) == 0 {
		return "(no context retrieved)"
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		if date := types.MetaString(r.Metadata, "date"); date != "" {
			b.WriteString("[" + date + "]\n")
		}
		b.WriteString(r.Content)
	}
	return b.String()
}

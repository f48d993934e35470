// Package types provides the shared data model used across memorybench
// packages. This package exists to break import cycles between the runner,
// loaders, packs, evaluators, and metrics. Types here should be foundational
// data structures with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// BENCHMARK ITEMS AND CONTEXTS
// =============================================================================

// PreparedData is one context unit ingested into a provider.
// The ID must be stable across runs and prefixed with the owning item id
// (e.g. "{itemId}-{corpusId}" or "{itemId}-ctx-{index}") so that retrieval
// labels survive re-runs.
type PreparedData struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// BenchmarkItem is one question produced by a loader after schema mapping.
// ID is unique within the benchmark; nested-question datasets synthesize
// "{parentId}-q{index}".
type BenchmarkItem struct {
	ID           string                 `json:"id"`
	Question     string                 `json:"question"`
	Answer       string                 `json:"answer"`
	Contexts     []PreparedData         `json:"contexts,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	QuestionType string                 `json:"questionType,omitempty"`
	Category     string                 `json:"category,omitempty"`
}

// =============================================================================
// SEARCH RESULTS
// =============================================================================

// Chunk is an inner chunk of a search result, used by providers that return
// sub-document granularity.
type Chunk struct {
	ID       string                 `json:"id,omitempty"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResult is one retrieved unit returned by a provider. Higher score is
// more relevant; scores need not be normalized across providers.
type SearchResult struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Chunks   []Chunk                `json:"chunks,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// =============================================================================
// EVALUATION RESULTS
// =============================================================================

// EvalResult is one scored row per (runId, benchmark, provider, itemId).
// Rows are append-only during a run; re-runs upsert on the 4-tuple.
type EvalResult struct {
	RunID     string                 `json:"runId"`
	Benchmark string                 `json:"benchmark"`
	Provider  string                 `json:"provider"`
	ItemID    string                 `json:"itemId"`
	Question  string                 `json:"question"`
	Expected  string                 `json:"expected"`
	Actual    string                 `json:"actual"`
	Score     float64                `json:"score"`
	Correct   bool                   `json:"correct"`
	Retrieved []SearchResult         `json:"retrievedContext,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt,omitempty"`
}

// Key returns the unique identity of the row.
func (r *EvalResult) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s", r.RunID, r.Benchmark, r.Provider, r.ItemID)
}

// MetricResult is the output of one metric computation.
type MetricResult struct {
	Name    string                 `json:"name"`
	Value   float64                `json:"value"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Telemetry captures per-item timing and token counts. It is merged into
// EvalResult.Metadata under the "telemetry" key.
type Telemetry struct {
	SearchLatencyMS float64 `json:"searchLatencyMs"`
	AnswerLatencyMS float64 `json:"answerLatencyMs,omitempty"`
	JudgeLatencyMS  float64 `json:"judgeLatencyMs,omitempty"`
	TotalLatencyMS  float64 `json:"totalLatencyMs"`
	PromptTokens    int     `json:"promptTokens,omitempty"`
	AnswerTokens    int     `json:"answerTokens,omitempty"`
}

// ToMap flattens telemetry into a metadata-compatible map.
func (t Telemetry) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"searchLatencyMs": t.SearchLatencyMS,
		"totalLatencyMs":  t.TotalLatencyMS,
	}
	if t.AnswerLatencyMS > 0 {
		m["answerLatencyMs"] = t.AnswerLatencyMS
	}
	if t.JudgeLatencyMS > 0 {
		m["judgeLatencyMs"] = t.JudgeLatencyMS
	}
	if t.PromptTokens > 0 {
		m["promptTokens"] = t.PromptTokens
	}
	if t.AnswerTokens > 0 {
		m["answerTokens"] = t.AnswerTokens
	}
	return m
}

// =============================================================================
// METADATA HELPERS
// =============================================================================

// MetaString reads a string field from a metadata map, tolerating nil maps.
func MetaString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// MetaStrings reads a string-slice field from a metadata map. JSON round-trips
// produce []interface{}, so both shapes are accepted.
func MetaStrings(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MetaInt reads an integer field from a metadata map, accepting the numeric
// types JSON decoding produces.
func MetaInt(m map[string]interface{}, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// MetaMap reads a nested map field from a metadata map.
func MetaMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// MetaFloat reads a float field from a metadata map.
func MetaFloat(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

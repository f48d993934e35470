// Package packs carries paper-faithful prompts, scoring logic, and relevance
// functions for individual benchmarks at versioned identities
// ("{benchmark}@{version}"). A pack's sealed facets cannot be overridden by
// benchmark configuration; the config validator enforces this at load time.
package packs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Prompt is a fully-rendered prompt plus its stable hash, used for drift
// detection and golden tests.
type Prompt struct {
	Text   string
	SHA256 string
}

// NewPrompt hashes the rendered text (SHA-256 over UTF-8 bytes).
func NewPrompt(text string) Prompt {
	sum := sha256.Sum256([]byte(text))
	return Prompt{Text: text, SHA256: hex.EncodeToString(sum[:])}
}

// Input is one item to score, with its retrieved context.
type Input struct {
	Item      types.BenchmarkItem
	Retrieved []types.SearchResult
	RunID     string
}

// Result is one pack-scored item. Answer is the generated answer for LLM
// packs, or a human-readable summary for deterministic scorers. Reasoning
// explains deterministic verdicts; JudgeResponse records the judge verbatim.
type Result struct {
	Answer        string
	Score         float64
	Correct       bool
	JudgeResponse string
	Reasoning     string
	Telemetry     types.Telemetry
}

// Pack owns one benchmark's evaluation protocol.
type Pack interface {
	BenchmarkName() string
	// PackID is "{benchmark}@{version}".
	PackID() string
	// SealedSemantics declares which facets are pack-owned and non-overridable.
	SealedSemantics() config.SealedFacets

	// BuildAnswerPrompt renders the answering prompt for one item. Packs with
	// deterministic scoring return ok=false.
	BuildAnswerPrompt(item types.BenchmarkItem, retrieved []types.SearchResult) (Prompt, bool)
	// BuildJudgePrompt renders the grading prompt. Packs that skip LLM judging
	// return ok=false.
	BuildJudgePrompt(item types.BenchmarkItem, answer string) (Prompt, bool)

	// Evaluate scores one item, either through LLM calls or deterministically.
	Evaluate(ctx context.Context, in Input) (Result, error)

	// IsRelevant is the dataset-native relevance oracle consulted by
	// rank-sensitive retrieval metrics.
	IsRelevant(item types.BenchmarkItem, result types.SearchResult) bool
}

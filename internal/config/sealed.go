package config

import (
	"fmt"
	"sort"
	"strings"
)

// SealedFacets describes which evaluation facets a benchmark pack owns.
// A sealed facet must not be overridden by external configuration.
type SealedFacets struct {
	Prompts   bool
	Scoring   bool
	Relevance bool
}

// SealedViolationError reports every config field that collides with a
// pack-owned facet. All violations are reported at once.
type SealedViolationError struct {
	Benchmark string
	PackID    string
	Fields    []string
}

func (e *SealedViolationError) Error() string {
	return fmt.Sprintf("benchmark %q: config overrides sealed semantics of pack %s (offending fields: %s)",
		e.Benchmark, e.PackID, strings.Join(e.Fields, ", "))
}

// ValidateSealed checks a benchmark config against the sealed facets of the
// pack that owns the benchmark, if any. Pure over its inputs: a nil packID
// (empty string) means no pack exists and any configuration is allowed.
func ValidateSealed(cfg *BenchmarkConfig, packID string, facets SealedFacets) error {
	if packID == "" {
		return nil
	}

	var fields []string
	if facets.Prompts {
		if cfg.Evaluation.AnswerPrompt != "" {
			fields = append(fields, "evaluation.answer_prompt")
		}
		if cfg.Evaluation.JudgePrompt != "" {
			fields = append(fields, "evaluation.judge_prompt")
		}
	}
	if facets.Scoring {
		if cfg.Evaluation.Method != "" {
			fields = append(fields, "evaluation.method")
		}
		if cfg.Evaluation.CustomEvaluator != "" {
			fields = append(fields, "evaluation.custom_evaluator")
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	return &SealedViolationError{Benchmark: cfg.Name, PackID: packID, Fields: fields}
}

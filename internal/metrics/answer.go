package metrics

import (
	"strconv"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func accuracyCalc() *Calculator {
	return &Calculator{
		Name:        "accuracy",
		Aliases:     []string{"acc"},
		Description: "Fraction of items judged correct",
		Compute: func(in ComputeInput) types.MetricResult {
			correct := 0
			for _, r := range in.Results {
				if r.Correct {
					correct++
				}
			}
			value := 0.0
			if len(in.Results) > 0 {
				value = float64(correct) / float64(len(in.Results))
			}
			return types.MetricResult{
				Name:  "accuracy",
				Value: value,
				Details: map[string]interface{}{
					"correct": correct,
					"total":   len(in.Results),
				},
			}
		},
	}
}

// groupedAccuracy builds a macro-averaged accuracy over a metadata grouping
// field, exposing per-group rates in details.
func groupedAccuracy(name, field string) *Calculator {
	return &Calculator{
		Name:        name,
		Description: "Macro-averaged accuracy grouped by " + field,
		Compute: func(in ComputeInput) types.MetricResult {
			type tally struct{ correct, total int }
			groups := map[string]*tally{}
			for _, r := range in.Results {
				key := groupKey(r.Metadata, field)
				if key == "" {
					key = "unknown"
				}
				g := groups[key]
				if g == nil {
					g = &tally{}
					groups[key] = g
				}
				g.total++
				if r.Correct {
					g.correct++
				}
			}

			details := map[string]interface{}{}
			var rates []float64
			for key, g := range groups {
				rate := float64(g.correct) / float64(g.total)
				rates = append(rates, rate)
				details[key] = map[string]interface{}{
					"accuracy": rate,
					"correct":  g.correct,
					"total":    g.total,
				}
			}
			return types.MetricResult{Name: name, Value: mean(rates), Details: details}
		},
	}
}

// groupKey tolerates numeric category values alongside named ones.
func groupKey(meta map[string]interface{}, field string) string {
	if s := types.MetaString(meta, field); s != "" {
		return s
	}
	if field == "category" {
		if s := types.MetaString(meta, "categoryName"); s != "" {
			return s
		}
		if n, ok := types.MetaInt(meta, "category"); ok {
			return "category-" + strconv.Itoa(n)
		}
	}
	return ""
}

func abstentionAccuracyCalc() *Calculator {
	return &Calculator{
		Name:        "abstention_accuracy",
		Description: "Accuracy over items flagged as abstention questions",
		Compute: func(in ComputeInput) types.MetricResult {
			correct, total := 0, 0
			for _, r := range in.Results {
				if !isAbstentionRow(&r) {
					continue
				}
				total++
				if r.Correct {
					correct++
				}
			}
			value := 0.0
			if total > 0 {
				value = float64(correct) / float64(total)
			}
			return types.MetricResult{
				Name:  "abstention_accuracy",
				Value: value,
				Details: map[string]interface{}{
					"correct": correct,
					"total":   total,
				},
			}
		},
	}
}

func isAbstentionRow(r *types.EvalResult) bool {
	if v, ok := r.Metadata["isAbstention"].(bool); ok {
		return v
	}
	return strings.HasSuffix(r.ItemID, "_abs")
}

func f1Calc() *Calculator {
	return &Calculator{
		Name:        "f1",
		Aliases:     []string{"token_f1"},
		Description: "Mean token-level F1 between actual and expected answers",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				scores = append(scores, relevance.TokenF1(r.Actual, r.Expected))
			}
			return types.MetricResult{Name: "f1", Value: mean(scores)}
		},
	}
}

func bleu1Calc() *Calculator {
	return &Calculator{
		Name:        "bleu_1",
		Aliases:     []string{"bleu1"},
		Description: "Mean unigram precision with reference clipping",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				scores = append(scores, bleu1(r.Actual, r.Expected))
			}
			return types.MetricResult{Name: "bleu_1", Value: mean(scores)}
		},
	}
}

// bleu1 computes clipped unigram precision: each candidate token counts at
// most as often as it appears in the reference.
func bleu1(candidate, reference string) float64 {
	cand := relevance.Tokenize(candidate)
	if len(cand) == 0 {
		return 0
	}
	refCounts := map[string]int{}
	for _, tok := range relevance.Tokenize(reference) {
		refCounts[tok]++
	}
	clipped := 0
	for _, tok := range cand {
		if refCounts[tok] > 0 {
			clipped++
			refCounts[tok]--
		}
	}
	return float64(clipped) / float64(len(cand))
}

func rougeLCalc() *Calculator {
	return &Calculator{
		Name:        "rouge_l",
		Aliases:     []string{"rougeL"},
		Description: "Mean LCS-based F1 between actual and expected answers",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				scores = append(scores, rougeL(r.Actual, r.Expected))
			}
			return types.MetricResult{Name: "rouge_l", Value: mean(scores)}
		},
	}
}

// rougeL is the LCS F1 over tokens, with a two-row DP table.
func rougeL(candidate, reference string) float64 {
	cand := relevance.Tokenize(candidate)
	ref := relevance.Tokenize(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}

	prev := make([]int, len(ref)+1)
	curr := make([]int, len(ref)+1)
	for i := 1; i <= len(cand); i++ {
		for j := 1; j <= len(ref); j++ {
			if cand[i-1] == ref[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := float64(prev[len(ref)])
	if lcs == 0 {
		return 0
	}
	precision := lcs / float64(len(cand))
	recall := lcs / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

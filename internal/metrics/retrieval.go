package metrics

import (
	"fmt"
	"math"

	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func mrrCalc() *Calculator {
	return &Calculator{
		Name:        "mrr",
		Description: "Mean reciprocal rank of the first relevant result",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				oracle := oracleFor(in, &r, defaultRelevanceThreshold)
				rr := 0.0
				for i, sr := range r.Retrieved {
					if oracle.relevant(sr) {
						rr = 1.0 / float64(i+1)
						break
					}
				}
				scores = append(scores, rr)
			}
			return types.MetricResult{Name: "mrr", Value: mean(scores)}
		},
	}
}

func precisionAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("precision_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("precision@%d", k)},
		Description: fmt.Sprintf("Mean fraction of relevant results in the top %d", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				oracle := oracleFor(in, &r, defaultRelevanceThreshold)
				hits := 0
				for _, sr := range topK(r.Retrieved, k) {
					if oracle.relevant(sr) {
						hits++
					}
				}
				scores = append(scores, float64(hits)/float64(k))
			}
			return types.MetricResult{Name: name, Value: mean(scores)}
		},
	}
}

// recallAtKCalc uses expected-token coverage rather than bidirectional F1 so
// large chunks that contain the whole answer are not penalized for their
// extra content.
func recallAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("recall_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("recall@%d", k)},
		Description: fmt.Sprintf("Fraction of items where a top-%d result covers the expected answer", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				found := 0.0
				for _, sr := range topK(r.Retrieved, k) {
					if coverageHit(sr, r.Expected, defaultRelevanceThreshold) {
						found = 1.0
						break
					}
				}
				scores = append(scores, found)
			}
			return types.MetricResult{Name: name, Value: mean(scores)}
		},
	}
}

func coverageHit(sr types.SearchResult, expected string, threshold float64) bool {
	if relevance.ExpectedTokenCoverage(expected, sr.Content) >= threshold {
		return true
	}
	for _, c := range sr.Chunks {
		if relevance.ExpectedTokenCoverage(expected, c.Content) >= threshold {
			return true
		}
	}
	return false
}

// ndcgAtKCalc computes nDCG@K with binary gains. The ideal DCG normalizes
// over the full relevant-set size in the retrieved list, not just the top-K
// hit count, so a ranking that buries relevant results below K is penalized.
func ndcgAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("ndcg_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("ndcg@%d", k)},
		Description: fmt.Sprintf("Normalized discounted cumulative gain at %d", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				oracle := oracleFor(in, &r, defaultRelevanceThreshold)
				flags := oracle.relevantFlags(r.Retrieved)

				totalRelevant := 0
				for _, f := range flags {
					if f {
						totalRelevant++
					}
				}
				if totalRelevant == 0 {
					scores = append(scores, 0)
					continue
				}

				dcg := 0.0
				for i := 0; i < len(flags) && i < k; i++ {
					if flags[i] {
						dcg += 1.0 / math.Log2(float64(i)+2)
					}
				}
				idcg := 0.0
				ideal := totalRelevant
				if ideal > k {
					ideal = k
				}
				for i := 0; i < ideal; i++ {
					idcg += 1.0 / math.Log2(float64(i)+2)
				}
				scores = append(scores, dcg/idcg)
			}
			return types.MetricResult{Name: name, Value: mean(scores)}
		},
	}
}

// successAtKCalc combines answer correctness with retrieval quality: the item
// scores only when it was judged correct and some top-K result lexically
// supports the answer.
func successAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("success_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("success@%d", k)},
		Description: fmt.Sprintf("Correct answers grounded by a top-%d result", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				score := 0.0
				if r.Correct {
					for _, sr := range topK(r.Retrieved, k) {
						if relevance.TokenF1(sr.Content, r.Expected) >= successThreshold {
							score = 1.0
							break
						}
					}
				}
				scores = append(scores, score)
			}
			return types.MetricResult{Name: name, Value: mean(scores)}
		},
	}
}

func avgRetrievalScoreCalc() *Calculator {
	return &Calculator{
		Name:        "avg_retrieval_score",
		Description: "Mean provider score over all retrieved results",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				for _, sr := range r.Retrieved {
					scores = append(scores, sr.Score)
				}
			}
			return types.MetricResult{Name: "avg_retrieval_score", Value: mean(scores)}
		},
	}
}

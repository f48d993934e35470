package metrics

import (
	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Default thresholds for the token-overlap relevance fallback.
const (
	defaultRelevanceThreshold = 0.3
	successThreshold          = 0.1
)

// qrelKeys are the metadata fields accepted as explicit relevance judgments,
// in priority order.
var qrelKeys = []string{"relevantIds", "relevantChunkIds", "groundTruthIds", "qrels"}

// relevanceOracle fixes the relevance strategy for one result row so that all
// ranks of one row are judged consistently.
type relevanceOracle struct {
	qrels map[string]struct{}
	pack  packRelevance
	item  types.BenchmarkItem
	// expected feeds the token fallback.
	expected  string
	threshold float64
}

type packRelevance interface {
	IsRelevant(item types.BenchmarkItem, result types.SearchResult) bool
}

// oracleFor builds the relevance oracle for one result row: explicit qrels
// win, then the benchmark pack's relevance function when it is sealed, then
// token-overlap against the expected answer.
func oracleFor(in ComputeInput, res *types.EvalResult, threshold float64) relevanceOracle {
	o := relevanceOracle{expected: res.Expected, threshold: threshold}
	if threshold <= 0 {
		o.threshold = defaultRelevanceThreshold
	}

	for _, key := range qrelKeys {
		if ids := types.MetaStrings(res.Metadata, key); len(ids) > 0 {
			o.qrels = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				o.qrels[id] = struct{}{}
			}
			return o
		}
	}

	benchmark := in.Benchmark
	if benchmark == "" {
		benchmark = res.Benchmark
	}
	if in.Packs != nil {
		if p, ok := in.Packs.GetLatest(benchmark); ok && p.SealedSemantics().Relevance {
			o.pack = p
			// Reconstruct the item shape the pack's oracle expects.
			o.item = types.BenchmarkItem{
				ID:       res.ItemID,
				Question: res.Question,
				Answer:   res.Expected,
				Metadata: res.Metadata,
			}
		}
	}
	return o
}

// relevant judges one retrieved result.
func (o relevanceOracle) relevant(sr types.SearchResult) bool {
	if o.qrels != nil {
		if _, ok := o.qrels[sr.ID]; ok {
			return true
		}
		for _, c := range sr.Chunks {
			if _, ok := o.qrels[c.ID]; ok {
				return true
			}
		}
		return false
	}
	if o.pack != nil {
		return o.pack.IsRelevant(o.item, sr)
	}
	return relevance.TokenF1(sr.Content, o.expected) >= o.threshold
}

// relevantFlags judges the full retrieved list of one row.
func (o relevanceOracle) relevantFlags(retrieved []types.SearchResult) []bool {
	flags := make([]bool, len(retrieved))
	for i, sr := range retrieved {
		flags[i] = o.relevant(sr)
	}
	return flags
}

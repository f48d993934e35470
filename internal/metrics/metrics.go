// Package metrics computes named metrics over stored evaluation results.
// Calculators are pure: no I/O, no mutation of inputs. Rank-sensitive metrics
// resolve relevance through a three-tier strategy: explicit qrels in result
// metadata, then the benchmark pack's relevance oracle, then a token-overlap
// fallback.
package metrics

import (
	"fmt"
	"sort"

	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// ComputeInput carries the result set and the optional pack registry used for
// pack-owned relevance.
type ComputeInput struct {
	Benchmark string
	Results   []types.EvalResult
	Packs     *packs.Registry
}

// Calculator is one registered metric.
type Calculator struct {
	Name        string
	Aliases     []string
	Description string
	Compute     func(in ComputeInput) types.MetricResult
}

// Registry wraps the generic registry with fail-fast name validation and
// alias de-duplication. Metric name conflicts are programming errors, so the
// underlying registry runs strict.
type Registry struct {
	inner *registry.Registry[*Calculator]
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.New[*Calculator]("metrics", registry.Options{ThrowOnConflict: true})}
}

// Register adds a calculator under its name and aliases.
func (r *Registry) Register(c *Calculator) error {
	return r.inner.Register(c.Name, c, c.Aliases...)
}

// Names lists registered primary names, sorted.
func (r *Registry) Names() []string { return r.inner.Keys() }

// Get returns one calculator.
func (r *Registry) Get(name string) (*Calculator, error) {
	return r.inner.GetOrError(name)
}

// Resolve validates all requested names up front and de-duplicates metrics
// requested under different aliases, preserving first-mention order. Any
// unknown name fails the whole request before computation starts.
func (r *Registry) Resolve(names []string) ([]*Calculator, error) {
	var out []*Calculator
	seen := map[string]struct{}{}
	for _, name := range names {
		c, err := r.inner.GetOrError(name)
		if err != nil {
			return nil, fmt.Errorf("resolve metrics: %w", err)
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Compute resolves the requested metric names and runs each calculator over
// the result set.
func (r *Registry) Compute(in ComputeInput, names []string) ([]types.MetricResult, error) {
	calcs, err := r.Resolve(names)
	if err != nil {
		return nil, err
	}
	out := make([]types.MetricResult, 0, len(calcs))
	for _, c := range calcs {
		out = append(out, c.Compute(in))
	}
	return out, nil
}

// TopKs are the rank cutoffs every @K metric family is registered for.
var TopKs = []int{1, 3, 5, 10}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile computes the given percentile with nearest-rank interpolation
// over a sorted copy of the values.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

func topK(results []types.SearchResult, k int) []types.SearchResult {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}

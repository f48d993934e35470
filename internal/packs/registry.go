package packs

import (
	"fmt"
	"sync"

	"github.com/ashikshafi08/memorybench-sub000/internal/llm"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
)

// Registry stores packs under "{benchmarkName}:{packId}" and tracks
// registration order per benchmark so GetLatest can return the first
// registered pack. Conflicts on the full key are fatal.
type Registry struct {
	mu    sync.RWMutex
	inner *registry.Registry[Pack]
	// order holds pack ids per benchmark in registration order.
	order map[string][]string
}

// NewRegistry creates an empty pack registry.
func NewRegistry() *Registry {
	return &Registry{
		inner: registry.New[Pack]("packs", registry.Options{ThrowOnConflict: true}),
		order: map[string][]string{},
	}
}

// Key builds the registry key for one pack identity.
func Key(benchmark, packID string) string {
	return benchmark + ":" + packID
}

// Register adds a pack. Re-registering the same (benchmark, packId) fails.
func (r *Registry) Register(p Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.inner.Register(Key(p.BenchmarkName(), p.PackID()), p); err != nil {
		return err
	}
	r.order[p.BenchmarkName()] = append(r.order[p.BenchmarkName()], p.PackID())
	return nil
}

// Get returns the pack registered under the exact (benchmark, packId).
func (r *Registry) Get(benchmark, packID string) (Pack, error) {
	return r.inner.GetOrError(Key(benchmark, packID))
}

// GetLatest returns the first-registered pack for the benchmark. Version
// ordering is deliberately not consulted; a comparison policy can replace
// this lookup without changing callers.
func (r *Registry) GetLatest(benchmark string) (Pack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.order[benchmark]
	if len(ids) == 0 {
		return nil, false
	}
	p, ok := r.inner.Get(Key(benchmark, ids[0]))
	return p, ok
}

// Has reports whether any pack is registered for the benchmark.
func (r *Registry) Has(benchmark string) bool {
	_, ok := r.GetLatest(benchmark)
	return ok
}

// Keys lists all registered pack keys.
func (r *Registry) Keys() []string { return r.inner.Keys() }

// DefaultRegistry registers the built-in packs. The QA packs need a model
// client; passing nil registers only the deterministic code packs.
func DefaultRegistry(client llm.Client) (*Registry, error) {
	r := NewRegistry()
	if client != nil {
		if err := r.Register(NewLongMemEvalPack(client)); err != nil {
			return nil, err
		}
		if err := r.Register(NewLoCoMoPack(client)); err != nil {
			return nil, err
		}
	}
	for _, spec := range codePackSpecs {
		if err := r.Register(newCodePack(spec)); err != nil {
			return nil, fmt.Errorf("register %s: %w", spec.benchmark, err)
		}
	}
	return r, nil
}

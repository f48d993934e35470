package loader

import (
	"context"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Loader materializes BenchmarkItems from a benchmark's raw data.
type Loader interface {
	Load(ctx context.Context, cfg *config.BenchmarkConfig, opts LoadOptions) ([]types.BenchmarkItem, error)
}

// Registry maps benchmark names to specialized loaders. Benchmarks without
// an entry fall through to the schema-driven loader.
type Registry struct {
	inner  *registry.Registry[Loader]
	schema Loader
}

// NewRegistry creates a loader registry with the schema loader as fallback.
// Lenient conflict mode: a deployment may pre-register overrides.
func NewRegistry() *Registry {
	return &Registry{
		inner:  registry.New[Loader]("loaders", registry.Options{ThrowOnConflict: false}),
		schema: NewSchemaLoader(),
	}
}

// Register binds a loader to a benchmark name.
func (r *Registry) Register(benchmark string, l Loader, aliases ...string) error {
	return r.inner.Register(benchmark, l, aliases...)
}

// Resolve returns the loader for the benchmark, falling back to the
// schema-driven loader for unknown names.
func (r *Registry) Resolve(benchmark string) Loader {
	if l, ok := r.inner.Get(benchmark); ok {
		return l
	}
	return r.schema
}

// Keys lists benchmarks with specialized loaders.
func (r *Registry) Keys() []string { return r.inner.Keys() }

// DefaultRegistry builds the registry with the built-in code-retrieval
// loaders registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	code := NewCodeLoader()
	for _, name := range CodeBenchmarks {
		_ = r.Register(name, code)
	}
	return r
}

// Package provider defines the retrieval-provider contract the runner drives
// and the built-in adapters. A provider instance is scoped to one
// (benchmark, run) pair through its run tag, so ingested contexts from
// different runs never mix.
package provider

import (
	"context"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// SearchOptions bound one search call.
type SearchOptions struct {
	Limit         int
	Threshold     float64
	IncludeChunks bool
}

// Provider is the minimal surface every adapter implements.
type Provider interface {
	Name() string
	// AddContext ingests prepared contexts into the provider's scoped store.
	AddContext(ctx context.Context, data []types.PreparedData) error
	// Search retrieves scored results for a query, most relevant first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error)
	// Clear removes everything ingested under this provider's scope.
	Clear(ctx context.Context) error
}

// Initializer is implemented by adapters that need setup before ingest
// (container start, connection checks).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Cleaner is implemented by adapters that hold external resources.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

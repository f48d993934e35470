package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// MemDB is the built-in in-memory lexical provider. Scoring is deterministic
// token-set F1 between query and content, which makes it the reference
// baseline: identical inputs always produce identical rankings.
type MemDB struct {
	name  string
	scope string

	mu    sync.RWMutex
	items []types.PreparedData
}

// NewMemDB creates the adapter.
func NewMemDB(name, scope string) *MemDB {
	if name == "" {
		name = "memdb"
	}
	return &MemDB{name: name, scope: scope}
}

// Name implements Provider.
func (m *MemDB) Name() string { return m.name }

// AddContext implements Provider. Re-adding an id replaces the stored copy,
// matching upsert semantics on resume.
func (m *MemDB) AddContext(_ context.Context, data []types.PreparedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range data {
		replaced := false
		for i := range m.items {
			if m.items[i].ID == d.ID {
				m.items[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			m.items = append(m.items, d)
		}
	}
	return nil
}

// Search implements Provider.
func (m *MemDB) Search(_ context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]types.SearchResult, 0, len(m.items))
	for _, item := range m.items {
		score := relevance.TokenF1(item.Content, query)
		if score < opts.Threshold {
			continue
		}
		results = append(results, types.SearchResult{
			ID:       item.ID,
			Content:  item.Content,
			Score:    score,
			Metadata: item.Metadata,
		})
	}

	// Ties break on id so rankings are reproducible across runs.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Clear implements Provider.
func (m *MemDB) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}

// Size reports the number of stored contexts.
func (m *MemDB) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

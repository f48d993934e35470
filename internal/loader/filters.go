package loader

import "github.com/ashikshafi08/memorybench-sub000/internal/types"

// LoadOptions filters the loaded item list. Filters apply in order:
// question-type match, [Start, End] range (1-indexed inclusive), then Limit.
type LoadOptions struct {
	QuestionType string
	Start        int
	End          int
	Limit        int
}

// ApplyFilters applies the ordered filters to the item list.
func ApplyFilters(items []types.BenchmarkItem, opts LoadOptions) []types.BenchmarkItem {
	if opts.QuestionType != "" {
		filtered := items[:0:0]
		for _, item := range items {
			if item.QuestionType == opts.QuestionType {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if opts.Start > 0 || opts.End > 0 {
		start := opts.Start
		if start < 1 {
			start = 1
		}
		end := opts.End
		if end < 1 || end > len(items) {
			end = len(items)
		}
		if start > len(items) || start > end {
			items = nil
		} else {
			items = items[start-1 : end]
		}
	}

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}

package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// CodeBenchmarks are the code-retrieval benchmark variants served by the
// specialized code loader. They differ only in how their packs score; the
// task descriptor format is shared.
var CodeBenchmarks = []string{
	"coderet-line",
	"coderet-snippet",
	"coderet-crossfile",
	"coderet-filerecall",
}

// CodeLoader bypasses schema mapping and constructs items directly from
// code-retrieval task descriptors (JSONL): repo snapshot files plus patch
// ground truth. Downstream packs and metrics consume the attached metadata
// (groundTruth, goldSnippets, dependencyFiles, modifiedFiles).
type CodeLoader struct {
	log *zap.Logger
}

// NewCodeLoader creates the code-retrieval loader.
func NewCodeLoader() *CodeLoader {
	return &CodeLoader{log: logging.Named("loader")}
}

// Load implements Loader.
func (l *CodeLoader) Load(_ context.Context, cfg *config.BenchmarkConfig, opts LoadOptions) ([]types.BenchmarkItem, error) {
	format := cfg.Source.Format
	if format == "" {
		format = config.FormatLineDelim
	}
	records, malformed, err := ReadRecords(cfg.Source.Path, format)
	if err != nil {
		return nil, err
	}
	if malformed > 0 {
		l.log.Warn("skipped malformed task descriptors",
			zap.String("benchmark", cfg.Name), zap.Int("count", malformed))
	}

	var items []types.BenchmarkItem
	skipped := 0
	for _, rec := range records {
		item, ok := l.buildItem(rec)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		l.log.Warn("skipped task descriptors without ids",
			zap.String("benchmark", cfg.Name), zap.Int("count", skipped))
	}
	return ApplyFilters(items, opts), nil
}

func (l *CodeLoader) buildItem(rec Record) (types.BenchmarkItem, bool) {
	id := fieldString(rec, "id")
	if id == "" {
		id = fieldString(rec, "instance_id")
	}
	if id == "" {
		return types.BenchmarkItem{}, false
	}

	question := fieldString(rec, "question")
	if question == "" {
		question = fieldString(rec, "query")
	}
	if question == "" {
		question = fieldString(rec, "problem_statement")
	}

	item := types.BenchmarkItem{
		ID:       id,
		Question: question,
		Answer:   fieldString(rec, "answer"),
		Metadata: map[string]interface{}{},
	}
	if tt := fieldString(rec, "task_type"); tt != "" {
		item.QuestionType = tt
		item.Metadata["taskType"] = tt
	}

	if gt, ok := fieldPath(rec, "ground_truth").(map[string]interface{}); ok {
		meta := map[string]interface{}{
			"file": coerceString(gt["file"]),
		}
		if n, ok := asInt(gt["start_line"]); ok {
			meta["startLine"] = n
		}
		if n, ok := asInt(gt["end_line"]); ok {
			meta["endLine"] = n
		}
		item.Metadata["groundTruth"] = meta
	}
	if snippets := fieldStrings(rec, "gold_snippets"); len(snippets) > 0 {
		item.Metadata["goldSnippets"] = snippets
	}
	if deps := fieldStrings(rec, "dependency_files"); len(deps) > 0 {
		item.Metadata["dependencyFiles"] = deps
	}
	if mods := fieldStrings(rec, "modified_files"); len(mods) > 0 {
		item.Metadata["modifiedFiles"] = mods
	}

	item.Contexts = l.corpusContexts(id, rec)
	return item, true
}

// corpusContexts turns the task's repo-snapshot corpus into contexts with
// stable ids "{itemId}-{path}" and filepath/line metadata the code packs
// read back from search results.
func (l *CodeLoader) corpusContexts(itemID string, rec Record) []types.PreparedData {
	arr, ok := fieldPath(rec, "corpus").([]interface{})
	if !ok {
		return nil
	}
	var contexts []types.PreparedData
	for i, elem := range arr {
		m, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		content := coerceString(m["content"])
		if content == "" {
			continue
		}
		path := coerceString(m["path"])
		id := coerceString(m["id"])
		if id == "" {
			if path != "" {
				id = fmt.Sprintf("%s-%s", itemID, path)
			} else {
				id = fmt.Sprintf("%s-ctx-%d", itemID, i)
			}
		}
		meta := map[string]interface{}{}
		if path != "" {
			meta["filepath"] = path
		}
		if n, ok := asInt(m["start_line"]); ok {
			meta["startLine"] = n
		}
		if n, ok := asInt(m["end_line"]); ok {
			meta["endLine"] = n
		}
		contexts = append(contexts, types.PreparedData{ID: id, Content: content, Metadata: meta})
	}
	return contexts
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	}
	return 0, false
}

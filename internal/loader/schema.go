package loader

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// SchemaLoader is the default loader: it maps raw records to items through
// the benchmark's declared schema. Benchmarks without a specialized loader
// fall through to this path.
type SchemaLoader struct {
	log *zap.Logger
}

// NewSchemaLoader creates the schema-driven loader.
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{log: logging.Named("loader")}
}

// Load implements Loader.
func (l *SchemaLoader) Load(_ context.Context, cfg *config.BenchmarkConfig, opts LoadOptions) ([]types.BenchmarkItem, error) {
	records, malformed, err := ReadRecords(cfg.Source.Path, cfg.Source.Format)
	if err != nil {
		return nil, err
	}
	if malformed > 0 {
		l.log.Warn("skipped malformed records",
			zap.String("benchmark", cfg.Name), zap.Int("count", malformed))
	}

	var items []types.BenchmarkItem
	skippedNoID := 0
	for _, rec := range records {
		parentID := fieldString(rec, cfg.Schema.ID)
		if parentID == "" {
			skippedNoID++
			continue
		}

		contexts, err := l.extractContexts(parentID, rec, &cfg.Schema.Context)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s record %s: %w", cfg.Name, parentID, err)
		}

		if cfg.Schema.Questions != nil {
			items = append(items, l.expandNested(cfg, parentID, rec, contexts)...)
		} else {
			items = append(items, l.singleItem(cfg, parentID, rec, contexts))
		}
	}
	if skippedNoID > 0 {
		l.log.Warn("skipped records without ids",
			zap.String("benchmark", cfg.Name), zap.Int("count", skippedNoID))
	}

	return ApplyFilters(items, opts), nil
}

func (l *SchemaLoader) singleItem(cfg *config.BenchmarkConfig, id string, rec Record, contexts []types.PreparedData) types.BenchmarkItem {
	item := types.BenchmarkItem{
		ID:           id,
		Question:     fieldString(rec, cfg.Schema.Question),
		Answer:       fieldString(rec, cfg.Schema.Answer),
		Contexts:     contexts,
		QuestionType: fieldString(rec, cfg.Schema.QuestionType),
		Metadata:     map[string]interface{}{},
	}
	l.applyMetadataPaths(cfg, rec, item.Metadata)
	if item.QuestionType != "" {
		item.Metadata["questionType"] = item.QuestionType
	}
	return item
}

// expandNested emits one item per nested question with ids
// "{parentId}-q{index}". Contexts are shared across the siblings.
func (l *SchemaLoader) expandNested(cfg *config.BenchmarkConfig, parentID string, rec Record, contexts []types.PreparedData) []types.BenchmarkItem {
	nested := cfg.Schema.Questions
	arr, ok := fieldPath(rec, nested.Path).([]interface{})
	if !ok {
		l.log.Warn("nested questions path missing",
			zap.String("benchmark", cfg.Name), zap.String("record", parentID))
		return nil
	}

	var items []types.BenchmarkItem
	for i, q := range arr {
		item := types.BenchmarkItem{
			ID:       fmt.Sprintf("%s-q%d", parentID, i),
			Question: fieldString(q, nested.Question),
			Answer:   fieldString(q, nested.Answer),
			Contexts: contexts,
			Metadata: map[string]interface{}{"parentId": parentID},
		}
		if nested.Category != "" {
			if raw := fieldPath(q, nested.Category); raw != nil {
				item.Metadata["category"] = raw
				item.Category = l.categoryName(cfg, raw)
				if item.Category != "" {
					item.Metadata["categoryName"] = item.Category
				}
			}
		}
		if nested.Evidence != "" {
			if ev := evidenceStrings(q, nested.Evidence); len(ev) > 0 {
				item.Metadata["evidence"] = ev
			}
		}
		l.applyMetadataPaths(cfg, rec, item.Metadata)
		items = append(items, item)
	}
	return items
}

// categoryName maps a numeric dataset category to its configured name.
func (l *SchemaLoader) categoryName(cfg *config.BenchmarkConfig, raw interface{}) string {
	switch v := raw.(type) {
	case float64:
		return cfg.Categories[int(v)]
	case int:
		return cfg.Categories[v]
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return cfg.Categories[n]
		}
	}
	return ""
}

func (l *SchemaLoader) applyMetadataPaths(cfg *config.BenchmarkConfig, rec Record, meta map[string]interface{}) {
	for key, path := range cfg.Schema.MetadataPaths {
		if v := fieldPath(rec, path); v != nil {
			meta[key] = v
		}
	}
}

// evidenceStrings flattens an evidence field that may be a single id, a flat
// array, or an array of arrays (multi-hop evidence).
func evidenceStrings(q interface{}, path string) []string {
	raw := fieldPath(q, path)
	var out []string
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			if t != "" {
				out = append(out, t)
			}
		case []interface{}:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(raw)
	return out
}

// =============================================================================
// CONTEXT EXTRACTION
// =============================================================================

func (l *SchemaLoader) extractContexts(itemID string, rec Record, cs *config.ContextSchema) ([]types.PreparedData, error) {
	switch cs.Type {
	case "array":
		return l.arrayContexts(itemID, rec, cs), nil
	case "object":
		return l.objectContexts(itemID, rec, cs)
	case "string":
		content := fieldString(rec, cs.Path)
		if content == "" {
			return nil, nil
		}
		return []types.PreparedData{{
			ID:       itemID + "-ctx-0",
			Content:  content,
			Metadata: map[string]interface{}{},
		}}, nil
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown context type %q", cs.Type)
}

// arrayContexts iterates the context array: for each element it derives a
// date (positional date array or per-item field), composes content, and
// assigns a stable id "{itemId}-{corpusId}" or "{itemId}-ctx-{index}".
func (l *SchemaLoader) arrayContexts(itemID string, rec Record, cs *config.ContextSchema) []types.PreparedData {
	arr, ok := fieldPath(rec, cs.Path).([]interface{})
	if !ok {
		return nil
	}
	dates := fieldStrings(rec, cs.DatesPath)

	var contexts []types.PreparedData
	for i, elem := range arr {
		var date string
		if i < len(dates) {
			date = dates[i]
		} else if cs.ItemDate != "" {
			date = fieldString(elem, cs.ItemDate)
		}

		content, dialogIDs := l.composeContent(elem, cs)
		if content == "" {
			continue
		}

		corpusID := ""
		if cs.ItemID != "" {
			corpusID = fieldString(elem, cs.ItemID)
		}
		id := itemID + "-ctx-" + strconv.Itoa(i)
		meta := map[string]interface{}{}
		if corpusID != "" {
			id = itemID + "-" + corpusID
			meta["corpusId"] = corpusID
		}
		if date != "" {
			meta["date"] = date
		}
		if len(dialogIDs) > 0 {
			meta["dialogIds"] = dialogIDs
		}
		contexts = append(contexts, types.PreparedData{ID: id, Content: content, Metadata: meta})
	}
	return contexts
}

// objectContexts iterates record keys matching the session pattern, skipping
// date-companion keys, joining turns, and extracting per-turn dialog ids.
func (l *SchemaLoader) objectContexts(itemID string, rec Record, cs *config.ContextSchema) ([]types.PreparedData, error) {
	root := rec
	if cs.Path != "" {
		m, ok := fieldPath(rec, cs.Path).(map[string]interface{})
		if !ok {
			return nil, nil
		}
		root = m
	}

	pattern := cs.SessionPattern
	if pattern == "" {
		pattern = `^session_\d+$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad session pattern %q: %w", pattern, err)
	}
	dateSuffix := cs.DateKeySuffix
	if dateSuffix == "" {
		dateSuffix = "_date_time"
	}

	// Collect and sort keys so context order is deterministic.
	var keys []string
	for k := range root {
		if strings.HasSuffix(k, dateSuffix) {
			continue
		}
		if re.MatchString(k) {
			keys = append(keys, k)
		}
	}
	sortSessionKeys(keys)

	var contexts []types.PreparedData
	for _, key := range keys {
		content, dialogIDs := l.composeContent(root[key], cs)
		if content == "" {
			continue
		}
		meta := map[string]interface{}{"session": key}
		if date := coerceString(root[key+dateSuffix]); date != "" {
			meta["date"] = date
		}
		if len(dialogIDs) > 0 {
			meta["dialogIds"] = dialogIDs
		}
		contexts = append(contexts, types.PreparedData{
			ID:       itemID + "-" + key,
			Content:  content,
			Metadata: meta,
		})
	}
	return contexts, nil
}

// composeContent renders one context element to text. Strings pass through;
// arrays of turn objects join as "{speaker}: {text}" lines. Returns any
// per-turn dialog ids found along the way.
func (l *SchemaLoader) composeContent(elem interface{}, cs *config.ContextSchema) (string, []string) {
	switch v := elem.(type) {
	case string:
		return v, nil
	case map[string]interface{}:
		if cs.ItemContent != "" {
			return fieldString(v, cs.ItemContent), nil
		}
		return "", nil
	case []interface{}:
		var lines []string
		var dialogIDs []string
		for _, turn := range v {
			tm, ok := turn.(map[string]interface{})
			if !ok {
				if s := coerceString(turn); s != "" {
					lines = append(lines, s)
				}
				continue
			}
			speaker := firstField(tm, cs.SpeakerField, "speaker", "role")
			text := firstField(tm, cs.TextField, "text", "content")
			if text == "" {
				continue
			}
			if cs.DialogIDField != "" {
				if id := fieldString(tm, cs.DialogIDField); id != "" {
					dialogIDs = append(dialogIDs, id)
				}
			}
			if speaker != "" {
				lines = append(lines, speaker+": "+text)
			} else {
				lines = append(lines, text)
			}
		}
		return strings.Join(lines, "\n"), dialogIDs
	}
	return "", nil
}

// firstField returns the first non-empty value among the preferred field and
// its fallbacks.
func firstField(m map[string]interface{}, preferred string, fallbacks ...string) string {
	if preferred != "" {
		if s := fieldString(m, preferred); s != "" {
			return s
		}
		return ""
	}
	for _, f := range fallbacks {
		if s := fieldString(m, f); s != "" {
			return s
		}
	}
	return ""
}

// sortSessionKeys orders "session_2" before "session_10" by numeric suffix,
// falling back to lexicographic order.
func sortSessionKeys(keys []string) {
	num := func(k string) (int, bool) {
		idx := strings.LastIndex(k, "_")
		if idx < 0 {
			return 0, false
		}
		n, err := strconv.Atoi(k[idx+1:])
		return n, err == nil
	}
	sortSlice(keys, func(a, b string) bool {
		na, oka := num(a)
		nb, okb := num(b)
		if oka && okb {
			return na < nb
		}
		return a < b
	})
}

func sortSlice(keys []string, less func(a, b string) bool) {
	// Insertion sort; session lists are small.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

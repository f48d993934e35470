package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaLoaderArrayContexts(t *testing.T) {
	// LongMemEval-style: record array, haystack sessions with positional dates.
	data := `[
  {
    "question_id": "lme-001",
    "question_type": "single-session-user",
    "question": "Where did I move in May?",
    "answer": "Paris",
    "haystack_dates": ["2023/05/20 (Sat) 02:21", "2023/05/21 (Sun) 10:00"],
    "haystack_sessions": [
      [
        {"role": "user", "content": "I moved to Paris last week."},
        {"role": "assistant", "content": "Congratulations on the move!"}
      ],
      [
        {"role": "user", "content": "The weather is lovely today."}
      ]
    ]
  },
  {
    "question": "record with no id is skipped",
    "answer": "x"
  }
]`
	path := writeFile(t, "lme.json", data)

	cfg := &config.BenchmarkConfig{
		Name: "longmemeval",
		Source: config.DataSource{
			Type: "local", Path: path, Format: config.FormatRecordList,
		},
		Schema: config.SchemaConfig{
			ID:           "question_id",
			Question:     "question",
			Answer:       "answer",
			QuestionType: "question_type",
			Context: config.ContextSchema{
				Type:      "array",
				Path:      "haystack_sessions",
				DatesPath: "haystack_dates",
			},
		},
	}

	items, err := NewSchemaLoader().Load(context.Background(), cfg, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1, "record without id skipped")

	item := items[0]
	assert.Equal(t, "lme-001", item.ID)
	assert.Equal(t, "single-session-user", item.QuestionType)
	require.Len(t, item.Contexts, 2)

	assert.Equal(t, "lme-001-ctx-0", item.Contexts[0].ID)
	assert.Contains(t, item.Contexts[0].Content, "user: I moved to Paris last week.")
	assert.Contains(t, item.Contexts[0].Content, "assistant: Congratulations")
	assert.Equal(t, "2023/05/20 (Sat) 02:21", item.Contexts[0].Metadata["date"])
	assert.Equal(t, "lme-001-ctx-1", item.Contexts[1].ID)
}

func TestSchemaLoaderObjectContextsAndNestedQuestions(t *testing.T) {
	// LoCoMo-style: nested qa array, session_N conversation objects with
	// companion date keys and per-turn dialog ids.
	data := `[
  {
    "sample_id": "conv-26",
    "qa": [
      {"question": "When did Caroline move?", "answer": "May 2023", "category": 2, "evidence": ["D1:3"]},
      {"question": "What pets are mentioned?", "answer": "a dog; a cat; a parrot", "category": 3, "evidence": [["D2:1"], ["D2:4"]]}
    ],
    "conversation": {
      "session_1": [
        {"speaker": "Caroline", "text": "I moved to Boston in May.", "dia_id": "D1:3"},
        {"speaker": "Mel", "text": "That is exciting!", "dia_id": "D1:4"}
      ],
      "session_1_date_time": "1:56 pm on 8 May, 2023",
      "session_2": [
        {"speaker": "Mel", "text": "My dog loves the park.", "dia_id": "D2:1"}
      ],
      "session_2_date_time": "3:14 pm on 21 May, 2023"
    }
  }
]`
	path := writeFile(t, "locomo.json", data)

	cfg := &config.BenchmarkConfig{
		Name:   "locomo",
		Source: config.DataSource{Type: "local", Path: path, Format: config.FormatRecordList},
		Categories: map[int]string{
			2: "temporal",
			3: "multi-answer",
		},
		Schema: config.SchemaConfig{
			ID: "sample_id",
			Questions: &config.NestedQuestionSchema{
				Path:     "qa",
				Question: "question",
				Answer:   "answer",
				Category: "category",
				Evidence: "evidence",
			},
			Context: config.ContextSchema{
				Type:          "object",
				Path:          "conversation",
				SessionPattern: `^session_\d+$`,
				DateKeySuffix:  "_date_time",
				SpeakerField:   "speaker",
				TextField:      "text",
				DialogIDField:  "dia_id",
			},
		},
	}

	items, err := NewSchemaLoader().Load(context.Background(), cfg, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Nested ids are synthesized as {parentId}-q{index}.
	assert.Equal(t, "conv-26-q0", items[0].ID)
	assert.Equal(t, "conv-26-q1", items[1].ID)
	assert.Equal(t, "temporal", items[0].Category)
	assert.Equal(t, "multi-answer", items[1].Category)
	assert.Equal(t, []string{"D1:3"}, types.MetaStrings(items[0].Metadata, "evidence"))
	// Nested evidence arrays flatten.
	assert.Equal(t, []string{"D2:1", "D2:4"}, types.MetaStrings(items[1].Metadata, "evidence"))

	// Contexts shared across siblings, ordered by session number, date keys
	// skipped as contexts but harvested as metadata.
	require.Len(t, items[0].Contexts, 2)
	s1 := items[0].Contexts[0]
	assert.Equal(t, "conv-26-session_1", s1.ID)
	assert.Contains(t, s1.Content, "Caroline: I moved to Boston in May.")
	assert.Equal(t, "1:56 pm on 8 May, 2023", s1.Metadata["date"])
	assert.Equal(t, []string{"D1:3", "D1:4"}, types.MetaStrings(s1.Metadata, "dialogIds"))
}

func TestSchemaLoaderStringContext(t *testing.T) {
	data := `{"id": "r1", "question": "q", "answer": "a", "passage": "some passage text"}
{"id": "r2", "question": "q2", "answer": "a2", "passage": "other text"}`
	path := writeFile(t, "simple.jsonl", data)

	cfg := &config.BenchmarkConfig{
		Name:   "simpleqa",
		Source: config.DataSource{Type: "local", Path: path, Format: config.FormatLineDelim},
		Schema: config.SchemaConfig{
			ID: "id", Question: "question", Answer: "answer",
			Context: config.ContextSchema{Type: "string", Path: "passage"},
		},
	}
	items, err := NewSchemaLoader().Load(context.Background(), cfg, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r1-ctx-0", items[0].Contexts[0].ID)
	assert.Equal(t, "some passage text", items[0].Contexts[0].Content)
}

func TestTabularReader(t *testing.T) {
	data := "id,question,answer\n1,\"What, exactly?\",yes\n2,short,no\n"
	path := writeFile(t, "data.csv", data)

	records, skipped, err := ReadRecords(path, config.FormatTabular)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "What, exactly?", records[0]["question"])
}

func TestMissingDatasetFailsFast(t *testing.T) {
	cfg := &config.BenchmarkConfig{
		Name:   "ghost",
		Source: config.DataSource{Path: "/does/not/exist.json", Format: config.FormatRecordList},
		Schema: config.SchemaConfig{ID: "id"},
	}
	_, err := NewSchemaLoader().Load(context.Background(), cfg, LoadOptions{})
	require.Error(t, err)
}

func TestApplyFilters(t *testing.T) {
	items := make([]types.BenchmarkItem, 10)
	for i := range items {
		items[i] = types.BenchmarkItem{ID: string(rune('a' + i)), QuestionType: "t1"}
	}
	items[3].QuestionType = "t2"

	t.Run("question type", func(t *testing.T) {
		got := ApplyFilters(items, LoadOptions{QuestionType: "t2"})
		require.Len(t, got, 1)
		assert.Equal(t, "d", got[0].ID)
	})

	t.Run("range is 1-indexed inclusive", func(t *testing.T) {
		got := ApplyFilters(items, LoadOptions{Start: 2, End: 4})
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "d", got[2].ID)
	})

	t.Run("range then limit", func(t *testing.T) {
		got := ApplyFilters(items, LoadOptions{Start: 2, End: 9, Limit: 3})
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("start beyond length", func(t *testing.T) {
		assert.Empty(t, ApplyFilters(items, LoadOptions{Start: 99, End: 100}))
	})

	t.Run("end beyond length clamps", func(t *testing.T) {
		got := ApplyFilters(items, LoadOptions{Start: 9, End: 99})
		assert.Len(t, got, 2)
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		assert.Empty(t, ApplyFilters(items, LoadOptions{Start: 5, End: 2}))
	})
}

func TestCodeLoader(t *testing.T) {
	data := `{"instance_id": "astropy-1234", "problem_statement": "Fix the unit parser", "task_type": "function", "ground_truth": {"file": "src/auth.py", "start_line": 10, "end_line": 20}, "gold_snippets": ["def calculate_sum(a, b):"], "dependency_files": ["src/units.py", "src/parse.py"], "modified_files": ["src/fix.py", "src/test.py"], "corpus": [{"path": "src/auth.py", "content": "def login(): pass", "start_line": 1, "end_line": 40}, {"path": "src/units.py", "content": "UNIT_TABLE = {}"}]}`
	path := writeFile(t, "tasks.jsonl", data)

	cfg := &config.BenchmarkConfig{
		Name:   "coderet-line",
		Source: config.DataSource{Type: "local", Path: path},
	}
	items, err := NewCodeLoader().Load(context.Background(), cfg, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "astropy-1234", item.ID)
	assert.Equal(t, "Fix the unit parser", item.Question)

	gt := types.MetaMap(item.Metadata, "groundTruth")
	require.NotNil(t, gt)
	assert.Equal(t, "src/auth.py", gt["file"])
	start, _ := types.MetaInt(gt, "startLine")
	assert.Equal(t, 10, start)

	assert.Equal(t, []string{"src/fix.py", "src/test.py"}, types.MetaStrings(item.Metadata, "modifiedFiles"))
	assert.Equal(t, []string{"src/units.py", "src/parse.py"}, types.MetaStrings(item.Metadata, "dependencyFiles"))

	require.Len(t, item.Contexts, 2)
	assert.Equal(t, "astropy-1234-src/auth.py", item.Contexts[0].ID)
	assert.Equal(t, "src/auth.py", item.Contexts[0].Metadata["filepath"])
}

func TestRegistryFallsBackToSchemaLoader(t *testing.T) {
	r := DefaultRegistry()

	// Registered code benchmarks resolve to the code loader.
	_, isCode := r.Resolve("coderet-line").(*CodeLoader)
	assert.True(t, isCode)

	// Unknown benchmark names fall through to the schema loader.
	_, isSchema := r.Resolve("longmemeval").(*SchemaLoader)
	assert.True(t, isSchema)
}

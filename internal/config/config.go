// Package config holds the benchmark and provider configuration model, YAML
// loading with environment interpolation, and the sealed-semantics validator
// that rejects config overrides for facets owned by a benchmark pack.
package config

import (
	"fmt"
	"strings"
)

// =============================================================================
// BENCHMARK CONFIGURATION
// =============================================================================

// Data source formats.
const (
	FormatTabular    = "tabular"              // CSV/TSV
	FormatLineDelim  = "line-delimited-records" // JSONL
	FormatRecordList = "record-array"           // one JSON array of records
)

// BenchmarkConfig describes one benchmark: identity, data source, schema
// mapping, and evaluation directives. One YAML file per benchmark.
type BenchmarkConfig struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name,omitempty"`
	Version     string   `yaml:"version,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`

	Source DataSource   `yaml:"source"`
	Schema SchemaConfig `yaml:"schema"`

	// QuestionTypes catalogs the dataset's question types (key -> label).
	QuestionTypes map[string]string `yaml:"question_types,omitempty"`
	// Categories maps numeric dataset categories to names.
	Categories map[int]string `yaml:"categories,omitempty"`

	Ingestion  IngestionConfig  `yaml:"ingestion,omitempty"`
	Search     SearchConfig     `yaml:"search,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`

	// Metrics lists the metric names to compute for this benchmark.
	Metrics []string `yaml:"metrics,omitempty"`

	Runtime RuntimeConfig `yaml:"runtime,omitempty"`
}

// DataSource locates the raw dataset.
type DataSource struct {
	Type   string `yaml:"type"`   // local | remote-registry | url
	Path   string `yaml:"path"`   // file path, registry name, or URL
	Format string `yaml:"format"` // tabular | line-delimited-records | record-array
}

// SchemaConfig maps raw record fields onto the normalized item shape.
// Field accessors are dot paths into the record (e.g. "qa.question").
type SchemaConfig struct {
	ID       string `yaml:"id"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	// QuestionType is the raw field holding the dataset's question type.
	QuestionType string `yaml:"question_type,omitempty"`

	// Questions, when set, expands one record into one item per nested
	// question with synthesized ids "{parentId}-q{index}".
	Questions *NestedQuestionSchema `yaml:"questions,omitempty"`

	Context ContextSchema `yaml:"context"`

	// MetadataPaths copies extra raw fields into item metadata.
	MetadataPaths map[string]string `yaml:"metadata,omitempty"`
}

// NestedQuestionSchema maps the nested questions array of one record.
type NestedQuestionSchema struct {
	Path     string `yaml:"path"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	// Category is the per-question category field, if any.
	Category string `yaml:"category,omitempty"`
	// Evidence is the per-question evidence-id field, if any.
	Evidence string `yaml:"evidence,omitempty"`
}

// ContextSchema describes how contexts are extracted from a record.
type ContextSchema struct {
	Type string `yaml:"type"` // array | object | string
	Path string `yaml:"path"`

	// Array contexts.
	ItemID      string `yaml:"item_id,omitempty"`      // per-element corpus id field
	ItemContent string `yaml:"item_content,omitempty"` // per-element content field
	ItemDate    string `yaml:"item_date,omitempty"`    // per-element date field
	DatesPath   string `yaml:"dates_path,omitempty"`   // positional date array on the record

	// Object contexts (conversational sessions).
	SessionPattern string `yaml:"session_pattern,omitempty"` // keys matching this are sessions
	DateKeySuffix  string `yaml:"date_key_suffix,omitempty"` // companion date keys to skip

	// Turn composition for conversational datasets.
	SpeakerField  string `yaml:"speaker_field,omitempty"` // speaker | role
	TextField     string `yaml:"text_field,omitempty"`    // text | content
	DialogIDField string `yaml:"dialog_id_field,omitempty"`
}

// IngestionConfig holds preprocessing directives for the ingest phase.
type IngestionConfig struct {
	BatchSize    int    `yaml:"batch_size,omitempty"`
	BatchDelayMS int    `yaml:"batch_delay_ms,omitempty"`
	Template     string `yaml:"template,omitempty"` // content format template
}

// SearchConfig holds per-benchmark search defaults.
type SearchConfig struct {
	TopK          int     `yaml:"top_k,omitempty"`
	Threshold     float64 `yaml:"threshold,omitempty"`
	IncludeChunks bool    `yaml:"include_chunks,omitempty"`
}

// EvaluationConfig holds the evaluation directives. When a pack owns a facet
// the corresponding fields must stay empty (enforced by ValidateSealed).
type EvaluationConfig struct {
	Method            string  `yaml:"method,omitempty"`
	AnsweringModel    string  `yaml:"answering_model,omitempty"` // {provider}/{model}
	AnswerPrompt      string  `yaml:"answer_prompt,omitempty"`
	JudgeModel        string  `yaml:"judge_model,omitempty"`
	JudgePrompt       string  `yaml:"judge_prompt,omitempty"`
	CustomEvaluator   string  `yaml:"custom_evaluator,omitempty"`
	AnswerTemperature float64 `yaml:"answer_temperature,omitempty"`
	JudgeTemperature  float64 `yaml:"judge_temperature,omitempty"`
}

// RuntimeConfig holds run-control directives.
type RuntimeConfig struct {
	CheckpointGranularity string `yaml:"checkpoint_granularity,omitempty"` // item | batch
	Resumable             *bool  `yaml:"resumable,omitempty"`
}

// Resumable defaults to true.
func (r RuntimeConfig) IsResumable() bool {
	return r.Resumable == nil || *r.Resumable
}

// Validate checks structural invariants of the benchmark config.
func (c *BenchmarkConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("benchmark config: name is required")
	}
	switch c.Source.Format {
	case "", FormatTabular, FormatLineDelim, FormatRecordList:
	default:
		return fmt.Errorf("benchmark %q: unknown source format %q", c.Name, c.Source.Format)
	}
	switch c.Schema.Context.Type {
	case "", "array", "object", "string":
	default:
		return fmt.Errorf("benchmark %q: unknown context type %q", c.Name, c.Schema.Context.Type)
	}
	return nil
}

// TopKOrDefault returns the configured top-k, defaulting to 10.
func (c *BenchmarkConfig) TopKOrDefault() int {
	if c.Search.TopK > 0 {
		return c.Search.TopK
	}
	return 10
}

// =============================================================================
// PROVIDER CONFIGURATION
// =============================================================================

// Provider flavors.
const (
	ProviderHosted    = "hosted"
	ProviderLocal     = "local"
	ProviderContainer = "container"
)

// ProviderConfig describes one retrieval provider under test.
type ProviderConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name,omitempty"`
	Type        string `yaml:"type"` // hosted | local | container

	Hosted    *HostedProvider    `yaml:"hosted,omitempty"`
	Local     *LocalProvider     `yaml:"local,omitempty"`
	Container *ContainerProvider `yaml:"container,omitempty"`

	// ScopeTemplate derives the run tag from "{benchmark}" and "{runId}".
	ScopeTemplate string `yaml:"scope_template,omitempty"`

	Capabilities Capabilities `yaml:"capabilities,omitempty"`
	RateLimit    RateLimit    `yaml:"rate_limit,omitempty"`
}

// HostedProvider connects over HTTP.
type HostedProvider struct {
	URL       string            `yaml:"url"`
	AuthEnv   string            `yaml:"auth_env,omitempty"`   // env var holding the token
	AuthStyle string            `yaml:"auth_style,omitempty"` // bearer | header
	Endpoints HostedEndpoints   `yaml:"endpoints,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	TimeoutMS int               `yaml:"timeout_ms,omitempty"`
}

// HostedEndpoints names the provider's REST operations.
type HostedEndpoints struct {
	Add    string `yaml:"add,omitempty"`
	Search string `yaml:"search,omitempty"`
	Clear  string `yaml:"clear,omitempty"`
}

// LocalProvider selects a built-in adapter by name.
type LocalProvider struct {
	Adapter string                 `yaml:"adapter"`
	Options map[string]interface{} `yaml:"options,omitempty"`
}

// ContainerProvider runs the provider from a compose manifest.
type ContainerProvider struct {
	ComposeFile string `yaml:"compose_file"`
	Service     string `yaml:"service"`
	Healthcheck string `yaml:"healthcheck,omitempty"`
}

// Capabilities are provider feature flags the runner consults.
type Capabilities struct {
	SupportsChunks   bool `yaml:"supports_chunks,omitempty"`
	SupportsBatch    bool `yaml:"supports_batch,omitempty"`
	SupportsMetadata bool `yaml:"supports_metadata,omitempty"`
	SupportsRerank   bool `yaml:"supports_rerank,omitempty"`
}

// RateLimit bounds request rates against the provider.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// Validate checks structural invariants of the provider config.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider config: name is required")
	}
	switch c.Type {
	case ProviderHosted:
		if c.Hosted == nil || c.Hosted.URL == "" {
			return fmt.Errorf("provider %q: hosted provider requires a url", c.Name)
		}
	case ProviderLocal:
		if c.Local == nil || c.Local.Adapter == "" {
			return fmt.Errorf("provider %q: local provider requires an adapter name", c.Name)
		}
	case ProviderContainer:
		if c.Container == nil || c.Container.ComposeFile == "" || c.Container.Service == "" {
			return fmt.Errorf("provider %q: container provider requires compose_file and service", c.Name)
		}
	default:
		return fmt.Errorf("provider %q: unknown type %q", c.Name, c.Type)
	}
	return nil
}

// RunTag derives the provider-side scoping tag for one (benchmark, run).
func (c *ProviderConfig) RunTag(benchmark, runID string) string {
	tmpl := c.ScopeTemplate
	if tmpl == "" {
		tmpl = "{benchmark}-{runId}"
	}
	tag := strings.ReplaceAll(tmpl, "{benchmark}", benchmark)
	return strings.ReplaceAll(tag, "{runId}", runID)
}

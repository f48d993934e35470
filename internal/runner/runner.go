// Package runner drives the three-phase benchmark execution: ingest contexts
// into a provider, search and evaluate each item, then aggregate metrics.
// (benchmark, provider) pairs run concurrently under a bounded semaphore;
// work within a pair is sequential. Per-item progress is checkpointed so an
// interrupted run resumes where it stopped.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashikshafi08/memorybench-sub000/internal/checkpoint"
	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/evaluator"
	"github.com/ashikshafi08/memorybench-sub000/internal/loader"
	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
	"github.com/ashikshafi08/memorybench-sub000/internal/metrics"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/provider"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
	"github.com/ashikshafi08/memorybench-sub000/internal/store"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// DefaultConcurrency bounds simultaneous (benchmark, provider) pairs.
const DefaultConcurrency = 10

const defaultBatchSize = 50

// Progress is one callback payload. Accuracy is the running rate over
// evaluated items and only meaningful during the evaluate phase.
type Progress struct {
	Benchmark string
	Provider  string
	Phase     string
	Current   int
	Total     int
	Accuracy  float64
}

// ProgressFunc receives progress callbacks. Callbacks run on pair goroutines
// and must be cheap.
type ProgressFunc func(Progress)

// Options tunes one run.
type Options struct {
	RunID       string
	Concurrency int
	// LoadOptions filters the item set of every benchmark in the run.
	Load     loader.LoadOptions
	Progress ProgressFunc
}

// Deps are the registries and stores the runner dispatches through. All
// registries must be fully populated before Run; they are treated as
// read-only afterwards.
type Deps struct {
	Loaders     *loader.Registry
	Evaluators  *registry.Registry[evaluator.Evaluator]
	Packs       *packs.Registry
	Adapters    *provider.Adapters
	Metrics     *metrics.Registry
	Checkpoints *checkpoint.Manager
	Store       *store.Store
}

// Runner executes benchmark runs.
type Runner struct {
	deps Deps
	log  *zap.Logger
}

// New creates a runner.
func New(deps Deps) *Runner {
	return &Runner{deps: deps, log: logging.Named("runner")}
}

// PairResult is the outcome of one (benchmark, provider) pair.
type PairResult struct {
	Benchmark      string               `json:"benchmark"`
	Provider       string               `json:"provider"`
	TotalItems     int                  `json:"totalItems"`
	CompletedItems int                  `json:"completedItems"`
	FailedItems    int                  `json:"failedItems"`
	Accuracy       float64              `json:"accuracy"`
	Metrics        []types.MetricResult `json:"metrics,omitempty"`
	Results        []types.EvalResult   `json:"results,omitempty"`
	// Error is set when the pair aborted before evaluating items
	// (provider construction or initialization failure).
	Error string `json:"error,omitempty"`
}

// RunResult is the outcome of one full run.
type RunResult struct {
	RunID string       `json:"runId"`
	Pairs []PairResult `json:"pairs"`
}

// Run executes every (benchmark, provider) pair. Unknown benchmark, provider,
// evaluator, or metric names abort the run before any work begins; failures
// inside a pair abort only that pair.
func (r *Runner) Run(ctx context.Context, benchmarks []*config.BenchmarkConfig, providers []*config.ProviderConfig, opts Options) (*RunResult, error) {
	if opts.RunID == "" {
		return nil, fmt.Errorf("runner: run id is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if err := r.validate(benchmarks, providers); err != nil {
		return nil, err
	}

	benchNames := make([]string, 0, len(benchmarks))
	for _, b := range benchmarks {
		benchNames = append(benchNames, b.Name)
	}
	providerNames := make([]string, 0, len(providers))
	for _, p := range providers {
		providerNames = append(providerNames, p.Name)
	}
	if err := r.deps.Store.CreateRun(store.Run{
		ID:         opts.RunID,
		StartedAt:  time.Now().UTC(),
		Benchmarks: benchNames,
		Providers:  providerNames,
	}); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var pairs []PairResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, b := range benchmarks {
		for _, p := range providers {
			b, p := b, p
			g.Go(func() error {
				pair := r.runPair(gctx, b, p, opts)
				mu.Lock()
				pairs = append(pairs, pair)
				mu.Unlock()
				// Pair failures are recorded, not propagated: one broken
				// provider must not cancel its siblings.
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Benchmark != pairs[j].Benchmark {
			return pairs[i].Benchmark < pairs[j].Benchmark
		}
		return pairs[i].Provider < pairs[j].Provider
	})

	if err := r.deps.Store.CompleteRun(opts.RunID); err != nil {
		return nil, err
	}
	return &RunResult{RunID: opts.RunID, Pairs: pairs}, nil
}

// validate fails fast on anything that would only surface mid-run: unknown
// evaluator methods, unknown metric names, and sealed-facet overrides.
func (r *Runner) validate(benchmarks []*config.BenchmarkConfig, providers []*config.ProviderConfig) error {
	if len(benchmarks) == 0 || len(providers) == 0 {
		return fmt.Errorf("runner: at least one benchmark and one provider are required")
	}
	for _, b := range benchmarks {
		if err := b.Validate(); err != nil {
			return err
		}
		if len(b.Metrics) > 0 {
			if _, err := r.deps.Metrics.Resolve(b.Metrics); err != nil {
				return fmt.Errorf("benchmark %s: %w", b.Name, err)
			}
		}
		if pack, ok := r.deps.Packs.GetLatest(b.Name); ok {
			if err := config.ValidateSealed(b, pack.PackID(), pack.SealedSemantics()); err != nil {
				return err
			}
			continue
		}
		method := b.Evaluation.CustomEvaluator
		if method == "" {
			method = b.Evaluation.Method
		}
		if method != "" {
			if _, err := r.deps.Evaluators.GetOrError(method); err != nil {
				return fmt.Errorf("benchmark %s: %w", b.Name, err)
			}
		}
	}
	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// runPair executes one (benchmark, provider) pair: INIT, INGEST, EVALUATE,
// CLEANUP.
func (r *Runner) runPair(ctx context.Context, cfg *config.BenchmarkConfig, pcfg *config.ProviderConfig, opts Options) PairResult {
	pair := PairResult{Benchmark: cfg.Name, Provider: pcfg.Name}
	log := r.log.With(zap.String("benchmark", cfg.Name), zap.String("provider", pcfg.Name), zap.String("run", opts.RunID))

	scope := pcfg.RunTag(cfg.Name, opts.RunID)
	prov, err := r.deps.Adapters.New(pcfg, scope)
	if err != nil {
		log.Error("provider construction failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}
	if init, ok := prov.(provider.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			log.Error("provider initialization failed", zap.Error(err))
			pair.Error = err.Error()
			return pair
		}
	}
	defer func() {
		// CLEANUP: drop the run-scoped state this pair ingested. Best
		// effort; a provider that cannot clear must not fail the pair.
		if err := prov.Clear(context.Background()); err != nil {
			log.Warn("provider clear failed", zap.Error(err))
		}
		if cleaner, ok := prov.(provider.Cleaner); ok {
			if err := cleaner.Cleanup(context.Background()); err != nil {
				log.Warn("provider cleanup failed", zap.Error(err))
			}
		}
	}()

	items, err := r.deps.Loaders.Resolve(cfg.Name).Load(ctx, cfg, opts.Load)
	if err != nil {
		log.Error("loading items failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}
	pair.TotalItems = len(items)
	log.Info("pair started", zap.Int("items", len(items)), zap.String("scope", scope))

	if err := r.ingest(ctx, prov, cfg, pcfg, items, opts); err != nil {
		log.Error("ingest failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}

	failed, err := r.evaluate(ctx, prov, cfg, pcfg, items, opts, log)
	if err != nil {
		log.Error("evaluate failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}
	pair.FailedItems = failed
	pair.CompletedItems = len(items) - failed

	results, err := r.pairResults(opts.RunID, cfg.Name, pcfg.Name)
	if err != nil {
		log.Error("collecting results failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}
	pair.Results = results
	pair.Accuracy = accuracyOf(results)
	pair.Metrics, err = r.computeMetrics(cfg, results)
	if err != nil {
		log.Error("metric computation failed", zap.Error(err))
		pair.Error = err.Error()
		return pair
	}

	log.Info("pair finished",
		zap.Int("completed", pair.CompletedItems),
		zap.Int("failed", pair.FailedItems),
		zap.Float64("accuracy", pair.Accuracy))
	return pair
}

// ingest pushes every item's contexts to the provider, deduplicating shared
// contexts across items. Completion is checkpointed per item.
func (r *Runner) ingest(ctx context.Context, prov provider.Provider, cfg *config.BenchmarkConfig, pcfg *config.ProviderConfig, items []types.BenchmarkItem, opts Options) error {
	resumable := cfg.Runtime.IsResumable()
	batchSize := cfg.Ingestion.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	seen := map[string]struct{}{}
	for i, item := range items {
		if resumable {
			skip, err := r.deps.Checkpoints.ShouldSkip(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseIngest)
			if err != nil {
				return err
			}
			if skip {
				// Contexts of a completed item may still be shared with a
				// pending sibling; the provider's upsert makes re-adding safe,
				// so only the dedup set is updated here.
				for _, c := range item.Contexts {
					seen[c.ID] = struct{}{}
				}
				r.report(opts, cfg.Name, pcfg.Name, "ingest", i+1, len(items), 0)
				continue
			}
		}

		var fresh []types.PreparedData
		for _, c := range item.Contexts {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			fresh = append(fresh, c)
		}

		if err := r.deps.Checkpoints.MarkInProgress(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseIngest); err != nil {
			return err
		}
		if err := r.addInBatches(ctx, prov, fresh, batchSize, cfg.Ingestion.BatchDelayMS); err != nil {
			// Ingest failures poison everything downstream for this item;
			// record and keep going so one bad context does not kill the pair.
			_ = r.deps.Checkpoints.MarkFailed(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseIngest, err)
			r.log.Warn("item ingest failed", zap.String("item", item.ID), zap.Error(err))
			continue
		}
		if err := r.deps.Checkpoints.MarkComplete(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseIngest); err != nil {
			return err
		}
		r.report(opts, cfg.Name, pcfg.Name, "ingest", i+1, len(items), 0)
	}
	return nil
}

func (r *Runner) addInBatches(ctx context.Context, prov provider.Provider, data []types.PreparedData, batchSize, delayMS int) error {
	for start := 0; start < len(data); start += batchSize {
		end := start + batchSize
		if end > len(data) {
			end = len(data)
		}
		if err := prov.AddContext(ctx, data[start:end]); err != nil {
			return err
		}
		if delayMS > 0 && end < len(data) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(delayMS) * time.Millisecond):
			}
		}
	}
	return nil
}

// evaluate searches and scores each item. Per-item failures are checkpointed
// and counted, never fatal for the pair; checkpoint read failures are.
// Returns the failed-item count.
func (r *Runner) evaluate(ctx context.Context, prov provider.Provider, cfg *config.BenchmarkConfig, pcfg *config.ProviderConfig, items []types.BenchmarkItem, opts Options, log *zap.Logger) (int, error) {
	resumable := cfg.Runtime.IsResumable()
	failed := 0
	correct := 0
	evaluated := 0

	for i, item := range items {
		if resumable {
			skip, err := r.deps.Checkpoints.ShouldSkip(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseEvaluate)
			if err != nil {
				return failed, err
			}
			if skip {
				r.report(opts, cfg.Name, pcfg.Name, "evaluate", i+1, len(items), runningAccuracy(correct, evaluated))
				continue
			}
		}

		if err := r.deps.Checkpoints.MarkInProgress(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseEvaluate); err != nil {
			log.Warn("checkpoint write failed", zap.String("item", item.ID), zap.Error(err))
		}

		res, err := r.evaluateItem(ctx, prov, cfg, pcfg, item, opts)
		if err != nil {
			failed++
			_ = r.deps.Checkpoints.MarkFailed(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseEvaluate, err)
			log.Warn("item evaluation failed", zap.String("item", item.ID), zap.Error(err))
			r.report(opts, cfg.Name, pcfg.Name, "evaluate", i+1, len(items), runningAccuracy(correct, evaluated))
			continue
		}

		if err := r.deps.Store.SaveResult(res); err != nil {
			failed++
			_ = r.deps.Checkpoints.MarkFailed(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseEvaluate, err)
			log.Warn("result write failed", zap.String("item", item.ID), zap.Error(err))
			continue
		}
		_ = r.deps.Checkpoints.MarkComplete(opts.RunID, cfg.Name, pcfg.Name, item.ID, checkpoint.PhaseEvaluate)

		evaluated++
		if res.Correct {
			correct++
		}
		r.report(opts, cfg.Name, pcfg.Name, "evaluate", i+1, len(items), runningAccuracy(correct, evaluated))
	}
	return failed, nil
}

// evaluateItem runs search plus scoring for one item and assembles the
// stored row.
func (r *Runner) evaluateItem(ctx context.Context, prov provider.Provider, cfg *config.BenchmarkConfig, pcfg *config.ProviderConfig, item types.BenchmarkItem, opts Options) (*types.EvalResult, error) {
	totalStart := time.Now()

	searchStart := time.Now()
	retrieved, err := prov.Search(ctx, item.Question, provider.SearchOptions{
		Limit:         cfg.TopKOrDefault(),
		Threshold:     cfg.Search.Threshold,
		IncludeChunks: cfg.Search.IncludeChunks,
	})
	searchLatency := float64(time.Since(searchStart).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	res := &types.EvalResult{
		RunID:     opts.RunID,
		Benchmark: cfg.Name,
		Provider:  pcfg.Name,
		ItemID:    item.ID,
		Question:  item.Question,
		Expected:  item.Answer,
		Retrieved: retrieved,
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]interface{}{},
	}
	for k, v := range item.Metadata {
		res.Metadata[k] = v
	}
	if item.QuestionType != "" {
		res.Metadata["questionType"] = item.QuestionType
	}
	if item.Category != "" {
		res.Metadata["categoryName"] = item.Category
	}

	var tel types.Telemetry
	tel.SearchLatencyMS = searchLatency

	if pack, ok := r.deps.Packs.GetLatest(cfg.Name); ok {
		out, err := pack.Evaluate(ctx, packs.Input{Item: item, Retrieved: retrieved, RunID: opts.RunID})
		if err != nil {
			return nil, err
		}
		res.Actual = out.Answer
		res.Score = out.Score
		res.Correct = out.Correct
		if out.JudgeResponse != "" {
			res.Metadata["judgeResponse"] = out.JudgeResponse
		}
		if out.Reasoning != "" {
			res.Metadata["reasoning"] = out.Reasoning
		}
		mergeTelemetry(&tel, out.Telemetry)
	} else {
		method := cfg.Evaluation.CustomEvaluator
		if method == "" {
			method = cfg.Evaluation.Method
		}
		if method == "" {
			method = "llm-judge"
		}
		ev, err := r.deps.Evaluators.GetOrError(method)
		if err != nil {
			return nil, err
		}
		out, err := ev.Evaluate(ctx, evaluator.Input{Item: item, Retrieved: retrieved, Eval: cfg.Evaluation})
		if err != nil {
			return nil, err
		}
		res.Actual = out.Actual
		res.Score = out.Score
		res.Correct = out.Correct
		for k, v := range out.Details {
			res.Metadata[k] = v
		}
		mergeTelemetry(&tel, out.Telemetry)
	}

	tel.TotalLatencyMS = float64(time.Since(totalStart).Milliseconds())
	res.Metadata["telemetry"] = tel.ToMap()
	return res, nil
}

// pairResults reads back the pair's stored rows, which folds in rows from
// earlier interrupted attempts of the same run.
func (r *Runner) pairResults(runID, benchmark, providerName string) ([]types.EvalResult, error) {
	all, err := r.deps.Store.GetResults(runID)
	if err != nil {
		return nil, err
	}
	var out []types.EvalResult
	for _, res := range all {
		if res.Benchmark == benchmark && res.Provider == providerName {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *Runner) computeMetrics(cfg *config.BenchmarkConfig, results []types.EvalResult) ([]types.MetricResult, error) {
	names := cfg.Metrics
	if len(names) == 0 {
		names = []string{"accuracy"}
	}
	return r.deps.Metrics.Compute(metrics.ComputeInput{
		Benchmark: cfg.Name,
		Results:   results,
		Packs:     r.deps.Packs,
	}, names)
}

func (r *Runner) report(opts Options, benchmark, providerName, phase string, current, total int, accuracy float64) {
	if opts.Progress == nil {
		return
	}
	opts.Progress(Progress{
		Benchmark: benchmark,
		Provider:  providerName,
		Phase:     phase,
		Current:   current,
		Total:     total,
		Accuracy:  accuracy,
	})
}

func mergeTelemetry(dst *types.Telemetry, src types.Telemetry) {
	dst.AnswerLatencyMS += src.AnswerLatencyMS
	dst.JudgeLatencyMS += src.JudgeLatencyMS
	dst.PromptTokens += src.PromptTokens
	dst.AnswerTokens += src.AnswerTokens
}

func accuracyOf(results []types.EvalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(results))
}

func runningAccuracy(correct, evaluated int) float64 {
	if evaluated == 0 {
		return 0
	}
	return float64(correct) / float64(evaluated)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ashikshafi08/memorybench-sub000/internal/checkpoint"
	"github.com/ashikshafi08/memorybench-sub000/internal/evaluator"
	"github.com/ashikshafi08/memorybench-sub000/internal/llm"
	"github.com/ashikshafi08/memorybench-sub000/internal/loader"
	"github.com/ashikshafi08/memorybench-sub000/internal/metrics"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/provider"
	"github.com/ashikshafi08/memorybench-sub000/internal/runner"
	"github.com/ashikshafi08/memorybench-sub000/internal/store"
)

var (
	evalBenchmarks   string
	evalProviders    string
	evalLimit        int
	evalStart        int
	evalEnd          int
	evalQuestionType string
	evalTaskType     string
	evalConcurrency  int
	evalMetrics      string
	evalPolicy       string
	evalRunID        string
)

var evalCmd = &cobra.Command{
	Use:   "eval --benchmarks a,b --providers x,y",
	Short: "Run a benchmark x provider cross-product",
	Long: `eval drives each selected provider through each selected benchmark:
contexts are ingested under a run-scoped tag, every item's question is
searched, and the response is scored by the benchmark's pack or its
configured evaluator. Per-item progress is checkpointed; re-running with the
same --run-id resumes pending and failed items only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEval(cmd)
	},
}

func init() {
	addSelectionFlags(evalCmd.Flags())
	evalCmd.Flags().IntVar(&evalLimit, "limit", 0, "cap the item count per benchmark")
	evalCmd.Flags().IntVar(&evalStart, "start", 0, "first item (1-indexed, inclusive)")
	evalCmd.Flags().IntVar(&evalEnd, "end", 0, "last item (1-indexed, inclusive)")
	evalCmd.Flags().StringVar(&evalQuestionType, "question-type", "", "only items of this question type")
	evalCmd.Flags().StringVar(&evalTaskType, "task-type", "", "code benchmarks: function|line|api|all")
	evalCmd.Flags().IntVar(&evalConcurrency, "concurrency", runner.DefaultConcurrency, "simultaneous (benchmark, provider) pairs")
	evalCmd.Flags().StringVar(&evalMetrics, "metrics", "", "override the metric set (comma-separated)")
	evalCmd.Flags().StringVar(&evalPolicy, "policy", "1-hop", "retrieval policy: 1-hop|H-hop|all")
	evalCmd.Flags().StringVar(&evalRunID, "run-id", "", "run id (re-use to resume; generated when empty)")
	_ = evalCmd.MarkFlagRequired("benchmarks")
	_ = evalCmd.MarkFlagRequired("providers")
}

// addSelectionFlags binds the benchmark/provider selectors shared with the
// download command.
func addSelectionFlags(fs *pflag.FlagSet) {
	fs.StringVar(&evalBenchmarks, "benchmarks", "", "benchmark names (comma-separated)")
	fs.StringVar(&evalProviders, "providers", "", "provider names (comma-separated)")
}

func runEval(cmd *cobra.Command) error {
	switch evalPolicy {
	case "1-hop", "H-hop", "all":
	default:
		return fmt.Errorf("unknown policy %q (expected 1-hop, H-hop, or all)", evalPolicy)
	}
	if evalStart > 0 && evalEnd > 0 && evalStart > evalEnd {
		return fmt.Errorf("--start (%d) must not exceed --end (%d)", evalStart, evalEnd)
	}

	ws, err := loadWorkspace(configDir)
	if err != nil {
		return err
	}
	benchmarks, err := ws.selectBenchmarks(splitCSV(evalBenchmarks))
	if err != nil {
		return err
	}
	providers, err := ws.selectProviders(splitCSV(evalProviders))
	if err != nil {
		return err
	}
	if metricNames := splitCSV(evalMetrics); len(metricNames) > 0 {
		for _, b := range benchmarks {
			b.Metrics = metricNames
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	db, err := store.Open(filepath.Join(outputDir, "results.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	runID := evalRunID
	if runID == "" {
		runID = uuid.NewString()
	}

	client := llm.NewRouter()
	packReg, err := packs.DefaultRegistry(client)
	if err != nil {
		return err
	}

	// The run row carries the full invocation so results are reproducible;
	// the runner's own CreateRun no-ops on the existing id.
	if err := db.CreateRun(store.Run{
		ID:         runID,
		Benchmarks: splitCSV(evalBenchmarks),
		Providers:  splitCSV(evalProviders),
		Config: map[string]interface{}{
			"concurrency":  evalConcurrency,
			"limit":        evalLimit,
			"start":        evalStart,
			"end":          evalEnd,
			"questionType": evalQuestionType,
			"taskType":     evalTaskType,
			"policy":       evalPolicy,
			"metrics":      splitCSV(evalMetrics),
		},
	}); err != nil {
		return err
	}

	questionType := evalQuestionType
	if questionType == "" && evalTaskType != "" && evalTaskType != "all" {
		// Code loaders surface the task type as the item's question type.
		questionType = evalTaskType
	}

	r := runner.New(runner.Deps{
		Loaders:     loader.DefaultRegistry(),
		Evaluators:  evaluator.DefaultRegistry(client),
		Packs:       packReg,
		Adapters:    provider.DefaultAdapters(),
		Metrics:     metrics.DefaultRegistry(),
		Checkpoints: checkpoint.NewManager(filepath.Join(outputDir, "checkpoints")),
		Store:       db,
	})

	cmd.Printf("Run %s: %d benchmark(s) x %d provider(s)\n", runID, len(benchmarks), len(providers))
	result, err := r.Run(cmd.Context(), benchmarks, providers, runner.Options{
		RunID:       runID,
		Concurrency: evalConcurrency,
		Load: loader.LoadOptions{
			QuestionType: questionType,
			Start:        evalStart,
			End:          evalEnd,
			Limit:        evalLimit,
		},
		Progress: printProgress,
	})
	if err != nil {
		return err
	}

	failedPairs := 0
	for _, pair := range result.Pairs {
		cmd.Println()
		if pair.Error != "" {
			failedPairs++
			cmd.Printf("%s %s x %s: %s\n", statusErr("FAIL"), pair.Benchmark, pair.Provider, pair.Error)
			continue
		}
		status := statusOK("OK")
		if pair.FailedItems > 0 {
			status = statusWarn("PARTIAL")
		}
		cmd.Printf("%s %s x %s: %d/%d items completed, %d failed\n",
			status, pair.Benchmark, pair.Provider,
			pair.CompletedItems, pair.TotalItems, pair.FailedItems)
		renderTable([]string{"METRIC", "VALUE"}, metricRows(pair.Metrics))
	}
	cmd.Printf("\nResults stored in %s (run %s)\n", filepath.Join(outputDir, "results.db"), runID)

	if failedPairs == len(result.Pairs) {
		return fmt.Errorf("all %d pairs failed", failedPairs)
	}
	return nil
}

// printProgress keeps the terminal informed without flooding it: phase
// boundaries always print, in-between items every 25th.
func printProgress(p runner.Progress) {
	if p.Current != p.Total && p.Current%25 != 0 {
		return
	}
	if p.Phase == "evaluate" && p.Current > 0 {
		fmt.Printf("  [%s x %s] %s %d/%d (accuracy %.1f%%)\n",
			p.Benchmark, p.Provider, p.Phase, p.Current, p.Total, 100*p.Accuracy)
		return
	}
	fmt.Printf("  [%s x %s] %s %d/%d\n", p.Benchmark, p.Provider, p.Phase, p.Current, p.Total)
}

package main

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ashikshafi08/memorybench-sub000/internal/metrics"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/store"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

var (
	resultsMetrics   string
	resultsBreakdown bool
	resultsCompare   string
)

var resultsCmd = &cobra.Command{
	Use:   "results <runId>",
	Short: "Summarize a stored run, optionally recomputing metrics",
	Long: `results reads the stored rows of one run and prints per-pair
aggregates. --metrics recomputes any registered metric set post-hoc from the
stored results; no provider or model calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		db, err := store.Open(filepath.Join(outputDir, "results.db"))
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(runID)
		if err != nil {
			return err
		}
		cmd.Printf("Run %s (started %s)\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))

		aggregates, err := db.Aggregates(runID)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, a := range aggregates {
			rows = append(rows, []string{
				a.Benchmark, a.Provider,
				formatPercent(a.Correct, a.Total),
				formatValue(a.AvgScore),
				formatCount(a.Correct, a.Total),
			})
		}
		renderTable([]string{"BENCHMARK", "PROVIDER", "ACCURACY", "AVG SCORE", "CORRECT/TOTAL"}, rows)

		if names := splitCSV(resultsMetrics); len(names) > 0 {
			if err := printRecomputedMetrics(cmd, db, runID, names); err != nil {
				return err
			}
		}

		if resultsBreakdown {
			for _, field := range []string{"questionType", "categoryName"} {
				groups, err := db.AggregatesByMetadata(runID, field)
				if err != nil {
					return err
				}
				var rows [][]string
				for _, g := range groups {
					rows = append(rows, []string{
						g.Group, formatPercent(g.Correct, g.Total), formatCount(g.Correct, g.Total),
					})
				}
				cmd.Printf("Breakdown by %s:\n", field)
				renderTable([]string{"GROUP", "ACCURACY", "CORRECT/TOTAL"}, rows)
			}
		}

		if providers := splitCSV(resultsCompare); len(providers) > 0 {
			for _, benchmark := range run.Benchmarks {
				compared, err := db.CompareProviders(runID, benchmark, providers)
				if err != nil {
					return err
				}
				var rows [][]string
				for _, a := range compared {
					rows = append(rows, []string{
						a.Provider, formatPercent(a.Correct, a.Total), formatValue(a.AvgScore),
					})
				}
				cmd.Printf("Provider comparison for %s:\n", benchmark)
				renderTable([]string{"PROVIDER", "ACCURACY", "AVG SCORE"}, rows)
			}
		}
		return nil
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsMetrics, "metrics", "", "recompute these metrics from stored results (comma-separated)")
	resultsCmd.Flags().BoolVar(&resultsBreakdown, "breakdown", false, "break accuracy down by question type and category")
	resultsCmd.Flags().StringVar(&resultsCompare, "compare", "", "compare these providers per benchmark (comma-separated)")
}

// printRecomputedMetrics runs the requested calculators over each
// (benchmark, provider) slice of the stored rows. Pack-owned relevance works
// without a model client; only answer generation needs one.
func printRecomputedMetrics(cmd *cobra.Command, db *store.Store, runID string, names []string) error {
	packReg, err := packs.DefaultRegistry(nil)
	if err != nil {
		return err
	}
	metricReg := metrics.DefaultRegistry()

	all, err := db.GetResults(runID)
	if err != nil {
		return err
	}
	for _, group := range groupByPair(all) {
		computed, err := metricReg.Compute(metrics.ComputeInput{
			Benchmark: group.benchmark,
			Results:   group.results,
			Packs:     packReg,
		}, names)
		if err != nil {
			return err
		}
		cmd.Printf("Metrics for %s x %s:\n", group.benchmark, group.provider)
		renderTable([]string{"METRIC", "VALUE"}, metricRows(computed))
	}
	return nil
}

type pairGroup struct {
	benchmark string
	provider  string
	results   []types.EvalResult
}

// groupByPair splits one run's rows by (benchmark, provider), preserving the
// stored order within each group.
func groupByPair(results []types.EvalResult) []pairGroup {
	index := map[string]int{}
	var groups []pairGroup
	for _, r := range results {
		key := r.Benchmark + "\x00" + r.Provider
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, pairGroup{benchmark: r.Benchmark, provider: r.Provider})
		}
		groups[i].results = append(groups[i].results, r)
	}
	return groups
}

func formatCount(correct, total int) string {
	return strconv.Itoa(correct) + "/" + strconv.Itoa(total)
}

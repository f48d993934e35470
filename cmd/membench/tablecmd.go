package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ashikshafi08/memorybench-sub000/internal/metrics"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
	"github.com/ashikshafi08/memorybench-sub000/internal/store"
)

var (
	tableRun       string
	tableBenchmark string
	tableBaseline  string
	tableMetrics   string
)

var tableCmd = &cobra.Command{
	Use:   "table --run <runId> --benchmark <name>",
	Short: "Render a metric x provider comparison table for one benchmark",
	Long: `table recomputes a metric set over one benchmark's stored results and
prints one column per provider. With --baseline, every other provider gains a
delta column against the baseline's value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(filepath.Join(outputDir, "results.db"))
		if err != nil {
			return err
		}
		defer db.Close()

		names := splitCSV(tableMetrics)
		if len(names) == 0 {
			// The benchmark's configured metric set, when its config is
			// present; plain accuracy otherwise.
			if ws, err := loadWorkspace(configDir); err == nil {
				if cfg, ok := ws.benchmarks[tableBenchmark]; ok && len(cfg.Metrics) > 0 {
					names = cfg.Metrics
				}
			}
			if len(names) == 0 {
				names = []string{"accuracy"}
			}
		}

		packReg, err := packs.DefaultRegistry(nil)
		if err != nil {
			return err
		}
		metricReg := metrics.DefaultRegistry()

		all, err := db.GetResults(tableRun)
		if err != nil {
			return err
		}
		var groups []pairGroup
		for _, g := range groupByPair(all) {
			if g.benchmark == tableBenchmark {
				groups = append(groups, g)
			}
		}
		if len(groups) == 0 {
			return fmt.Errorf("run %q has no results for benchmark %q", tableRun, tableBenchmark)
		}

		// values[provider][metric]
		values := map[string]map[string]float64{}
		providers := make([]string, 0, len(groups))
		for _, g := range groups {
			computed, err := metricReg.Compute(metrics.ComputeInput{
				Benchmark: g.benchmark,
				Results:   g.results,
				Packs:     packReg,
			}, names)
			if err != nil {
				return err
			}
			providers = append(providers, g.provider)
			values[g.provider] = map[string]float64{}
			for _, m := range computed {
				values[g.provider][m.Name] = m.Value
			}
		}
		if tableBaseline != "" {
			if _, ok := values[tableBaseline]; !ok {
				return fmt.Errorf("baseline provider %q has no results for benchmark %q", tableBaseline, tableBenchmark)
			}
		}

		headers := []string{"METRIC"}
		for _, p := range providers {
			headers = append(headers, p)
			if tableBaseline != "" && p != tableBaseline {
				headers = append(headers, p+" Δ")
			}
		}

		// Resolved names de-duplicate aliases, so iterate the computed set of
		// the first provider for row order.
		resolved, err := metricReg.Resolve(names)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, c := range resolved {
			row := []string{c.Name}
			for _, p := range providers {
				v := values[p][c.Name]
				row = append(row, formatValue(v))
				if tableBaseline != "" && p != tableBaseline {
					row = append(row, fmt.Sprintf("%+.4f", v-values[tableBaseline][c.Name]))
				}
			}
			rows = append(rows, row)
		}

		cmd.Printf("Benchmark %s, run %s:\n", tableBenchmark, tableRun)
		renderTable(headers, rows)
		return nil
	},
}

func init() {
	tableCmd.Flags().StringVar(&tableRun, "run", "", "run id")
	tableCmd.Flags().StringVar(&tableBenchmark, "benchmark", "", "benchmark name")
	tableCmd.Flags().StringVar(&tableBaseline, "baseline", "", "baseline provider for delta columns")
	tableCmd.Flags().StringVar(&tableMetrics, "metrics", "", "metric set (defaults to the benchmark's configured metrics)")
	_ = tableCmd.MarkFlagRequired("run")
	_ = tableCmd.MarkFlagRequired("benchmark")
}

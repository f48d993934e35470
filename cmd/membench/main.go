// membench drives retrieval providers through question-answering and
// code-retrieval benchmarks, scores the responses, and persists reproducible
// results.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
)

var (
	// Global flags
	verbose   bool
	configDir string
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "membench",
	Short: "Benchmark harness for memory and retrieval providers",
	Long: `membench runs benchmark x provider cross-products: it ingests dataset
contexts into each provider, issues queries, scores retrieved results against
ground-truth labels, and produces a metrics table plus a queryable results
store.

Benchmarks and providers are described by YAML files under the config
directory (benchmarks/ and providers/ subdirectories). Results land in
{output}/results.db; per-run checkpoints under {output}/checkpoints let an
interrupted run resume exactly where it stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "config directory (benchmarks/ and providers/ subdirs)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "membench-out", "output directory for results.db and checkpoints")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tableCmd)
}

func main() {
	// Cancellation is cooperative: on SIGINT/SIGTERM the runner finishes the
	// in-flight item, runs cleanup, and exits with partial results
	// checkpointed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

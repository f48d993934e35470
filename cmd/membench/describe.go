package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/packs"
)

var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show details of a registered benchmark or provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(configDir)
		if err != nil {
			return err
		}
		name := args[0]
		if cfg, ok := ws.benchmarks[name]; ok {
			describeBenchmark(cmd, cfg)
			return nil
		}
		if cfg, ok := ws.providers[name]; ok {
			describeProvider(cmd, cfg)
			return nil
		}
		return fmt.Errorf("unknown benchmark or provider %q (benchmarks: %s; providers: %s)",
			name, strings.Join(ws.benchmarkNames(), ", "), strings.Join(ws.providerNames(), ", "))
	},
}

func describeBenchmark(cmd *cobra.Command, cfg *config.BenchmarkConfig) {
	cmd.Printf("Benchmark: %s\n", displayOr(cfg.DisplayName, cfg.Name))
	if cfg.Version != "" {
		cmd.Printf("Version:   %s\n", cfg.Version)
	}
	if len(cfg.Tags) > 0 {
		cmd.Printf("Tags:      %s\n", strings.Join(cfg.Tags, ", "))
	}
	cmd.Printf("Source:    %s (%s, format %s)\n", cfg.Source.Path, cfg.Source.Type, cfg.Source.Format)
	cmd.Printf("Search:    top-k %d, threshold %g\n", cfg.TopKOrDefault(), cfg.Search.Threshold)
	if len(cfg.Metrics) > 0 {
		cmd.Printf("Metrics:   %s\n", strings.Join(cfg.Metrics, ", "))
	}

	// Packs own prompts/scoring/relevance when registered; the LLM client is
	// irrelevant for a description, so the deterministic set suffices.
	reg, err := packs.DefaultRegistry(nil)
	if err == nil {
		if pack, ok := reg.GetLatest(cfg.Name); ok {
			sealed := pack.SealedSemantics()
			var facets []string
			if sealed.Prompts {
				facets = append(facets, "prompts")
			}
			if sealed.Scoring {
				facets = append(facets, "scoring")
			}
			if sealed.Relevance {
				facets = append(facets, "relevance")
			}
			cmd.Printf("Pack:      %s (sealed: %s)\n", pack.PackID(), strings.Join(facets, ", "))
			return
		}
	}
	method := cfg.Evaluation.CustomEvaluator
	if method == "" {
		method = cfg.Evaluation.Method
	}
	if method != "" {
		cmd.Printf("Evaluator: %s\n", method)
	}
}

func describeProvider(cmd *cobra.Command, cfg *config.ProviderConfig) {
	cmd.Printf("Provider: %s\n", displayOr(cfg.DisplayName, cfg.Name))
	cmd.Printf("Type:     %s\n", cfg.Type)
	switch cfg.Type {
	case config.ProviderHosted:
		cmd.Printf("URL:      %s\n", cfg.Hosted.URL)
	case config.ProviderLocal:
		cmd.Printf("Adapter:  %s\n", cfg.Local.Adapter)
	case config.ProviderContainer:
		cmd.Printf("Compose:  %s (service %s)\n", cfg.Container.ComposeFile, cfg.Container.Service)
	}
	var caps []string
	if cfg.Capabilities.SupportsChunks {
		caps = append(caps, "chunks")
	}
	if cfg.Capabilities.SupportsBatch {
		caps = append(caps, "batch")
	}
	if cfg.Capabilities.SupportsMetadata {
		caps = append(caps, "metadata")
	}
	if cfg.Capabilities.SupportsRerank {
		caps = append(caps, "rerank")
	}
	if len(caps) > 0 {
		cmd.Printf("Supports: %s\n", strings.Join(caps, ", "))
	}
}

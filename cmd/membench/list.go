package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	listProviders  bool
	listBenchmarks bool
	listTags       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered benchmarks and providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(configDir)
		if err != nil {
			return err
		}
		// No selector flag means both sections.
		both := !listProviders && !listBenchmarks
		tags := splitCSV(listTags)

		if both || listBenchmarks {
			var rows [][]string
			for _, name := range ws.benchmarkNames() {
				cfg := ws.benchmarks[name]
				if !hasAllTags(cfg.Tags, tags) {
					continue
				}
				rows = append(rows, []string{
					cfg.Name, displayOr(cfg.DisplayName, cfg.Name), cfg.Version,
					strings.Join(cfg.Tags, ","),
				})
			}
			cmd.Println("Benchmarks:")
			renderTable([]string{"NAME", "DISPLAY NAME", "VERSION", "TAGS"}, rows)
		}

		if both || listProviders {
			var rows [][]string
			for _, name := range ws.providerNames() {
				cfg := ws.providers[name]
				rows = append(rows, []string{
					cfg.Name, displayOr(cfg.DisplayName, cfg.Name), cfg.Type,
				})
			}
			cmd.Println("Providers:")
			renderTable([]string{"NAME", "DISPLAY NAME", "TYPE"}, rows)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listProviders, "providers", false, "list providers only")
	listCmd.Flags().BoolVar(&listBenchmarks, "benchmarks", false, "list benchmarks only")
	listCmd.Flags().StringVar(&listTags, "tags", "", "filter benchmarks by tags (comma-separated, all must match)")
}

func displayOr(display, fallback string) string {
	if display != "" {
		return display
	}
	return fallback
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

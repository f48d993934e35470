package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
)

// workspace is the loaded config surface every command works from: all
// benchmark and provider configs found under the config directory, indexed
// by name.
type workspace struct {
	benchmarks map[string]*config.BenchmarkConfig
	providers  map[string]*config.ProviderConfig
}

// loadWorkspace reads every YAML file under {configDir}/benchmarks and
// {configDir}/providers. Missing subdirectories are tolerated so commands
// that only need one side still work.
func loadWorkspace(dir string) (*workspace, error) {
	ws := &workspace{
		benchmarks: map[string]*config.BenchmarkConfig{},
		providers:  map[string]*config.ProviderConfig{},
	}

	for _, path := range yamlFiles(filepath.Join(dir, "benchmarks")) {
		cfg, err := config.LoadBenchmarkConfig(path)
		if err != nil {
			return nil, err
		}
		if _, dup := ws.benchmarks[cfg.Name]; dup {
			return nil, fmt.Errorf("benchmark %q defined twice under %s", cfg.Name, dir)
		}
		ws.benchmarks[cfg.Name] = cfg
	}
	for _, path := range yamlFiles(filepath.Join(dir, "providers")) {
		cfg, err := config.LoadProviderConfig(path)
		if err != nil {
			return nil, err
		}
		if _, dup := ws.providers[cfg.Name]; dup {
			return nil, fmt.Errorf("provider %q defined twice under %s", cfg.Name, dir)
		}
		ws.providers[cfg.Name] = cfg
	}
	return ws, nil
}

func yamlFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func (ws *workspace) benchmarkNames() []string {
	names := make([]string, 0, len(ws.benchmarks))
	for name := range ws.benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ws *workspace) providerNames() []string {
	names := make([]string, 0, len(ws.providers))
	for name := range ws.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectBenchmarks resolves the requested names, failing on the first unknown
// one with the available names listed.
func (ws *workspace) selectBenchmarks(names []string) ([]*config.BenchmarkConfig, error) {
	var out []*config.BenchmarkConfig
	for _, name := range names {
		cfg, ok := ws.benchmarks[name]
		if !ok {
			return nil, fmt.Errorf("unknown benchmark %q (available: %s)",
				name, strings.Join(ws.benchmarkNames(), ", "))
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (ws *workspace) selectProviders(names []string) ([]*config.ProviderConfig, error) {
	var out []*config.ProviderConfig
	for _, name := range names {
		cfg, ok := ws.providers[name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q (available: %s)",
				name, strings.Join(ws.providerNames(), ", "))
		}
		out = append(out, cfg)
	}
	return out, nil
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty segments.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

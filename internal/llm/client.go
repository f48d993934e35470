// Package llm provides the single "generate text from prompt" contract the
// evaluators and benchmark packs consume, routed to a concrete model provider
// by a {provider}/{model} prefix convention.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one prompt for a model.
type Request struct {
	// Model is "{provider}/{model}" or a bare model name whose provider is
	// inferred from well-known naming patterns.
	Model       string
	Prompt      string
	Temperature float64
}

// Response carries the generated text and token accounting when available.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client is the only operation the core requires from the model layer.
type Client interface {
	GenerateText(ctx context.Context, req Request) (Response, error)
}

// SupportedProviders lists the providers the router can construct, for
// diagnostics on unknown-provider failures.
var SupportedProviders = []string{"anthropic", "google", "ollama", "openai"}

// SplitModel resolves "{provider}/{model}" into its parts. A missing prefix
// is inferred from the model name: claude* -> anthropic, gpt*/o[0-9]* ->
// openai, gemini* -> google. Unknown shapes fail with a diagnostic listing
// the supported providers.
func SplitModel(spec string) (provider, model string, err error) {
	if spec == "" {
		return "", "", fmt.Errorf("llm: empty model spec")
	}
	if idx := strings.Index(spec, "/"); idx > 0 {
		return spec[:idx], spec[idx+1:], nil
	}

	lower := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lower, "claude"):
		return "anthropic", spec, nil
	case strings.HasPrefix(lower, "gpt"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return "openai", spec, nil
	case strings.HasPrefix(lower, "gemini"):
		return "google", spec, nil
	}
	return "", "", fmt.Errorf("llm: cannot infer provider for model %q (use {provider}/{model}; supported providers: %s)",
		spec, strings.Join(SupportedProviders, ", "))
}

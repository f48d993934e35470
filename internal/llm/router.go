package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
)

// Router dispatches GenerateText calls to langchaingo model clients keyed by
// provider. Clients are constructed lazily and cached per (provider, model).
type Router struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[string]llms.Model

	// newModel is swappable for tests.
	newModel func(ctx context.Context, provider, model string) (llms.Model, error)
}

// NewRouter creates the default router.
func NewRouter() *Router {
	return &Router{
		log:      logging.Named("llm"),
		clients:  make(map[string]llms.Model),
		newModel: buildModel,
	}
}

// buildModel constructs a langchaingo client for one provider/model. API keys
// come from each provider SDK's usual environment variables.
func buildModel(ctx context.Context, provider, model string) (llms.Model, error) {
	switch provider {
	case "openai":
		return openai.New(openai.WithModel(model))
	case "anthropic":
		return anthropic.New(anthropic.WithModel(model))
	case "google":
		return googleai.New(ctx, googleai.WithDefaultModel(model))
	case "ollama":
		return ollama.New(ollama.WithModel(model))
	}
	return nil, fmt.Errorf("llm: unknown provider %q (supported: anthropic, google, ollama, openai)", provider)
}

func (r *Router) model(ctx context.Context, provider, model string) (llms.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := provider + "/" + model
	if m, ok := r.clients[key]; ok {
		return m, nil
	}
	m, err := r.newModel(ctx, provider, model)
	if err != nil {
		return nil, err
	}
	r.clients[key] = m
	return m, nil
}

// GenerateText sends one prompt and returns the generated text with token
// counts (estimated locally when the provider reports none).
func (r *Router) GenerateText(ctx context.Context, req Request) (Response, error) {
	provider, model, err := SplitModel(req.Model)
	if err != nil {
		return Response{}, err
	}

	client, err := r.model(ctx, provider, model)
	if err != nil {
		return Response{}, err
	}

	opts := []llms.CallOption{}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	r.log.Debug("generate",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("promptLen", len(req.Prompt)))

	resp, err := client.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("llm %s/%s: %w", provider, model, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("llm %s/%s: no content generated", provider, model)
	}

	text := resp.Choices[0].Content
	return Response{
		Text:             text,
		PromptTokens:     CountTokens(req.Prompt),
		CompletionTokens: CountTokens(text),
	}, nil
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// Factory builds the provider for a candidate identifier.
type Factory func(ctx context.Context, candidate string) (Provider, error)

// NewFactory returns a Factory that builds providers from configuration.
// Each provider is wrapped with logging; retries are layered on by the
// Client once a candidate is active.
func NewFactory(cfg Config, recorder EventRecorder, logger *slog.Logger) Factory {
	return func(ctx context.Context, candidate string) (Provider, error) {
		provider, model, err := ParseCandidate(candidate)
		if err != nil {
			return nil, err
		}

		var base Provider
		switch provider {
		case "anthropic":
			base, err = NewAnthropicProvider(cfg.Anthropic, model)
		case "openai":
			base, err = NewOpenAIProvider(cfg.OpenAI, model)
		case "gemini":
			base, err = NewGeminiProvider(ctx, cfg.Gemini, model)
		case "openrouter":
			base, err = NewOpenRouterProvider(cfg.OpenRouter, model)
		case "hf":
			base, err = NewHuggingFaceProvider(cfg.HuggingFace, model)
		case "mock":
			if model == "" {
				model = "mock"
			}
			base = NewNamedMockProvider(model)
		}
		if err != nil {
			return nil, fmt.Errorf("initializing %s provider: %w", provider, err)
		}

		return WithLogging(base, provider, recorder, logger), nil
	}
}

package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/store"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewProvider creates a Provider from configuration, wrapped with the
// request-logging middleware. There is deliberately no retry layer: a
// failed generation surfaces to the caller, who re-initiates explicitly.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *zap.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		oai := cfg.OpenAI
		if oai.BaseURL == "" {
			oai.BaseURL = openRouterBaseURL
		}
		base, err = NewOpenAIProvider(oai)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithLogging(base, events, log), nil
}

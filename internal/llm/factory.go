package llm

import (
	"context"
	"fmt"
	"strings"

	"counterpoint/internal/config"
)

// Clients bundles the capabilities a provider offers. Embedder and Image are
// nil on providers without the capability; callers degrade accordingly.
type Clients struct {
	Text       LLMClient
	Structured StructuredClient
	Embedder   EmbedderClient
	Image      ImageClient
}

func NewClients(ctx context.Context, cfg config.LLMConfig) (*Clients, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.ImageModel)
		if err != nil {
			return nil, err
		}
		return &Clients{Text: c, Structured: c, Embedder: c, Image: c}, nil

	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.BaseURL)
		return &Clients{Text: c, Structured: c, Embedder: c}, nil

	case "claude":
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		return &Clients{Text: c, Structured: c}, nil

	case "ollama":
		// Ollama speaks the OpenAI-compatible API; route it through that
		// client so usage tracking works.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // Dummy key, ignored by Ollama but required by the client
		}
		c := NewOpenAIClient(apiKey, cfg.Model, cfg.EmbeddingModel, baseURL)
		return &Clients{Text: c, Structured: c, Embedder: c}, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/StockPilot/config"
)

// NewChatModel builds the chat model for the configured provider. modelName
// overrides cfg.LLMModel when non-empty.
func NewChatModel(ctx context.Context, cfg *config.Config, modelName string) (model.ChatModel, error) {
	if err := cfg.RequireLLMCredential(); err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = cfg.LLMModel
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		maxTokens := cfg.MaxTokens
		temperature := cfg.Temperature
		mcfg := &openai.ChatModelConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       modelName,
			Timeout:     cfg.HTTPTimeout * 6,
			Temperature: &temperature,
		}
		if maxTokens > 0 {
			mcfg.MaxTokens = &maxTokens
		}
		if cfg.BackendURL != "" {
			mcfg.BaseURL = cfg.BackendURL
		}
		cm, err := openai.NewChatModel(ctx, mcfg)
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return cm, nil

	case config.ProviderDeepSeek:
		mcfg := &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     modelName,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.HTTPTimeout * 6,
		}
		if cfg.BackendURL != "" {
			mcfg.BaseURL = cfg.BackendURL
		}
		cm, err := deepseek.NewChatModel(ctx, mcfg)
		if err != nil {
			return nil, fmt.Errorf("create deepseek chat model: %w", err)
		}
		return cm, nil
	}

	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

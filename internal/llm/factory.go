package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/darklens/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch normalizeProvider(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model configuration to llm.Config
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	return Config{
		Provider:    llmConfig.Provider,
		Model:       llmConfig.Model,
		APIKey:      llmConfig.APIKey,
		BaseURL:     llmConfig.BaseURL,
		Timeout:     llmConfig.Timeout,
		Temperature: llmConfig.Temperature,
		MaxTokens:   llmConfig.MaxTokens,
		HTTPProxy:   httpConfig.HTTPProxy,
		HTTPSProxy:  httpConfig.HTTPSProxy,
		NoProxy:     httpConfig.NoProxy,
	}
}

// APIKeyFromEnv returns the provider's conventional key variable, then DARKLENS_LLM_API_KEY
func APIKeyFromEnv(provider string) string {
	var vars []string
	switch normalizeProvider(provider) {
	case "openai":
		vars = []string{"OPENAI_API_KEY"}
	case "anthropic":
		vars = []string{"ANTHROPIC_API_KEY"}
	}
	vars = append(vars, "DARKLENS_LLM_API_KEY")

	for _, name := range vars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeProvider(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "claude":
		return "anthropic"
	case "":
		return "openai"
	default:
		return p
	}
}

func requestTimeout(config Config, fallback time.Duration) time.Duration {
	if config.Timeout > 0 {
		return time.Duration(config.Timeout) * time.Second
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

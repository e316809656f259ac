package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a hosted provider is configured without a key
var ErrMissingAPIKey = errors.New("API key is required")

// Provider defines the interface for vision-capable LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Analyze sends one image with the audit prompt and returns the raw
	// structured reply. Implementations make exactly one request.
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnalyzeRequest contains the input for one audit
type AnalyzeRequest struct {
	// ImageBase64 is the standard base64 encoding of the image bytes
	ImageBase64 string

	// MIMEType of the image, e.g. image/png
	MIMEType string

	// Prompt is the audit instruction text
	Prompt string

	// Model overrides the configured model
	Model string

	// Temperature for sampling
	Temperature float32

	// MaxTokens limits the response length
	MaxTokens int
}

// DataURI renders the image as a data URI
func (r AnalyzeRequest) DataURI() string {
	return "data:" + r.MIMEType + ";base64," + r.ImageBase64
}

// AnalyzeResponse is the raw provider reply
type AnalyzeResponse struct {
	// Content is the JSON document produced by the model
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Temperature for every audit request. Negative selects the default.
	Temperature float32

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60,
		Temperature: 0.2,
		MaxTokens:   4096,
	}
}

// RequiresAPIKey reports whether provider needs a credential
func RequiresAPIKey(provider string) bool {
	switch normalizeProvider(provider) {
	case "ollama":
		return false
	default:
		return true
	}
}

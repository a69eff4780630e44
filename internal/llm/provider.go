package llm

import (
	"context"

	"github.com/ivlasov/claimfold/internal/model"
)

// Provider defines the interface for generation/embedding providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces text for the given prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Embed returns one fixed-dimension vector per input text,
	// preserving input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for text generation
type GenerateRequest struct {
	// System is the system prompt (optional)
	System string

	// Prompt is the user prompt
	Prompt string

	// Model overrides the configured model (optional)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling randomness
	Temperature float32
}

// GenerateResponse contains the provider's output
type GenerateResponse struct {
	// Text is the generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks total token consumption for budget accounting
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name for generation
	Model string

	// EmbeddingModel name for vector encoding
	EmbeddingModel string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (Ollama, OpenAI-compatible services)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature default for generation
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Timeout:        60,
		MaxTokens:      1024,
		Temperature:    0.1,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig, httpProxy, httpsProxy string) Config {
	return Config{
		Provider:       mc.Provider,
		Model:          mc.Model,
		EmbeddingModel: mc.EmbeddingModel,
		APIKey:         mc.APIKey,
		BaseURL:        mc.BaseURL,
		Timeout:        mc.Timeout,
		MaxTokens:      mc.MaxTokens,
		Temperature:    mc.Temperature,
		HTTPProxy:      httpProxy,
		HTTPSProxy:     httpsProxy,
	}
}

// EstimateTokens approximates token count for budget accounting.
// Rough heuristic: 1 token per 4 characters.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

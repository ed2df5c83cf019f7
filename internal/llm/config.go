// Package llm wraps the hosted model used for feedback generation and
// optional remote embeddings, with a tier-based model configuration.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short, cheap calls
	TierLite ModelTier = "lite"
	// TierStandard is for structured review feedback
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or demanding prompts
	TierAdvanced ModelTier = "advanced"
	// TierEmbedding names the text embedding model
	TierEmbedding ModelTier = "embedding"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:      "gemini-2.5-flash-lite",
			TierStandard:  "gemini-2.5-flash",
			TierAdvanced:  "gemini-2.5-pro",
			TierEmbedding: "text-embedding-004",
		},
		Temperature: 0.2,
	}
}

// GetModel returns the model name for a given tier. Generation tiers fall
// back to standard, then lite; the embedding tier never falls back to a
// generation model.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if tier == TierEmbedding {
		return ""
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

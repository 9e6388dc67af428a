package providers

// TokenType distinguishes input from output tokens for pricing.
type TokenType int

const (
	TokenInput  TokenType = iota // Prompt tokens
	TokenOutput                  // Completion tokens
)

// OutputMultiplier is applied to the input price when a model has no explicit output price.
const OutputMultiplier = 2

// ModelPricing contains per-model pricing information in USD per token.
type ModelPricing struct {
	Model          string  `yaml:"model"`
	InputPerToken  float64 `yaml:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token,omitempty"`
}

// OutputPrice returns the output price, deriving it from the input price when unset.
func (m ModelPricing) OutputPrice() float64 {
	if m.OutputPerToken > 0 {
		return m.OutputPerToken
	}
	return m.InputPerToken * OutputMultiplier
}

// ProviderConfig holds YAML-loaded pricing data for a provider.
type ProviderConfig struct {
	Provider string         `yaml:"provider"`
	Updated  string         `yaml:"updated"`
	Models   []ModelPricing `yaml:"models"`
}

// Provider is the core interface for LLM price lookups.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Models returns all known models with pricing.
	Models() []ModelPricing

	// PricePerToken returns the cost for a single token of the given type and model.
	PricePerToken(model string, tokenType TokenType) (float64, error)

	// SupportsModel reports whether this provider has pricing for the given model.
	SupportsModel(model string) bool
}

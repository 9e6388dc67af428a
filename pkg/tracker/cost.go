package tracker

import (
	"github.com/shopspring/decimal"

	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
)

// DefaultPricePerToken is charged per input token when no price table covers a model.
const DefaultPricePerToken = 0.00001

// costPlaces is the number of decimal places costs are rounded to.
const costPlaces = 4

// CostCalculator computes costs for LLM API usage. It never fails: unknown
// providers and models are priced at DefaultPricePerToken.
type CostCalculator struct {
	registry *providers.Registry
}

// NewCostCalculator creates a cost calculator backed by a provider registry.
func NewCostCalculator(registry *providers.Registry) *CostCalculator {
	return &CostCalculator{registry: registry}
}

// Calculate returns the USD cost of a call, rounded half-up to 4 decimal places.
func (c *CostCalculator) Calculate(providerName, model string, promptTokens, completionTokens int64) float64 {
	in, out := c.Prices(providerName, model)
	cost := decimal.NewFromInt(promptTokens).Mul(decimal.NewFromFloat(in)).
		Add(decimal.NewFromInt(completionTokens).Mul(decimal.NewFromFloat(out)))
	return cost.Round(costPlaces).InexactFloat64()
}

// Prices returns the per-token input and output prices used for a model.
func (c *CostCalculator) Prices(providerName, model string) (input, output float64) {
	if c.registry != nil {
		if p, err := c.registry.Get(providerName); err == nil {
			in, inErr := p.PricePerToken(model, providers.TokenInput)
			out, outErr := p.PricePerToken(model, providers.TokenOutput)
			if inErr == nil && outErr == nil {
				return in, out
			}
		}
	}
	return DefaultPricePerToken, DefaultPricePerToken * providers.OutputMultiplier
}

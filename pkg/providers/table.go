package providers

import (
	"fmt"
	"strings"
)

// PriceTable implements Provider from a static pricing config.
// Model names are resolved through NormalizeModel, so versioned names
// such as "gpt-4-0613" price as their canonical key.
type PriceTable struct {
	config *ProviderConfig
	models map[string]ModelPricing
}

// NewPriceTable creates a provider from a pricing config.
func NewPriceTable(cfg *ProviderConfig) *PriceTable {
	m := make(map[string]ModelPricing, len(cfg.Models))
	for _, model := range cfg.Models {
		m[strings.ToLower(model.Model)] = model
	}
	return &PriceTable{config: cfg, models: m}
}

// NewPriceTableFromFile creates a provider from a YAML pricing file.
func NewPriceTableFromFile(path string) (*PriceTable, error) {
	cfg, err := LoadPricing(path)
	if err != nil {
		return nil, err
	}
	return NewPriceTable(cfg), nil
}

func (p *PriceTable) Name() string { return strings.ToLower(p.config.Provider) }

func (p *PriceTable) Models() []ModelPricing {
	return p.config.Models
}

func (p *PriceTable) PricePerToken(model string, tokenType TokenType) (float64, error) {
	pricing, ok := p.lookup(model)
	if !ok {
		return 0, fmt.Errorf("%s: unknown model %q", p.Name(), model)
	}

	switch tokenType {
	case TokenInput:
		return pricing.InputPerToken, nil
	case TokenOutput:
		return pricing.OutputPrice(), nil
	default:
		return 0, fmt.Errorf("%s: unknown token type %d", p.Name(), tokenType)
	}
}

func (p *PriceTable) SupportsModel(model string) bool {
	_, ok := p.lookup(model)
	return ok
}

func (p *PriceTable) lookup(model string) (ModelPricing, bool) {
	if pricing, ok := p.models[strings.ToLower(model)]; ok {
		return pricing, true
	}
	pricing, ok := p.models[NormalizeModel(model)]
	return pricing, ok
}

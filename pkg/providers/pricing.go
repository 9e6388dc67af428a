package providers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPricing reads a YAML pricing file and returns the provider configuration.
func LoadPricing(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}

	cfg, err := LoadPricingFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadPricingFromBytes parses and validates YAML pricing data.
func LoadPricingFromBytes(data []byte) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pricing data: %w", err)
	}

	if cfg.Provider == "" {
		return nil, fmt.Errorf("missing provider name")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("no models defined")
	}
	for _, m := range cfg.Models {
		if m.Model == "" {
			return nil, fmt.Errorf("model entry without name")
		}
		if m.InputPerToken < 0 || m.OutputPerToken < 0 {
			return nil, fmt.Errorf("model %q: negative price", m.Model)
		}
	}

	return &cfg, nil
}

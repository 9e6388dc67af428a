package providers

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed pricing/*.yaml
var builtinPricing embed.FS

// DefaultRegistry returns a registry populated with the built-in price tables.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	entries, err := fs.Glob(builtinPricing, "pricing/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list built-in pricing: %w", err)
	}
	for _, name := range entries {
		data, err := builtinPricing.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read built-in pricing %s: %w", name, err)
		}
		cfg, err := LoadPricingFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("built-in pricing %s: %w", name, err)
		}
		if err := r.Register(NewPriceTable(cfg)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDir overlays every *.yaml price table found in dir onto the registry.
// A table for an already registered provider replaces it. A missing dir is not an error.
func LoadDir(r *Registry, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return 0, fmt.Errorf("list pricing dir %s: %w", dir, err)
	}
	for _, path := range paths {
		p, err := NewPriceTableFromFile(path)
		if err != nil {
			return 0, err
		}
		r.Set(p)
	}
	return len(paths), nil
}

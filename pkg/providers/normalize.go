package providers

import "strings"

// modelAliases maps a substring of a reported model name to its canonical price key.
// Order matters: "gpt-4o" must be tested before "gpt-4".
var modelAliases = []struct {
	contains  string
	canonical string
}{
	{"gpt-4o", "gpt-4o"},
	{"gpt-4", "gpt-4"},
	{"gpt-3.5", "gpt-3.5-turbo"},
	{"opus", "claude-3-opus"},
	{"sonnet", "claude-3-sonnet"},
	{"haiku", "claude-3-haiku"},
}

// NormalizeModel returns the canonical price-table key for a provider-reported model name.
// Names matching no alias are returned lower-cased.
func NormalizeModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, alias := range modelAliases {
		if strings.Contains(m, alias.contains) {
			return alias.canonical
		}
	}
	return m
}

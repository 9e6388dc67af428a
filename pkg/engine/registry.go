package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
)

// RuleRegistry holds rules in registration order together with their enabled state.
// It is safe for concurrent use.
type RuleRegistry struct {
	mu    sync.RWMutex
	rules []rules.Rule
	index map[string]int
}

// NewRuleRegistry creates a registry seeded with rs.
func NewRuleRegistry(rs ...rules.Rule) (*RuleRegistry, error) {
	r := &RuleRegistry{index: make(map[string]int, len(rs))}
	for _, rule := range rs {
		if err := r.Add(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends a rule. Rule ids must be unique.
func (r *RuleRegistry) Add(rule rules.Rule) error {
	if rule.ID == "" {
		return errors.New("rule id is required")
	}
	if rule.Condition == nil || rule.Action == nil {
		return fmt.Errorf("rule %q: condition and action are required", rule.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[rule.ID]; exists {
		return fmt.Errorf("rule %q already registered", rule.ID)
	}
	r.index[rule.ID] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// SetEnabled toggles a rule. It returns false when the id is unknown.
func (r *RuleRegistry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.rules[i].Enabled = enabled
	return true
}

// All returns a snapshot of every rule in registration order.
func (r *RuleRegistry) All() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]rules.Rule(nil), r.rules...)
}

// Enabled returns a snapshot of the enabled rules in registration order.
func (r *RuleRegistry) Enabled() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rules.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out
}

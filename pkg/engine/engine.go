// Package engine evaluates suggestion rules against usage records and assembles
// the resulting suggestions.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
)

// RuleExecutionError reports a rule that failed or panicked on one record.
// The engine logs it and carries on with the remaining rules.
type RuleExecutionError struct {
	RuleID  string
	UsageID string
	Err     error
}

func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s on usage %s: %v", e.RuleID, e.UsageID, e.Err)
}

func (e *RuleExecutionError) Unwrap() error { return e.Err }

// Observer is notified of every rule evaluation.
type Observer interface {
	RuleEvaluated(ruleID string, triggered bool, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the suggestion id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithObserver registers an evaluation observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine turns usage records into suggestions using the rules of its registry.
type Engine struct {
	registry *RuleRegistry
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	observer Observer
}

// New creates an engine over registry.
func New(registry *RuleRegistry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefault creates an engine with the built-in rules.
func NewDefault(a rules.Assumptions, logger *slog.Logger, opts ...Option) *Engine {
	// Built-in ids are unique, so seeding cannot fail.
	registry, _ := NewRuleRegistry(rules.Builtin(a)...)
	return New(registry, logger, opts...)
}

// ProcessUsage evaluates every enabled rule against record in registration order.
// Each triggered rule yields one active suggestion owned by orgID, or by the
// record's org when orgID is empty. Failing rules are logged and skipped.
func (e *Engine) ProcessUsage(record model.UsageRecord, orgID string) []model.Suggestion {
	if orgID == "" {
		orgID = record.OrgID
	}

	var out []model.Suggestion
	for _, rule := range e.registry.Enabled() {
		p, triggered, err := evaluate(rule, record)
		if e.observer != nil {
			e.observer.RuleEvaluated(rule.ID, triggered, err)
		}
		if err != nil {
			e.logger.Error("rule evaluation failed",
				"rule_id", rule.ID,
				"usage_id", record.ID,
				"error", err,
			)
			continue
		}
		if !triggered {
			continue
		}
		out = append(out, e.assemble(rule, record, orgID, p))
	}
	return out
}

// BatchProcess runs ProcessUsage over records, each under its own org, and
// concatenates the results in record order.
func (e *Engine) BatchProcess(records []model.UsageRecord) []model.Suggestion {
	var out []model.Suggestion
	for _, record := range records {
		out = append(out, e.ProcessUsage(record, record.OrgID)...)
	}
	return out
}

// Rules returns a snapshot of all registered rules.
func (e *Engine) Rules() []rules.Rule {
	return e.registry.All()
}

// SetRuleStatus enables or disables a rule. It returns false for unknown ids.
func (e *Engine) SetRuleStatus(ruleID string, enabled bool) bool {
	ok := e.registry.SetEnabled(ruleID, enabled)
	if ok {
		e.logger.Info("rule status changed", "rule_id", ruleID, "enabled", enabled)
	}
	return ok
}

// AddRule appends a custom rule after the existing ones.
func (e *Engine) AddRule(rule rules.Rule) error {
	return e.registry.Add(rule)
}

func (e *Engine) assemble(rule rules.Rule, record model.UsageRecord, orgID string, p rules.Proposal) model.Suggestion {
	s := model.Suggestion{
		ID:              e.newID(),
		OrgID:           orgID,
		RuleID:          rule.ID,
		UsageID:         record.ID,
		Type:            rule.Type,
		Title:           p.Title,
		Description:     p.Description,
		Impact:          p.Impact,
		ImpactType:      p.ImpactType,
		QualityDeltaPct: p.QualityDeltaPct,
		CreatedAt:       e.now(),
		Status:          model.StatusActive,
	}
	if s.ImpactType == "" {
		s.ImpactType = model.ImpactMonthly
	}
	if p.Detail != nil {
		d := p.Detail.Generic()
		s.Details = &d
	}
	return s
}

// evaluate runs one rule, converting a panic into a RuleExecutionError.
func evaluate(rule rules.Rule, record model.UsageRecord) (p rules.Proposal, triggered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, triggered = rules.Proposal{}, false
			err = &RuleExecutionError{RuleID: rule.ID, UsageID: record.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if !rule.Condition(record) {
		return rules.Proposal{}, false, nil
	}
	p, err = rule.Action(record)
	if err != nil {
		return rules.Proposal{}, false, &RuleExecutionError{RuleID: rule.ID, UsageID: record.ID, Err: err}
	}
	return p, true, nil
}

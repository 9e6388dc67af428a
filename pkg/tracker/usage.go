package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yapay-ai/llm-cost-advisor/pkg/abtest"
	"github.com/yapay-ai/llm-cost-advisor/pkg/engine"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
	"github.com/yapay-ai/llm-cost-advisor/pkg/storage"
)

// IngestResult is the outcome of one accepted usage event.
type IngestResult struct {
	Record      model.UsageRecord  `json:"record"`
	Suggestions []model.Suggestion `json:"suggestions"`
}

// BatchResult is the outcome of a batch. Rejected events do not fail the batch.
type BatchResult struct {
	Records     []model.UsageRecord `json:"records"`
	Suggestions []model.Suggestion  `json:"suggestions"`
	Rejected    []Rejected          `json:"rejected,omitempty"`
}

// Option configures a UsageTracker.
type Option func(*UsageTracker)

// WithEstimator enables A/B tests.
func WithEstimator(e *abtest.Estimator) Option {
	return func(t *UsageTracker) { t.estimator = e }
}

// WithObserver registers a pipeline observer.
func WithObserver(o Observer) Option {
	return func(t *UsageTracker) {
		t.observer = o
		if t.alerts != nil {
			t.alerts.observer = o
		}
	}
}

// UsageTracker is the main entry point for recording usage and managing suggestions:
// normalize, store, evaluate rules, store suggestions, alert.
type UsageTracker struct {
	normalizer *Normalizer
	engine     *engine.Engine
	storage    storage.Storage
	alerts     *AlertDispatcher
	estimator  *abtest.Estimator
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// NewUsageTracker creates a usage tracker with the given dependencies. dispatcher may be nil.
func NewUsageTracker(normalizer *Normalizer, eng *engine.Engine, store storage.Storage, dispatcher *AlertDispatcher, logger *slog.Logger, opts ...Option) *UsageTracker {
	t := &UsageTracker{
		normalizer: normalizer,
		engine:     eng,
		storage:    store,
		alerts:     dispatcher,
		observer:   nopObserver{},
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ingest normalizes and records one usage event and stores the suggestions it triggers.
// Invalid events return a *ValidationError.
func (t *UsageTracker) Ingest(ctx context.Context, event model.UsageEvent) (*IngestResult, error) {
	record, err := t.normalizer.Normalize(event)
	if err != nil {
		t.observer.UsageRejected(1)
		return nil, err
	}

	suggestions, err := t.record(ctx, record)
	if err != nil {
		return nil, err
	}
	t.alerts.Dispatch(ctx, suggestions)

	return &IngestResult{Record: record, Suggestions: suggestions}, nil
}

// IngestBatch records every valid event. Invalid events are reported in Rejected.
// On a storage error the result still lists the records and suggestions saved
// before the failure, and alerts are sent for those suggestions.
func (t *UsageTracker) IngestBatch(ctx context.Context, events []model.UsageEvent) (*BatchResult, error) {
	records, rejected := t.normalizer.NormalizeBatch(events)
	if len(rejected) > 0 {
		t.observer.UsageRejected(len(rejected))
	}

	out := &BatchResult{Records: make([]model.UsageRecord, 0, len(records)), Rejected: rejected}
	var err error
	for _, record := range records {
		if err = t.storeUsage(ctx, record); err != nil {
			break
		}
		out.Records = append(out.Records, record)

		var suggestions []model.Suggestion
		suggestions, err = t.suggest(ctx, record)
		out.Suggestions = append(out.Suggestions, suggestions...)
		if err != nil {
			break
		}
	}
	t.alerts.Dispatch(ctx, out.Suggestions)

	return out, err
}

// GenerateSample records the reference sample usage for orgID and returns the
// suggestions it produces.
func (t *UsageTracker) GenerateSample(ctx context.Context, orgID string) ([]model.Suggestion, error) {
	var out []model.Suggestion
	for _, record := range engine.SampleUsage(orgID) {
		suggestions, err := t.record(ctx, record)
		if err != nil {
			return nil, err
		}
		out = append(out, suggestions...)
	}
	return out, nil
}

func (t *UsageTracker) record(ctx context.Context, record model.UsageRecord) ([]model.Suggestion, error) {
	if err := t.storeUsage(ctx, record); err != nil {
		return nil, err
	}
	return t.suggest(ctx, record)
}

func (t *UsageTracker) storeUsage(ctx context.Context, record model.UsageRecord) error {
	if err := t.storage.RecordUsage(ctx, &record); err != nil {
		return fmt.Errorf("store usage: %w", err)
	}
	t.observer.UsageRecorded(record)

	t.logger.Info("usage recorded",
		"org_id", record.OrgID,
		"provider", record.Provider,
		"model", record.Model,
		"prompt_tokens", record.PromptTokens,
		"completion_tokens", record.CompletionTokens,
		"cost", record.Cost,
		"task_intent", record.TaskIntent,
	)
	return nil
}

// suggest evaluates the rules against record and stores the suggestions.
// On error it returns the suggestions stored before the failure.
func (t *UsageTracker) suggest(ctx context.Context, record model.UsageRecord) ([]model.Suggestion, error) {
	suggestions := t.engine.ProcessUsage(record, record.OrgID)
	for i := range suggestions {
		if err := t.storage.SaveSuggestion(ctx, &suggestions[i]); err != nil {
			return suggestions[:i], fmt.Errorf("store suggestion: %w", err)
		}
		t.observer.SuggestionCreated(suggestions[i])
	}
	return suggestions, nil
}

// Query returns individual usage records for the given filter.
func (t *UsageTracker) Query(ctx context.Context, filter model.UsageFilter) ([]model.UsageRecord, error) {
	return t.storage.QueryUsage(ctx, filter)
}

// Suggestions lists stored suggestions, newest first.
func (t *UsageTracker) Suggestions(ctx context.Context, filter model.SuggestionFilter) ([]model.Suggestion, error) {
	return t.storage.ListSuggestions(ctx, filter)
}

// Suggestion returns one stored suggestion.
func (t *UsageTracker) Suggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return t.storage.GetSuggestion(ctx, id)
}

// Implement marks an active suggestion as implemented.
func (t *UsageTracker) Implement(ctx context.Context, id string) (*model.Suggestion, error) {
	return t.transition(ctx, id, (*model.Suggestion).MarkImplemented)
}

// Dismiss marks an active suggestion as dismissed.
func (t *UsageTracker) Dismiss(ctx context.Context, id string) (*model.Suggestion, error) {
	return t.transition(ctx, id, (*model.Suggestion).Dismiss)
}

func (t *UsageTracker) transition(ctx context.Context, id string, apply func(*model.Suggestion, time.Time) error) (*model.Suggestion, error) {
	s, err := t.storage.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(s, t.now()); err != nil {
		return nil, err
	}
	if err := t.storage.UpdateSuggestionStatus(ctx, s); err != nil {
		return nil, err
	}
	t.observer.SuggestionTransitioned(*s)
	t.logger.Info("suggestion status changed", "suggestion_id", s.ID, "status", s.Status)
	return s, nil
}

// Rules returns the engine's rules.
func (t *UsageTracker) Rules() []rules.Rule {
	return t.engine.Rules()
}

// SetRuleStatus toggles a rule and persists the new state. It returns false for unknown ids.
func (t *UsageTracker) SetRuleStatus(ctx context.Context, ruleID string, enabled bool) (bool, error) {
	if !t.engine.SetRuleStatus(ruleID, enabled) {
		return false, nil
	}
	err := t.storage.SetRuleSetting(ctx, model.RuleSetting{RuleID: ruleID, Enabled: enabled, UpdatedAt: t.now()})
	if err != nil {
		return true, fmt.Errorf("persist rule setting: %w", err)
	}
	return true, nil
}

// RestoreRuleSettings disables the configured rules, then applies persisted settings on top.
func (t *UsageTracker) RestoreRuleSettings(ctx context.Context, disabled []string) error {
	for _, id := range disabled {
		if !t.engine.SetRuleStatus(id, false) {
			t.logger.Warn("unknown rule in configuration", "rule_id", id)
		}
	}

	settings, err := t.storage.ListRuleSettings(ctx)
	if err != nil {
		return fmt.Errorf("load rule settings: %w", err)
	}
	for _, s := range settings {
		if !t.engine.SetRuleStatus(s.RuleID, s.Enabled) {
			t.logger.Warn("stored setting for unknown rule", "rule_id", s.RuleID)
		}
	}
	return nil
}

// RunABTest runs and stores an A/B test.
func (t *UsageTracker) RunABTest(ctx context.Context, params abtest.Params) (*abtest.Result, error) {
	if t.estimator == nil {
		return nil, fmt.Errorf("ab tests are not configured")
	}
	res, err := t.estimator.RunTest(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := t.storage.SaveABTest(ctx, &res.ABTest); err != nil {
		return nil, fmt.Errorf("store ab test: %w", err)
	}
	t.observer.ABTestCompleted(res.ABTest)
	return res, nil
}

// ABTests lists the stored A/B tests of an organization.
func (t *UsageTracker) ABTests(ctx context.Context, orgID string) ([]model.ABTest, error) {
	return t.storage.ListABTests(ctx, orgID)
}

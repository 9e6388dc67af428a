package storage

import (
	"context"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// Storage defines the persistence layer for usage records, suggestions, A/B tests and rule state.
type Storage interface {
	// RecordUsage persists a single normalized usage record.
	RecordUsage(ctx context.Context, record *model.UsageRecord) error

	// QueryUsage retrieves usage records matching the given filter, newest first.
	QueryUsage(ctx context.Context, filter model.UsageFilter) ([]model.UsageRecord, error)

	// SaveSuggestion inserts a new suggestion.
	SaveSuggestion(ctx context.Context, s *model.Suggestion) error

	// GetSuggestion returns a suggestion by id, or model.ErrSuggestionNotFound.
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)

	// ListSuggestions returns suggestions matching the filter, newest first.
	ListSuggestions(ctx context.Context, filter model.SuggestionFilter) ([]model.Suggestion, error)

	// UpdateSuggestionStatus persists a status transition made on s. The write only
	// applies while the stored row is still active; otherwise model.ErrInvalidTransition.
	UpdateSuggestionStatus(ctx context.Context, s *model.Suggestion) error

	// SaveABTest persists an A/B test result.
	SaveABTest(ctx context.Context, test *model.ABTest) error

	// ListABTests returns the A/B tests of an organization, newest first.
	ListABTests(ctx context.Context, orgID string) ([]model.ABTest, error)

	// SetRuleSetting creates or updates the persisted enabled state of a rule.
	SetRuleSetting(ctx context.Context, setting model.RuleSetting) error

	// ListRuleSettings returns all persisted rule states.
	ListRuleSettings(ctx context.Context) ([]model.RuleSetting, error)

	// Close releases resources.
	Close() error
}

package model

import "time"

// TaskIntent is the inferred purpose category of a prompt.
type TaskIntent string

const (
	IntentSQL         TaskIntent = "sql"
	IntentTranslate   TaskIntent = "translate"
	IntentSummarize   TaskIntent = "summarize"
	IntentCode        TaskIntent = "code"
	IntentGeneralChat TaskIntent = "general_chat"
)

// Intents lists every task intent in classifier priority order.
var Intents = []TaskIntent{IntentSQL, IntentTranslate, IntentSummarize, IntentCode, IntentGeneralChat}

// Valid reports whether i is one of the known intents.
func (i TaskIntent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// UsageEvent is a raw usage observation handed over by an ingestion component.
// PromptTokens and TotalTokens are required to be non-zero.
type UsageEvent struct {
	OrgID            string     `json:"org_id" validate:"required"`
	UserID           string     `json:"user_id,omitempty"`
	Provider         string     `json:"provider" validate:"required"`
	Model            string     `json:"model" validate:"required"`
	PromptText       string     `json:"prompt_text,omitempty"`
	PromptTokens     int64      `json:"prompt_tokens" validate:"required,gt=0"`
	CompletionTokens int64      `json:"completion_tokens" validate:"gte=0"`
	TotalTokens      int64      `json:"total_tokens" validate:"required,gt=0"`
	Cost             *float64   `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Timestamp        time.Time  `json:"timestamp,omitempty"`
	AvgLatencyMs     *float64   `json:"avg_latency_ms,omitempty"`
	Temperature      *float64   `json:"temperature,omitempty"`
	TopP             *float64   `json:"top_p,omitempty"`
	EndpointTag      string     `json:"endpoint_tag,omitempty"`
	TaskIntent       TaskIntent `json:"task_intent,omitempty" validate:"omitempty,oneof=sql translate summarize code general_chat"`
}

// UsageRecord is the canonical, normalized form of a usage event.
// Records are treated as values and never modified after normalization.
type UsageRecord struct {
	ID               string     `json:"id" db:"id"`
	OrgID            string     `json:"org_id" db:"org_id"`
	Timestamp        time.Time  `json:"timestamp" db:"timestamp"`
	Provider         string     `json:"provider" db:"provider"`
	Model            string     `json:"model" db:"model"`
	PromptTokens     int64      `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int64      `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int64      `json:"total_tokens" db:"total_tokens"`
	Cost             float64    `json:"cost" db:"cost"`
	AvgLatencyMs     *float64   `json:"avg_latency_ms,omitempty" db:"avg_latency_ms"`
	Temperature      *float64   `json:"temperature,omitempty" db:"temperature"`
	TopP             *float64   `json:"top_p,omitempty" db:"top_p"`
	EndpointTag      string     `json:"endpoint_tag,omitempty" db:"endpoint_tag"`
	TaskIntent       TaskIntent `json:"task_intent" db:"task_intent"`
}

// ABTest is the stored outcome of a model-pair quality comparison.
type ABTest struct {
	ID                string    `json:"id" db:"id"`
	OrgID             string    `json:"org_id" db:"org_id"`
	CurrentModel      string    `json:"current_model" db:"current_model"`
	CandidateModel    string    `json:"candidate_model" db:"candidate_model"`
	EndpointTag       string    `json:"endpoint_tag,omitempty" db:"endpoint_tag"`
	SampleSize        int       `json:"sample_size" db:"sample_size"`
	QualityDeltaPct   float64   `json:"quality_delta_pct" db:"quality_delta_pct"`
	AvgLatencyDeltaMs float64   `json:"avg_latency_delta_ms" db:"avg_latency_delta_ms"`
	Success           bool      `json:"success" db:"success"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// UsageFilter controls which usage records are returned by queries.
type UsageFilter struct {
	OrgID      string     `json:"org_id,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
	TaskIntent TaskIntent `json:"task_intent,omitempty"`
	StartTime  time.Time  `json:"start_time,omitempty"`
	EndTime    time.Time  `json:"end_time,omitempty"`
}

// SuggestionFilter controls which suggestions are returned by queries.
type SuggestionFilter struct {
	OrgID  string           `json:"org_id,omitempty"`
	Status SuggestionStatus `json:"status,omitempty"`
	Type   SuggestionType   `json:"type,omitempty"`
}

// RuleSetting is the persisted enabled state of a rule.
type RuleSetting struct {
	RuleID    string    `json:"rule_id" db:"rule_id"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

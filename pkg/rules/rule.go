// Package rules defines suggestion rules: pure condition/action pairs evaluated
// against one usage record at a time.
package rules

import (
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// Rule inspects a usage record and, when its condition holds, proposes a suggestion.
// Condition and Action must not have side effects and must give the same answer
// for the same record.
type Rule struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        model.SuggestionType `json:"type"`
	Enabled     bool                 `json:"enabled"`

	Condition func(model.UsageRecord) bool              `json:"-"`
	Action    func(model.UsageRecord) (Proposal, error) `json:"-"`
}

// Proposal is the rule-specific part of a suggestion. The engine adds identity,
// ownership, timestamps and status.
type Proposal struct {
	Title           string
	Description     string
	Impact          float64
	ImpactType      model.ImpactType
	QualityDeltaPct *float64
	Detail          Detail
}

// Detail is the typed supporting data of a proposal.
type Detail interface {
	// Generic converts the detail into key/value rows for rendering and storage.
	Generic() model.Details
}

// Assumptions are the fixed inputs the built-in rules extrapolate from.
// Impact figures project a single observed call over these assumptions.
type Assumptions struct {
	// ModelSwitchMonthlyCalls is how many calls like the observed one are expected per month.
	ModelSwitchMonthlyCalls int64 `mapstructure:"model_switch_monthly_calls"`

	// ContextTrimMonthlyCalls is the same projection for the context trimming rule.
	ContextTrimMonthlyCalls int64 `mapstructure:"context_trim_monthly_calls"`

	// IdleHourlyRate is the USD per hour of an idle GPU instance.
	IdleHourlyRate float64 `mapstructure:"idle_hourly_rate"`

	// IdleHours is the reported idle time of a development instance.
	IdleHours int64 `mapstructure:"idle_hours"`
}

// DefaultAssumptions returns the assumptions used when none are configured.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		ModelSwitchMonthlyCalls: 30,
		ContextTrimMonthlyCalls: 20,
		IdleHourlyRate:          0.09,
		IdleHours:               26,
	}
}

func qualityDelta(v float64) *float64 { return &v }

package alerts

import (
	"context"
	"fmt"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// AlertLevel indicates how much money a suggestion is projected to save.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"  // Monthly impact at or above the minimum threshold
	AlertCritical AlertLevel = "critical" // Monthly impact at or above the critical threshold
)

// Alert announces a newly generated, high-impact suggestion.
type Alert struct {
	Level           AlertLevel           `json:"level"`
	OrgID           string               `json:"org_id"`
	SuggestionID    string               `json:"suggestion_id"`
	RuleID          string               `json:"rule_id"`
	Type            model.SuggestionType `json:"type"`
	Title           string               `json:"title"`
	Impact          float64              `json:"impact"`
	ImpactType      model.ImpactType     `json:"impact_type"`
	MonthlyImpact   float64              `json:"monthly_impact"`
	QualityDeltaPct *float64             `json:"quality_delta_pct,omitempty"`
	Message         string               `json:"message"`
}

// Thresholds decide whether a suggestion is worth an alert.
type Thresholds struct {
	MinMonthlyImpact      float64
	CriticalMonthlyImpact float64
}

// Level returns the alert level for a monthly impact, or false when it is below the minimum.
func (t Thresholds) Level(monthly float64) (AlertLevel, bool) {
	switch {
	case t.CriticalMonthlyImpact > 0 && monthly >= t.CriticalMonthlyImpact:
		return AlertCritical, true
	case monthly >= t.MinMonthlyImpact:
		return AlertWarning, true
	default:
		return "", false
	}
}

// FromSuggestion builds the alert for s at the given level.
func FromSuggestion(s model.Suggestion, level AlertLevel) Alert {
	monthly := s.MonthlyImpact()
	return Alert{
		Level:           level,
		OrgID:           s.OrgID,
		SuggestionID:    s.ID,
		RuleID:          s.RuleID,
		Type:            s.Type,
		Title:           s.Title,
		Impact:          s.Impact,
		ImpactType:      s.ImpactType,
		MonthlyImpact:   monthly,
		QualityDeltaPct: s.QualityDeltaPct,
		Message:         fmt.Sprintf("%s: save about $%.2f per month", s.Title, monthly),
	}
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}

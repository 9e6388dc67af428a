package tracker

import (
	"context"
	"log/slog"

	"github.com/yapay-ai/llm-cost-advisor/pkg/alerts"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// AlertDispatcher notifies external systems about high-impact suggestions.
// Delivery failures are logged and never fail the caller.
type AlertDispatcher struct {
	thresholds alerts.Thresholds
	notifiers  []alerts.Notifier
	observer   Observer
	logger     *slog.Logger
}

// NewAlertDispatcher creates a dispatcher. With no notifiers it does nothing.
func NewAlertDispatcher(thresholds alerts.Thresholds, notifiers []alerts.Notifier, logger *slog.Logger) *AlertDispatcher {
	return &AlertDispatcher{
		thresholds: thresholds,
		notifiers:  notifiers,
		observer:   nopObserver{},
		logger:     logger,
	}
}

// Dispatch sends an alert for every suggestion at or above the minimum monthly
// impact and returns how many alerts were built.
func (d *AlertDispatcher) Dispatch(ctx context.Context, suggestions []model.Suggestion) int {
	if d == nil || len(d.notifiers) == 0 {
		return 0
	}

	sent := 0
	for _, s := range suggestions {
		level, ok := d.thresholds.Level(s.MonthlyImpact())
		if !ok {
			continue
		}
		alert := alerts.FromSuggestion(s, level)
		sent++

		d.logger.Warn("high impact suggestion",
			"org_id", s.OrgID,
			"suggestion_id", s.ID,
			"rule_id", s.RuleID,
			"level", level,
			"monthly_impact", alert.MonthlyImpact,
		)

		for _, n := range d.notifiers {
			err := n.Send(ctx, alert)
			d.observer.AlertSent(n.Name(), err)
			if err != nil {
				d.logger.Error("send alert failed",
					"notifier", n.Name(),
					"suggestion_id", s.ID,
					"error", err,
				)
			}
		}
	}
	return sent
}

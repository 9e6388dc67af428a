package tracker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/llm-cost-advisor/pkg/alerts"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tracker"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Name() string { return "failing" }

func (f *failingNotifier) Send(context.Context, alerts.Alert) error {
	f.calls++
	return errors.New("endpoint down")
}

func TestAlertDispatcher_Dispatch(t *testing.T) {
	rec := &recordingNotifier{}
	fail := &failingNotifier{}
	d := tracker.NewAlertDispatcher(alerts.Thresholds{MinMonthlyImpact: 50, CriticalMonthlyImpact: 500},
		[]alerts.Notifier{fail, rec}, discardLogger())

	suggestions := []model.Suggestion{
		{ID: "small", Impact: 10, ImpactType: model.ImpactMonthly},
		{ID: "daily", Impact: 2.16, ImpactType: model.ImpactDaily},
		{ID: "big", Impact: 900, ImpactType: model.ImpactMonthly},
	}

	assert.Equal(t, 2, d.Dispatch(context.Background(), suggestions))
	assert.Equal(t, 2, fail.calls, "a failing notifier does not stop the others")

	sent := rec.Alerts()
	if assert.Len(t, sent, 2) {
		assert.Equal(t, "daily", sent[0].SuggestionID)
		assert.Equal(t, alerts.AlertWarning, sent[0].Level)
		assert.InDelta(t, 64.8, sent[0].MonthlyImpact, 1e-9)
		assert.Equal(t, "big", sent[1].SuggestionID)
		assert.Equal(t, alerts.AlertCritical, sent[1].Level)
	}
}

func TestAlertDispatcher_NoNotifiers(t *testing.T) {
	d := tracker.NewAlertDispatcher(alerts.Thresholds{}, nil, discardLogger())
	assert.Zero(t, d.Dispatch(context.Background(), []model.Suggestion{{Impact: 1000, ImpactType: model.ImpactMonthly}}))

	var nilDispatcher *tracker.AlertDispatcher
	assert.Zero(t, nilDispatcher.Dispatch(context.Background(), nil))
}

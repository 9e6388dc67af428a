package tracker

import "github.com/yapay-ai/llm-cost-advisor/pkg/model"

// Observer receives pipeline events, typically to update metrics.
type Observer interface {
	UsageRecorded(record model.UsageRecord)
	UsageRejected(count int)
	SuggestionCreated(s model.Suggestion)
	SuggestionTransitioned(s model.Suggestion)
	ABTestCompleted(t model.ABTest)
	AlertSent(notifier string, err error)
}

type nopObserver struct{}

func (nopObserver) UsageRecorded(model.UsageRecord) {}
func (nopObserver) UsageRejected(int) {}
func (nopObserver) SuggestionCreated(model.Suggestion) {}
func (nopObserver) SuggestionTransitioned(model.Suggestion) {}
func (nopObserver) ABTestCompleted(model.ABTest) {}
func (nopObserver) AlertSent(string, error) {}

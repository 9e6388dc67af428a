// Package metrics exposes the advisor pipeline as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

const namespace = "lca"

// Metrics holds every collector on its own registry. It implements
// tracker.Observer and engine.Observer.
type Metrics struct {
	registry *prometheus.Registry

	usageRecords     *prometheus.CounterVec
	usageCost        *prometheus.CounterVec
	usageTokens      *prometheus.CounterVec
	usageRejected    prometheus.Counter
	suggestions      *prometheus.CounterVec
	suggestionImpact *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	ruleEvaluations  *prometheus.CounterVec
	abTests          *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	proxyRequests    *prometheus.CounterVec
	proxyLatency     *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		usageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_records_total",
			Help:      "Usage records stored.",
		}, []string{"provider", "model", "intent"}),
		usageCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_cost_usd_total",
			Help:      "Cost of stored usage records in USD.",
		}, []string{"provider", "model"}),
		usageTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_tokens_total",
			Help:      "Tokens of stored usage records.",
		}, []string{"provider", "type"}), // type: prompt|completion
		usageRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_rejected_total",
			Help:      "Usage events dropped by validation.",
		}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_created_total",
			Help:      "Suggestions generated.",
		}, []string{"rule_id", "type"}),
		suggestionImpact: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_monthly_impact_usd_total",
			Help:      "Projected monthly savings of generated suggestions in USD.",
		}, []string{"rule_id"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_transitions_total",
			Help:      "Suggestion status changes.",
		}, []string{"status"}),
		ruleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluations by outcome.",
		}, []string{"rule_id", "outcome"}), // outcome: triggered|skipped|error
		abTests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abtests_total",
			Help:      "A/B tests run.",
		}, []string{"success"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Alert deliveries by notifier and status.",
		}, []string{"notifier", "status"}), // status: success|error
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Requests forwarded by the ingestion proxy.",
		}, []string{"provider", "code"}),
		proxyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_upstream_latency_seconds",
			Help:      "Upstream latency seen by the ingestion proxy.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.usageRecords,
		m.usageCost,
		m.usageTokens,
		m.usageRejected,
		m.suggestions,
		m.suggestionImpact,
		m.transitions,
		m.ruleEvaluations,
		m.abTests,
		m.alerts,
		m.proxyRequests,
		m.proxyLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) UsageRecorded(r model.UsageRecord) {
	m.usageRecords.WithLabelValues(r.Provider, r.Model, string(r.TaskIntent)).Inc()
	m.usageCost.WithLabelValues(r.Provider, r.Model).Add(r.Cost)
	m.usageTokens.WithLabelValues(r.Provider, "prompt").Add(float64(r.PromptTokens))
	m.usageTokens.WithLabelValues(r.Provider, "completion").Add(float64(r.CompletionTokens))
}

func (m *Metrics) UsageRejected(count int) {
	m.usageRejected.Add(float64(count))
}

func (m *Metrics) SuggestionCreated(s model.Suggestion) {
	m.suggestions.WithLabelValues(s.RuleID, string(s.Type)).Inc()
	if impact := s.MonthlyImpact(); impact > 0 {
		m.suggestionImpact.WithLabelValues(s.RuleID).Add(impact)
	}
}

func (m *Metrics) SuggestionTransitioned(s model.Suggestion) {
	m.transitions.WithLabelValues(string(s.Status)).Inc()
}

func (m *Metrics) ABTestCompleted(t model.ABTest) {
	success := "false"
	if t.Success {
		success = "true"
	}
	m.abTests.WithLabelValues(success).Inc()
}

func (m *Metrics) AlertSent(notifier string, err error) {
	m.alerts.WithLabelValues(notifier, status(err)).Inc()
}

func (m *Metrics) RuleEvaluated(ruleID string, triggered bool, err error) {
	outcome := "skipped"
	switch {
	case err != nil:
		outcome = "error"
	case triggered:
		outcome = "triggered"
	}
	m.ruleEvaluations.WithLabelValues(ruleID, outcome).Inc()
}

// ProxyRequest records one proxied call.
func (m *Metrics) ProxyRequest(provider string, code int, latency time.Duration) {
	m.proxyRequests.WithLabelValues(provider, strconv.Itoa(code)).Inc()
	m.proxyLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

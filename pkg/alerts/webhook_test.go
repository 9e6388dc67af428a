package alerts_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/llm-cost-advisor/pkg/alerts"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

func testAlert(level alerts.AlertLevel) alerts.Alert {
	quality := 5.0
	return alerts.FromSuggestion(model.Suggestion{
		ID:              "sg-1",
		OrgID:           "org-1",
		RuleID:          "R5",
		Type:            model.SuggestionModelSwitch,
		Title:           "Switch from GPT-4 to GPT-3.5 Turbo",
		Impact:          819,
		ImpactType:      model.ImpactMonthly,
		QualityDeltaPct: &quality,
	}, level)
}

func TestWebhookNotifier_Name(t *testing.T) {
	n := alerts.NewWebhookNotifier("https://example.com/webhook", "")
	assert.Equal(t, "webhook", n.Name())
}

func TestWebhookNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "LLM-Cost-Advisor/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "suggestion_alert", r.Header.Get("X-LCA-Event"))
		assert.Equal(t, "sg-1", r.Header.Get("X-LCA-Suggestion"))
		assert.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	require.NoError(t, n.Send(context.Background(), testAlert(alerts.AlertCritical)))

	assert.Equal(t, "suggestion_alert", received["event"])
	assert.NotEmpty(t, received["timestamp"])
	alert, ok := received["alert"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "critical", alert["level"])
	assert.Equal(t, "model_switch", alert["type"])
	assert.Equal(t, 819.0, alert["monthly_impact"])
}

func TestWebhookNotifier_Send_WithHMAC(t *testing.T) {
	var signature string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get(alerts.SignatureHeader)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "test-secret")
	require.NoError(t, n.Send(context.Background(), testAlert(alerts.AlertWarning)))
	assert.Contains(t, signature, "sha256=")
	assert.True(t, alerts.Verify(body, "test-secret", signature))
	assert.False(t, alerts.Verify(body, "other-secret", signature))
}

func TestWebhookNotifier_Send_NoHMAC(t *testing.T) {
	var hasSignature bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get(alerts.SignatureHeader) != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	require.NoError(t, n.Send(context.Background(), testAlert(alerts.AlertWarning)))
	assert.False(t, hasSignature)
}

func TestWebhookNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), testAlert(alerts.AlertWarning))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestThresholds_Level(t *testing.T) {
	th := alerts.Thresholds{MinMonthlyImpact: 50, CriticalMonthlyImpact: 500}

	tests := []struct {
		name    string
		monthly float64
		level   alerts.AlertLevel
		ok      bool
	}{
		{"below minimum", 49.99, "", false},
		{"at minimum", 50, alerts.AlertWarning, true},
		{"between", 200, alerts.AlertWarning, true},
		{"at critical", 500, alerts.AlertCritical, true},
		{"above critical", 10_000, alerts.AlertCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := th.Level(tt.monthly)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestFromSuggestion_ConvertsToMonthly(t *testing.T) {
	a := alerts.FromSuggestion(model.Suggestion{
		Title:      "Idle GPU instance detected",
		Impact:     2.16,
		ImpactType: model.ImpactDaily,
	}, alerts.AlertWarning)

	assert.InDelta(t, 64.8, a.MonthlyImpact, 1e-9)
	assert.Contains(t, a.Message, "$64.80 per month")
}

package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/llm-cost-advisor/pkg/alerts"
)

func TestSlackNotifier_Name(t *testing.T) {
	n := alerts.NewSlackNotifier("https://hooks.slack.com/test", "#test")
	assert.Equal(t, "slack", n.Name())
}

func TestSlackNotifier_Send(t *testing.T) {
	var received struct {
		Channel     string `json:"channel"`
		Attachments []struct {
			Color  string `json:"color"`
			Title  string `json:"title"`
			Text   string `json:"text"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"attachments"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#llm-costs")
	require.NoError(t, n.Send(context.Background(), testAlert(alerts.AlertWarning)))

	assert.Equal(t, "#llm-costs", received.Channel)
	require.Len(t, received.Attachments, 1)
	att := received.Attachments[0]
	assert.Equal(t, "#ff9900", att.Color)
	assert.Contains(t, att.Title, "Switch from GPT-4 to GPT-3.5 Turbo")
	require.Len(t, att.Fields, 5)
	assert.Equal(t, "$819.00", att.Fields[3].Value)
	assert.Equal(t, "5.0%", att.Fields[4].Value)
}

func TestSlackNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#test")
	err := n.Send(context.Background(), testAlert(alerts.AlertWarning))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSlackNotifier_LevelColors(t *testing.T) {
	tests := []struct {
		level alerts.AlertLevel
		color string
	}{
		{alerts.AlertWarning, "#ff9900"},
		{alerts.AlertCritical, "#ff0000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var color string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var p struct {
					Attachments []struct {
						Color string `json:"color"`
					} `json:"attachments"`
				}
				_ = json.NewDecoder(r.Body).Decode(&p)
				if len(p.Attachments) > 0 {
					color = p.Attachments[0].Color
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			n := alerts.NewSlackNotifier(server.URL, "#test")
			require.NoError(t, n.Send(context.Background(), testAlert(tt.level)))
			assert.Equal(t, tt.color, color)
		})
	}
}

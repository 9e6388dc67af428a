package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/llm-cost-advisor/internal/server"
	"github.com/yapay-ai/llm-cost-advisor/pkg/abtest"
	"github.com/yapay-ai/llm-cost-advisor/pkg/engine"
	"github.com/yapay-ai/llm-cost-advisor/pkg/intent"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
	"github.com/yapay-ai/llm-cost-advisor/pkg/storage"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tracker"
)

func setupServer(t *testing.T, opts ...server.Option) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry, err := providers.DefaultRegistry()
	require.NoError(t, err)
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	measurer := abtest.MeasurerFunc(func(context.Context, abtest.Params, abtest.Comparison) (abtest.Measurement, error) {
		return abtest.Measurement{QualityDeltaPct: -2.5, AvgLatencyDeltaMs: -180}, nil
	})
	ut := tracker.NewUsageTracker(
		tracker.NewNormalizer(tracker.NewCostCalculator(registry), logger),
		engine.NewDefault(rules.DefaultAssumptions(), logger),
		store,
		nil,
		logger,
		tracker.WithEstimator(abtest.NewEstimator(measurer, logger)),
	)

	srv := httptest.NewServer(server.NewServer(ut, logger, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func gpt4Event(org string) model.UsageEvent {
	return model.UsageEvent{
		OrgID:            org,
		Provider:         "openai",
		Model:            "gpt-4",
		PromptTokens:     2500,
		CompletionTokens: 500,
		TotalTokens:      3000,
	}
}

func TestHealthz(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestIngest_Single(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/usage", gpt4Event("org-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res := decode[tracker.IngestResult](t, resp)
	assert.Equal(t, "org-1", res.Record.OrgID)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, rules.ModelSwitchID, res.Suggestions[0].RuleID)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/usage?org_id=org-1&provider=openai", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.UsageRecord](t, resp), 1)
}

func TestIngest_ValidationError(t *testing.T) {
	srv := setupServer(t)

	event := gpt4Event("org-1")
	event.PromptTokens = 0
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/usage", event)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[struct {
		Error  string               `json:"error"`
		Fields []tracker.FieldError `json:"fields"`
	}](t, resp)
	assert.Contains(t, body.Error, "prompt_tokens")
	assert.Equal(t, []tracker.FieldError{{Field: "prompt_tokens", Rule: "required"}}, body.Fields)
}

func TestIngest_Batch(t *testing.T) {
	srv := setupServer(t)

	bad := gpt4Event("")
	resp := do(t, http.MethodPost, srv.URL+"/api/v1/usage", []model.UsageEvent{gpt4Event("org-1"), bad})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[struct {
		Records  []model.UsageRecord `json:"records"`
		Rejected []struct {
			Index  int                  `json:"index"`
			Fields []tracker.FieldError `json:"fields"`
		} `json:"rejected"`
	}](t, resp)
	assert.Len(t, body.Records, 1)
	require.Len(t, body.Rejected, 1)
	assert.Equal(t, 1, body.Rejected[0].Index)
	assert.Equal(t, "org_id", body.Rejected[0].Fields[0].Field)
}

func TestIngest_InvalidJSON(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/usage", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestions_Lifecycle(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/suggestions/sample", map[string]string{"org_id": "org-demo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sample := decode[[]model.Suggestion](t, resp)
	require.Len(t, sample, 3)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/suggestions?org_id=org-demo&status=active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Suggestion](t, resp), 3)

	id := sample[0].ID
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/suggestions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Suggestion](t, resp)
	assert.Equal(t, id, got.ID)
	require.NotNil(t, got.Details)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/suggestions/"+id+"/implement", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusImplemented, decode[model.Suggestion](t, resp).Status)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/suggestions/"+id+"/dismiss", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/suggestions?org_id=org-demo&status=active", nil)
	assert.Len(t, decode[[]model.Suggestion](t, resp), 2)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/suggestions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/suggestions/missing/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/suggestions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestions_SampleDefaultOrg(t *testing.T) {
	srv := setupServer(t, server.WithDefaultOrg("fallback-org"))

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/suggestions/sample", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	for _, s := range decode[[]model.Suggestion](t, resp) {
		assert.Equal(t, "fallback-org", s.OrgID)
	}
}

func TestRules(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]rules.Rule](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, rules.ModelSwitchID, list[0].ID)
	assert.NotEmpty(t, list[0].Name)
	assert.True(t, list[0].Enabled)

	resp = do(t, http.MethodPut, srv.URL+"/api/v1/rules/"+rules.ModelSwitchID, map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[rules.Rule](t, resp).Enabled)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/usage", gpt4Event("org-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, decode[tracker.IngestResult](t, resp).Suggestions)

	resp = do(t, http.MethodPut, srv.URL+"/api/v1/rules/R99", map[string]bool{"enabled": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/v1/rules/"+rules.ModelSwitchID, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestABTests(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/abtests", abtest.Params{
		OrgID: "org-1", CurrentModel: "gpt-4", CandidateModel: "gpt-3.5-turbo", SampleSize: 25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[abtest.Result](t, resp)
	assert.True(t, res.Success)
	assert.True(t, res.Matched)
	assert.Equal(t, 25, res.SampleCount)
	assert.InDelta(t, -2.5, res.QualityDeltaPct, 1e-9)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/abtests?org_id=org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]model.ABTest](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/abtests", map[string]string{"org_id": "org-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/abtests?org_id=nobody", nil)
	assert.Equal(t, "[]\n", readBody(t, resp))
}

func TestIntent(t *testing.T) {
	srv := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/intent", map[string]string{"prompt": "Translate this paragraph into German"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"intent": "translate"}, decode[map[string]string](t, resp))

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/intent", map[string]any{
		"prompts": []intent.Prompt{{ID: "a", Text: "hi"}, {ID: "b", Text: "hi", Tag: "sql"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []intent.Classification{
		{ID: "a", Intent: model.IntentGeneralChat},
		{ID: "b", Intent: model.IntentSQL},
	}, decode[[]intent.Classification](t, resp))
}

func TestOptionalMounts(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "metrics") })
	proxy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "proxied "+r.URL.Path) })

	srv := setupServer(t, server.WithMetrics(metrics), server.WithProxy(proxy))
	assert.Equal(t, "metrics", readBody(t, do(t, http.MethodGet, srv.URL+"/metrics", nil)))
	assert.Equal(t, "proxied /proxy/openai/v1/chat/completions",
		readBody(t, do(t, http.MethodPost, srv.URL+"/proxy/openai/v1/chat/completions", nil)))

	bare := setupServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, bare.URL+"/metrics", nil).StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

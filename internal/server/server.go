package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yapay-ai/llm-cost-advisor/pkg/abtest"
	"github.com/yapay-ai/llm-cost-advisor/pkg/intent"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tracker"
)

const (
	requestTimeout = 10 * time.Second
	maxAPIBody     = 5 << 20
)

// Option configures a Server.
type Option func(*Server)

// WithProxy mounts the ingestion proxy under /proxy/.
func WithProxy(h http.Handler) Option {
	return func(s *Server) { s.proxy = h }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithDefaultOrg sets the org used when a request names none.
func WithDefaultOrg(orgID string) Option {
	return func(s *Server) { s.defaultOrg = orgID }
}

// Server exposes the advisor over HTTP: usage ingestion, suggestions, rules,
// A/B tests, intent detection, metrics and the ingestion proxy.
type Server struct {
	tracker    *tracker.UsageTracker
	mux        *http.ServeMux
	proxy      http.Handler
	metrics    http.Handler
	defaultOrg string
	logger     *slog.Logger
}

// NewServer creates an API server.
func NewServer(t *tracker.UsageTracker, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		tracker:    t,
		mux:        http.NewServeMux(),
		defaultOrg: "default",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/usage", s.handleIngest)
	s.mux.HandleFunc("GET /api/v1/usage", s.handleUsage)

	s.mux.HandleFunc("GET /api/v1/suggestions", s.handleListSuggestions)
	s.mux.HandleFunc("POST /api/v1/suggestions/sample", s.handleSample)
	s.mux.HandleFunc("GET /api/v1/suggestions/{id}", s.handleGetSuggestion)
	s.mux.HandleFunc("POST /api/v1/suggestions/{id}/implement", s.handleImplement)
	s.mux.HandleFunc("POST /api/v1/suggestions/{id}/dismiss", s.handleDismiss)

	s.mux.HandleFunc("GET /api/v1/rules", s.handleRules)
	s.mux.HandleFunc("PUT /api/v1/rules/{id}", s.handleSetRule)

	s.mux.HandleFunc("POST /api/v1/abtests", s.handleRunABTest)
	s.mux.HandleFunc("GET /api/v1/abtests", s.handleListABTests)

	s.mux.HandleFunc("POST /api/v1/intent", s.handleIntent)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	if s.proxy != nil {
		s.mux.Handle("/proxy/", s.proxy)
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAPIBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []model.UsageEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		s.ingestBatch(ctx, w, events)
		return
	}

	var event model.UsageEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := s.tracker.Ingest(ctx, event)
	if err != nil {
		s.fail(w, "ingest usage", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type rejectedEvent struct {
	Index  int                  `json:"index"`
	Error  string               `json:"error"`
	Fields []tracker.FieldError `json:"fields,omitempty"`
}

func (s *Server) ingestBatch(ctx context.Context, w http.ResponseWriter, events []model.UsageEvent) {
	res, err := s.tracker.IngestBatch(ctx, events)
	if err != nil {
		s.fail(w, "ingest usage batch", err)
		return
	}

	rejected := make([]rejectedEvent, 0, len(res.Rejected))
	for _, rej := range res.Rejected {
		re := rejectedEvent{Index: rej.Index, Error: rej.Err.Error()}
		var verr *tracker.ValidationError
		if errors.As(rej.Err, &verr) {
			re.Fields = verr.Fields
		}
		rejected = append(rejected, re)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"records":     nonNil(res.Records),
		"suggestions": nonNil(res.Suggestions),
		"rejected":    rejected,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.UsageFilter{
		OrgID:      q.Get("org_id"),
		Provider:   q.Get("provider"),
		Model:      q.Get("model"),
		TaskIntent: model.TaskIntent(q.Get("intent")),
	}

	records, err := s.tracker.Query(ctx, filter)
	if err != nil {
		s.fail(w, "query usage", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.SuggestionFilter{
		OrgID:  q.Get("org_id"),
		Status: model.SuggestionStatus(q.Get("status")),
		Type:   model.SuggestionType(q.Get("type")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+string(filter.Status))
		return
	}

	list, err := s.tracker.Suggestions(ctx, filter)
	if err != nil {
		s.fail(w, "list suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sug, err := s.tracker.Suggestion(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, "get suggestion", err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleImplement(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.tracker.Implement)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.tracker.Dismiss)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (*model.Suggestion, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sug, err := apply(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, "update suggestion", err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req struct {
		OrgID string `json:"org_id"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = s.defaultOrg
	}

	list, err := s.tracker.GenerateSample(ctx, req.OrgID)
	if err != nil {
		s.fail(w, "generate sample suggestions", err)
		return
	}
	writeJSON(w, http.StatusCreated, nonNil(list))
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Rules())
}

func (s *Server) handleSetRule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	id := r.PathValue("id")
	ok, err := s.tracker.SetRuleStatus(ctx, id, *req.Enabled)
	if err != nil {
		s.fail(w, "set rule status", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "rule not found: "+id)
		return
	}

	for _, rule := range s.tracker.Rules() {
		if rule.ID == id {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
}

func (s *Server) handleRunABTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var params abtest.Params
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if params.OrgID == "" {
		params.OrgID = s.defaultOrg
	}

	res, err := s.tracker.RunABTest(ctx, params)
	if err != nil {
		s.fail(w, "run ab test", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListABTests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		orgID = s.defaultOrg
	}

	tests, err := s.tracker.ABTests(ctx, orgID)
	if err != nil {
		s.fail(w, "list ab tests", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tests))
}

type intentRequest struct {
	Prompt      string          `json:"prompt"`
	EndpointTag string          `json:"endpoint_tag,omitempty"`
	Fallback    bool            `json:"fallback,omitempty"`
	Prompts     []intent.Prompt `json:"prompts,omitempty"`
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.Prompts) > 0 {
		writeJSON(w, http.StatusOK, intent.ClassifyBatch(req.Prompts))
		return
	}

	classify := intent.Classify
	if req.Fallback {
		classify = intent.ClassifyWithFallback
	}
	writeJSON(w, http.StatusOK, map[string]model.TaskIntent{"intent": classify(req.Prompt, req.EndpointTag)})
}

// fail maps domain errors to status codes and logs the rest.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, abtest.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrSuggestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAPIBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tokenizer"
	"github.com/yapay-ai/llm-cost-advisor/pkg/tracker"
)

// Control headers read by the proxy and stripped before forwarding.
const (
	HeaderTarget      = "X-LCA-Target"
	HeaderProvider    = "X-LCA-Provider"
	HeaderOrg         = "X-LCA-Org"
	HeaderEndpointTag = "X-LCA-Endpoint-Tag"
)

// Prefix is the path under which the proxy is mounted.
const Prefix = "/proxy/"

// Upstreams maps provider names to their default API base URL.
var Upstreams = map[string]string{
	"openai":    "https://api.openai.com",
	"anthropic": "https://api.anthropic.com",
}

// Ingester records usage events observed by the proxy.
type Ingester interface {
	Ingest(ctx context.Context, event model.UsageEvent) (*tracker.IngestResult, error)
}

// Recorder receives per-request proxy metrics.
type Recorder interface {
	ProxyRequest(provider string, code int, latency time.Duration)
}

// Options configures a Handler.
type Options struct {
	DefaultOrgID   string
	AddCostHeaders bool
	MaxBodySize    int64
	Counter        *tokenizer.Counter
	Recorder       Recorder

	// Registry resolves the provider from the model name when neither the
	// headers, the path nor the target URL identify it.
	Registry *providers.Registry
}

// Handler is a reverse proxy that turns LLM API traffic into usage events.
// Requests to /proxy/{provider}/{path} are forwarded to the provider's API,
// or to the URL in X-LCA-Target.
type Handler struct {
	ingester Ingester
	opts     Options
	logger   *slog.Logger
}

// NewHandler creates a new proxy handler.
func NewHandler(ingester Ingester, opts Options, logger *slog.Logger) *Handler {
	if opts.Counter == nil {
		opts.Counter = tokenizer.NewCounter()
	}
	return &Handler{ingester: ingester, opts: opts, logger: logger}
}

type exchange struct {
	provider    string
	orgID       string
	endpointTag string
	request     *RequestInfo
	start       time.Time
}

// ServeHTTP handles proxied requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathProvider, rest := splitPath(r.URL.Path)

	target, err := h.resolveTarget(r.Header.Get(HeaderTarget), pathProvider, rest, r.URL.RawQuery)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.opts.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize)
	}
	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(reqBody))

	ex := &exchange{
		provider:    strings.ToLower(r.Header.Get(HeaderProvider)),
		orgID:       r.Header.Get(HeaderOrg),
		endpointTag: r.Header.Get(HeaderEndpointTag),
		start:       time.Now(),
	}
	if ex.provider == "" {
		ex.provider = pathProvider
	}
	if ex.provider == "" {
		ex.provider = DetectProvider(target.Host, target.Path)
	}
	if ex.orgID == "" {
		ex.orgID = h.opts.DefaultOrgID
	}
	if info, err := ExtractRequestInfo(reqBody); err == nil {
		ex.request = info
		if ex.provider == "" {
			ex.provider = h.providerForModel(info.Model)
		}
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			u := *target
			pr.Out.URL = &u
			pr.Out.Host = target.Host
			pr.Out.Header.Del(HeaderTarget)
			pr.Out.Header.Del(HeaderProvider)
			pr.Out.Header.Del(HeaderOrg)
			pr.Out.Header.Del(HeaderEndpointTag)
		},
		ModifyResponse: func(resp *http.Response) error {
			return h.captureResponse(resp, ex)
		},
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			h.logger.Error("proxy error", "error", err, "target", target.String())
			h.record(ex, http.StatusBadGateway)
			http.Error(w, "proxy error: "+err.Error(), http.StatusBadGateway)
		},
	}

	proxy.ServeHTTP(w, r)
}

func (h *Handler) resolveTarget(header, provider, rest, query string) (*url.URL, error) {
	raw := header
	if raw == "" {
		base, ok := Upstreams[provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q and no %s header", provider, HeaderTarget)
		}
		raw = base + rest
		if query != "" {
			raw += "?" + query
		}
	}

	target, err := url.Parse(raw)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q", raw)
	}
	return target, nil
}

// captureResponse reads the upstream response, ingests its usage and injects cost headers.
func (h *Handler) captureResponse(resp *http.Response, ex *exchange) error {
	latency := time.Since(ex.start)
	h.record(ex, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	event, ok := h.buildEvent(body, ex, latency)
	if !ok {
		return nil
	}

	res, err := h.ingester.Ingest(context.WithoutCancel(resp.Request.Context()), event)
	if err != nil {
		h.logger.Error("failed to record usage", "provider", ex.provider, "model", event.Model, "error", err)
		return nil
	}

	if h.opts.AddCostHeaders {
		resp.Header.Set("X-LCA-Cost", strconv.FormatFloat(res.Record.Cost, 'f', 6, 64))
		resp.Header.Set("X-LCA-Prompt-Tokens", strconv.FormatInt(res.Record.PromptTokens, 10))
		resp.Header.Set("X-LCA-Completion-Tokens", strconv.FormatInt(res.Record.CompletionTokens, 10))
		resp.Header.Set("X-LCA-Intent", string(res.Record.TaskIntent))
		resp.Header.Set("X-LCA-Suggestions", strconv.Itoa(len(res.Suggestions)))
		resp.Header.Set("X-LCA-Latency", latency.String())
	}
	return nil
}

func (h *Handler) buildEvent(body []byte, ex *exchange, latency time.Duration) (model.UsageEvent, bool) {
	usage, err := ExtractResponseUsage(body)
	if err != nil {
		h.logger.Warn("failed to extract usage from response", "provider", ex.provider, "error", err)
		return model.UsageEvent{}, false
	}

	req := ex.request
	if req == nil {
		req = &RequestInfo{}
	}

	modelName := usage.Model
	if modelName == "" {
		modelName = req.Model
	}

	provider := ex.provider
	if provider == "" {
		provider = h.providerForModel(modelName)
	}

	prompt, completion := usage.PromptTokens, usage.CompletionTokens
	if !usage.HasUsage() {
		prompt, completion = h.countTokens(provider, modelName, req, usage.Completion)
	}

	ms := float64(latency.Microseconds()) / 1000
	return model.UsageEvent{
		OrgID:            ex.orgID,
		Provider:         provider,
		Model:            modelName,
		PromptText:       req.PromptText(),
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		AvgLatencyMs:     &ms,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		EndpointTag:      ex.endpointTag,
	}, true
}

// providerForModel returns the provider whose price table lists modelName, or "".
func (h *Handler) providerForModel(modelName string) string {
	if h.opts.Registry == nil || modelName == "" {
		return ""
	}
	p, err := h.opts.Registry.FindProviderForModel(modelName)
	if err != nil {
		h.logger.Debug("no provider for model", "model", modelName)
		return ""
	}
	return p.Name()
}

func (h *Handler) countTokens(provider, modelName string, req *RequestInfo, completion string) (int64, int64) {
	prompt, err := h.opts.Counter.CountChat(req.Messages, provider, modelName)
	if err != nil {
		h.logger.Warn("count prompt tokens", "model", modelName, "error", err)
		prompt = tokenizer.Estimate(req.PromptText())
	}
	out, err := h.opts.Counter.Count(completion, provider, modelName)
	if err != nil {
		h.logger.Warn("count completion tokens", "model", modelName, "error", err)
		out = tokenizer.Estimate(completion)
	}
	return prompt, out
}

func (h *Handler) record(ex *exchange, code int) {
	if h.opts.Recorder != nil {
		h.opts.Recorder.ProxyRequest(ex.provider, code, time.Since(ex.start))
	}
}

// splitPath turns /proxy/openai/v1/chat/completions into ("openai", "/v1/chat/completions").
func splitPath(path string) (string, string) {
	path = strings.TrimPrefix(path, Prefix)
	provider, rest, _ := strings.Cut(path, "/")
	return strings.ToLower(provider), "/" + rest
}

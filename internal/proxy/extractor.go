package proxy

import (
	"encoding/json"
	"strings"

	"github.com/yapay-ai/llm-cost-advisor/pkg/tokenizer"
)

// RequestInfo holds what the advisor needs from an LLM API request.
type RequestInfo struct {
	Model       string
	Messages    []tokenizer.Message
	Temperature *float64
	TopP        *float64
}

// PromptText joins the message contents, system prompt included.
func (r *RequestInfo) PromptText() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if s := strings.TrimSpace(m.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// ResponseUsage holds token usage and generated text from an LLM API response.
type ResponseUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	Model            string
	Completion       string
}

// HasUsage reports whether the response carried a usage block.
func (u *ResponseUsage) HasUsage() bool {
	return u.PromptTokens > 0 || u.CompletionTokens > 0
}

// DetectProvider determines the provider from the upstream host or request path.
func DetectProvider(host, path string) string {
	host = strings.ToLower(host)
	path = strings.ToLower(path)

	switch {
	case strings.Contains(host, "openai.com") || strings.HasSuffix(path, "/chat/completions"):
		return "openai"
	case strings.Contains(host, "anthropic.com") || strings.HasSuffix(path, "/messages"):
		return "anthropic"
	default:
		return ""
	}
}

// ExtractRequestInfo parses an OpenAI or Anthropic style request body.
// Both shapes are tried for unknown providers.
func ExtractRequestInfo(body []byte) (*RequestInfo, error) {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	info := &RequestInfo{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if s := req.System.text(); s != "" {
		info.Messages = append(info.Messages, tokenizer.Message{Role: "system", Content: s})
	}
	for _, m := range req.Messages {
		info.Messages = append(info.Messages, tokenizer.Message{Role: m.Role, Content: m.Content.text()})
	}
	return info, nil
}

// ExtractResponseUsage parses token usage and generated text from a response body.
func ExtractResponseUsage(body []byte) (*ResponseUsage, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	usage := &ResponseUsage{
		PromptTokens:     resp.Usage.PromptTokens + resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.CompletionTokens + resp.Usage.OutputTokens,
		Model:            resp.Model,
	}

	var completion strings.Builder
	for _, c := range resp.Choices {
		completion.WriteString(c.Message.Content.text())
	}
	completion.WriteString(resp.Content.text())
	usage.Completion = completion.String()

	return usage, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	System      content       `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content content `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Content content `json:"content"`
	Usage   struct {
		// OpenAI
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		// Anthropic
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// content is either a plain string or a list of typed blocks.
type content []contentBlock

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = content{{Type: "text", Text: s}}
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = blocks
	return nil
}

func (c content) text() string {
	var b strings.Builder
	for _, block := range c {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

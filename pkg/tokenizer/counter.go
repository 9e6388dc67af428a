// Package tokenizer counts prompt and completion tokens for usage events whose
// upstream response carries no usage block.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
)

// messageOverhead is the per-message token cost of role and formatting.
const messageOverhead = 4

// replyPriming is added once per chat for the assistant reply header.
const replyPriming = 2

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// encodingForModel maps canonical OpenAI model keys to tiktoken encodings.
// Models not listed use cl100k_base.
var encodingForModel = map[string]tokenizer.Encoding{
	"gpt-4o":        tokenizer.O200kBase,
	"gpt-4":         tokenizer.Cl100kBase,
	"gpt-3.5-turbo": tokenizer.Cl100kBase,
}

// Counter counts tokens with tiktoken for OpenAI models and estimates them for
// everything else. Loaded codecs are cached; a Counter is safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Count returns the token count of text for the given provider and model.
func (c *Counter) Count(text, provider, model string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	if !strings.EqualFold(provider, "openai") {
		return Estimate(text), nil
	}

	codec, err := c.codec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return int64(len(ids)), nil
}

// CountChat counts the tokens of a chat prompt including per-message overhead.
func (c *Counter) CountChat(messages []Message, provider, model string) (int64, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	var total int64
	for _, msg := range messages {
		n, err := c.Count(msg.Content, provider, model)
		if err != nil {
			return 0, err
		}
		total += messageOverhead + n
	}
	return total + replyPriming, nil
}

func (c *Counter) codec(model string) (tokenizer.Codec, error) {
	enc, ok := encodingForModel[providers.NormalizeModel(model)]
	if !ok {
		enc = tokenizer.Cl100kBase
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if codec, ok := c.codecs[enc]; ok {
		return codec, nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", enc, err)
	}
	c.codecs[enc] = codec
	return codec, nil
}

// Estimate approximates a token count at four characters per token, rounded up.
func Estimate(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return int64((len(text) + 3) / 4)
}

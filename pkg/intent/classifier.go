// Package intent infers the task category of a prompt from an endpoint tag and the prompt text.
package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// longPromptChars is the length above which a "make it shorter" request counts as summarization.
const longPromptChars = 2000

var (
	sqlStatement = regexp.MustCompile(`(?i)SELECT|INSERT|UPDATE|DELETE|CREATE TABLE|ALTER TABLE|JOIN|FROM|WHERE`)
	sqlMention   = regexp.MustCompile(`(?i)\b(sql|database|query)\b`)
	translation  = regexp.MustCompile(`(?i)translate|translation|convert to|in (spanish|french|german|chinese|russian)`)
	summary      = regexp.MustCompile(`(?i)summarize|summary|tldr|key points|briefly describe`)
	condense     = regexp.MustCompile(`(?i)make (this|it) shorter|condense`)
	codeSyntax   = regexp.MustCompile(`(?i)function|class|def |async|await|return|import|const|let|var|public class|func `)
	codeLanguage = regexp.MustCompile(`(?i)\b(javascript|typescript|python|java|c\+\+|ruby|go|rust|php)\b`)
)

// tagIntents are matched against the endpoint tag in order.
var tagIntents = []model.TaskIntent{
	model.IntentSQL,
	model.IntentTranslate,
	model.IntentSummarize,
	model.IntentCode,
}

// Classify maps a prompt and optional endpoint tag to a task intent.
//
// Priority order:
//  1. Endpoint tag containing sql, translate, summarize or code (case-insensitive)
//  2. SQL: an SQL keyword and a sql/database/query mention are both required
//  3. Translation phrases
//  4. Summary keywords, or a long prompt asking to be condensed
//  5. Code syntax tokens or programming language names
//  6. general_chat
func Classify(promptText, endpointTag string) model.TaskIntent {
	if endpointTag != "" {
		tag := strings.ToLower(endpointTag)
		for _, intent := range tagIntents {
			if strings.Contains(tag, string(intent)) {
				return intent
			}
		}
	}

	switch {
	case sqlStatement.MatchString(promptText) && sqlMention.MatchString(promptText):
		return model.IntentSQL
	case translation.MatchString(promptText):
		return model.IntentTranslate
	case summary.MatchString(promptText),
		utf8.RuneCountInString(promptText) > longPromptChars && condense.MatchString(promptText):
		return model.IntentSummarize
	case codeSyntax.MatchString(promptText), codeLanguage.MatchString(promptText):
		return model.IntentCode
	default:
		return model.IntentGeneralChat
	}
}

// Prompt is one entry of a batch classification request.
type Prompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Tag  string `json:"tag,omitempty"`
}

// Classification pairs a prompt id with its detected intent.
type Classification struct {
	ID     string           `json:"id"`
	Intent model.TaskIntent `json:"intent"`
}

// ClassifyBatch runs Classify over historical prompts, preserving input order.
func ClassifyBatch(prompts []Prompt) []Classification {
	out := make([]Classification, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, Classification{ID: p.ID, Intent: Classify(p.Text, p.Tag)})
	}
	return out
}

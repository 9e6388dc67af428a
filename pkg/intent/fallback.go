package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// shortPromptChars is the length below which the regex result is always trusted.
const shortPromptChars = 100

// KeywordSet lists the keywords that vote for one intent.
type KeywordSet struct {
	Intent model.TaskIntent
	Words  []string
}

// DefaultKeywords is the keyword table used by ClassifyWithFallback.
var DefaultKeywords = []KeywordSet{
	{Intent: model.IntentSQL, Words: []string{"query", "database", "table", "row", "column", "select", "join"}},
	{Intent: model.IntentTranslate, Words: []string{"translate", "language", "english", "spanish", "french"}},
	{Intent: model.IntentSummarize, Words: []string{"summarize", "summary", "shorten", "brief", "main points"}},
	{Intent: model.IntentCode, Words: []string{"function", "code", "algorithm", "implement", "bug", "error"}},
}

// Scorer picks an intent by counting which keywords occur in a prompt.
// It is safe for concurrent use.
type Scorer struct {
	matcher *ahocorasick.Matcher
	owners  []model.TaskIntent
	order   []model.TaskIntent
}

// NewScorer compiles a keyword table. Each distinct keyword scores at most once per prompt.
func NewScorer(sets []KeywordSet) *Scorer {
	var patterns []string
	var owners []model.TaskIntent
	order := make([]model.TaskIntent, 0, len(sets))
	for _, set := range sets {
		order = append(order, set.Intent)
		for _, w := range set.Words {
			patterns = append(patterns, strings.ToLower(w))
			owners = append(owners, set.Intent)
		}
	}
	return &Scorer{
		matcher: ahocorasick.NewStringMatcher(patterns),
		owners:  owners,
		order:   order,
	}
}

// Score returns the intent with the most keyword hits. general_chat starts with one
// vote so a single stray keyword does not override it, and ties go to general_chat.
func (s *Scorer) Score(promptText string) model.TaskIntent {
	counts := make(map[model.TaskIntent]int, len(s.order)+1)
	counts[model.IntentGeneralChat] = 1

	for _, idx := range s.matcher.MatchThreadSafe([]byte(strings.ToLower(promptText))) {
		counts[s.owners[idx]]++
	}

	best, bestCount := model.IntentGeneralChat, 1
	for _, intent := range s.order {
		if counts[intent] > bestCount {
			best, bestCount = intent, counts[intent]
		}
	}
	return best
}

var defaultScorer = NewScorer(DefaultKeywords)

// ClassifyWithFallback runs Classify and, when it yields general_chat for a prompt of at
// least 100 characters, re-classifies the prompt by keyword scoring.
func ClassifyWithFallback(promptText, endpointTag string) model.TaskIntent {
	return classifyWithScorer(defaultScorer, promptText, endpointTag)
}

func classifyWithScorer(s *Scorer, promptText, endpointTag string) model.TaskIntent {
	primary := Classify(promptText, endpointTag)
	if primary != model.IntentGeneralChat || utf8.RuneCountInString(promptText) < shortPromptChars {
		return primary
	}
	return s.Score(promptText)
}

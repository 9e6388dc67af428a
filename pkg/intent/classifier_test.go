package intent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/llm-cost-advisor/pkg/intent"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

func TestClassify_TagShortCircuit(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		tag      string
		expected model.TaskIntent
	}{
		{"sql tag beats chat", "Hello, how are you?", "sql-endpoint", model.IntentSQL},
		{"tag is case-insensitive", "Hello, how are you?", "Reporting-SQL", model.IntentSQL},
		{"translate tag beats code prompt", "Write a python function", "translate-api", model.IntentTranslate},
		{"summarize tag", "SELECT * FROM users in the database", "summarize", model.IntentSummarize},
		{"code tag", "Translate this to French", "code-review", model.IntentCode},
		{"sql wins over code in one tag", "hi", "sql-code", model.IntentSQL},
		{"unrelated tag falls through", "Hello, how are you?", "production", model.IntentGeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, intent.Classify(tt.prompt, tt.tag))
		})
	}
}

func TestClassify_Patterns(t *testing.T) {
	longCondense := strings.Repeat("lorem ipsum dolor sit amet ", 80) + "please condense"
	shortCondense := "please condense this"

	tests := []struct {
		name     string
		prompt   string
		expected model.TaskIntent
	}{
		{"sql needs keyword and mention", "Write a SQL query: SELECT name FROM users WHERE id = 1", model.IntentSQL},
		{"sql keyword alone is not sql", "Please select the best option from the list", model.IntentGeneralChat},
		{"translate verb", "Translate this paragraph into German", model.IntentTranslate},
		{"in language phrase", "How do you say hello in spanish?", model.IntentTranslate},
		{"summary keyword", "Give me a summary of this article", model.IntentSummarize},
		{"tldr", "tldr please", model.IntentSummarize},
		{"long prompt asking to condense", longCondense, model.IntentSummarize},
		{"short prompt asking to condense", shortCondense, model.IntentGeneralChat},
		{"code keyword", "Write a python function to reverse a string", model.IntentCode},
		{"code syntax", "fix this: const x = await fetch(url)", model.IntentCode},
		{"sql before translate", "Translate this SQL query: SELECT * FROM t", model.IntentSQL},
		{"summarize before code", "Summarize this python code", model.IntentSummarize},
		{"empty prompt", "", model.IntentGeneralChat},
		{"plain chat", "Hello, how are you?", model.IntentGeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, intent.Classify(tt.prompt, ""))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	prompt := "Write a SQL query to count orders FROM the database"
	first := intent.Classify(prompt, "")
	for range 10 {
		assert.Equal(t, first, intent.Classify(prompt, ""))
	}
}

func TestClassifyWithFallback(t *testing.T) {
	sqlish := "I keep a spreadsheet with one row per customer and a column for each month. " +
		"How should I organise the table so that totals are easy to read for my team?"
	oneKeyword := "I would like some ideas for a weekend trip with my family somewhere in the " +
		"english countryside, with good food and a quiet place to relax."

	tests := []struct {
		name     string
		prompt   string
		tag      string
		expected model.TaskIntent
	}{
		{"regex result kept", "Translate this paragraph into German", "", model.IntentTranslate},
		{"short prompt not rescored", "tell me about tables and rows", "", model.IntentGeneralChat},
		{"keywords pick sql", sqlish, "", model.IntentSQL},
		{"single keyword ties with chat bias", oneKeyword, "", model.IntentGeneralChat},
		{"tag still wins", sqlish, "code", model.IntentCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, intent.ClassifyWithFallback(tt.prompt, tt.tag))
		})
	}
}

func TestScorer_CustomKeywords(t *testing.T) {
	s := intent.NewScorer([]intent.KeywordSet{
		{Intent: model.IntentCode, Words: []string{"stack trace", "panic"}},
		{Intent: model.IntentSummarize, Words: []string{"digest"}},
	})

	assert.Equal(t, model.IntentCode, s.Score("got a PANIC with this Stack Trace"))
	assert.Equal(t, model.IntentGeneralChat, s.Score("weekly digest"))
	assert.Equal(t, model.IntentGeneralChat, s.Score("panic panic panic"), "repeated keyword counts once")
}

func TestClassifyBatch(t *testing.T) {
	out := intent.ClassifyBatch([]intent.Prompt{
		{ID: "a", Text: "Hello there"},
		{ID: "b", Text: "Hello there", Tag: "sql"},
		{ID: "c", Text: "Translate to French please"},
	})

	assert.Equal(t, []intent.Classification{
		{ID: "a", Intent: model.IntentGeneralChat},
		{ID: "b", Intent: model.IntentSQL},
		{ID: "c", Intent: model.IntentTranslate},
	}, out)
}

func BenchmarkClassify(b *testing.B) {
	prompt := "Write a SQL query that joins orders and customers FROM the sales database"
	for b.Loop() {
		_ = intent.Classify(prompt, "")
	}
}

func BenchmarkClassifyWithFallback(b *testing.B) {
	prompt := strings.Repeat("I keep a spreadsheet with one row per customer and a column per month. ", 4)
	for b.Loop() {
		_ = intent.ClassifyWithFallback(prompt, "")
	}
}

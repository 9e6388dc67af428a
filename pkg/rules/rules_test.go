package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
	"github.com/yapay-ai/llm-cost-advisor/pkg/rules"
)

func ptr[T any](v T) *T { return &v }

func fieldValue(fields []model.Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

func TestBuiltin_OrderAndMetadata(t *testing.T) {
	rs := rules.Builtin(rules.DefaultAssumptions())
	require.Len(t, rs, 3)

	assert.Equal(t, "R5", rs[0].ID)
	assert.Equal(t, model.SuggestionModelSwitch, rs[0].Type)
	assert.Equal(t, "R6", rs[1].ID)
	assert.Equal(t, model.SuggestionContextLength, rs[1].Type)
	assert.Equal(t, "R7", rs[2].ID)
	assert.Equal(t, model.SuggestionIdleResource, rs[2].Type)

	for _, r := range rs {
		assert.True(t, r.Enabled, r.ID)
		assert.NotEmpty(t, r.Name, r.ID)
		assert.NotEmpty(t, r.Description, r.ID)
		assert.NotNil(t, r.Condition, r.ID)
		assert.NotNil(t, r.Action, r.ID)
	}
}

func TestModelSwitch_Condition(t *testing.T) {
	rule := rules.ModelSwitch(rules.DefaultAssumptions())

	tests := []struct {
		name     string
		record   model.UsageRecord
		expected bool
	}{
		{"small gpt-4 chat", model.UsageRecord{Provider: "openai", Model: "gpt-4", PromptTokens: 1000, TaskIntent: model.IntentGeneralChat}, true},
		{"versioned model, mixed case provider", model.UsageRecord{Provider: "OpenAI", Model: "GPT-4-0613", PromptTokens: 3999, TaskIntent: model.IntentCode}, true},
		{"gpt-4o also matches", model.UsageRecord{Provider: "openai", Model: "gpt-4o", PromptTokens: 10, TaskIntent: model.IntentTranslate}, true},
		{"sql excluded", model.UsageRecord{Provider: "openai", Model: "gpt-4", PromptTokens: 1000, TaskIntent: model.IntentSQL}, false},
		{"large context", model.UsageRecord{Provider: "openai", Model: "gpt-4", PromptTokens: 4000, TaskIntent: model.IntentCode}, false},
		{"other model", model.UsageRecord{Provider: "openai", Model: "gpt-3.5-turbo", PromptTokens: 100}, false},
		{"other provider", model.UsageRecord{Provider: "azure", Model: "gpt-4", PromptTokens: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rule.Condition(tt.record))
		})
	}
}

func TestModelSwitch_Action(t *testing.T) {
	rule := rules.ModelSwitch(rules.DefaultAssumptions())
	record := model.UsageRecord{Provider: "openai", Model: "gpt-4-0613", PromptTokens: 1000, CompletionTokens: 200, Cost: 42}

	p, err := rule.Action(record)
	require.NoError(t, err)

	assert.Equal(t, "Switch from GPT-4 to GPT-3.5 Turbo", p.Title)
	// 42 * 0.65 * 30
	assert.InDelta(t, 819.0, p.Impact, 1e-9)
	assert.Equal(t, model.ImpactMonthly, p.ImpactType)
	require.NotNil(t, p.QualityDeltaPct)
	assert.Equal(t, 5.0, *p.QualityDeltaPct)

	detail, ok := p.Detail.(rules.ModelSwitchDetail)
	require.True(t, ok)
	assert.Equal(t, "gpt-4-0613", detail.FromModel)
	assert.Equal(t, "gpt-3.5-turbo", detail.ToModel)
	assert.InDelta(t, 14.7, detail.CostAfter, 1e-9)

	g := p.Detail.Generic()
	assert.Equal(t, "gpt-4-0613", fieldValue(g.Before, "model"))
	assert.Equal(t, "42.0000", fieldValue(g.Before, "costPerCall"))
	assert.Equal(t, "14.7000", fieldValue(g.After, "costPerCall"))
	assert.Equal(t, "1000 tokens", fieldValue(g.After, "contextLength"))
	require.NotNil(t, g.Snippet)
	assert.Equal(t, "javascript", g.Snippet.Language)
	assert.Contains(t, g.Snippet.Code, `model: "gpt-3.5-turbo"`)
	assert.Contains(t, g.Snippet.Code, "temperature: 0.7")
}

func TestModelSwitch_UsesObservedTemperature(t *testing.T) {
	rule := rules.ModelSwitch(rules.DefaultAssumptions())
	p, err := rule.Action(model.UsageRecord{Model: "gpt-4", Cost: 1, Temperature: ptr(0.2)})
	require.NoError(t, err)
	assert.Contains(t, p.Detail.Generic().Snippet.Code, "temperature: 0.2")
}

func TestModelSwitch_CustomMonthlyCalls(t *testing.T) {
	a := rules.DefaultAssumptions()
	a.ModelSwitchMonthlyCalls = 100
	p, err := rules.ModelSwitch(a).Action(model.UsageRecord{Model: "gpt-4", Cost: 0.12})
	require.NoError(t, err)
	assert.InDelta(t, 7.8, p.Impact, 1e-9)
}

func TestContextTrim(t *testing.T) {
	rule := rules.ContextTrim(rules.DefaultAssumptions())

	assert.True(t, rule.Condition(model.UsageRecord{Provider: "anthropic", Model: "claude-3-opus-20240229", PromptTokens: 8001}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "anthropic", Model: "claude-3-opus", PromptTokens: 8000}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "anthropic", Model: "claude-3-sonnet", PromptTokens: 20000}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "openai", Model: "opus", PromptTokens: 20000}))

	p, err := rule.Action(model.UsageRecord{Provider: "anthropic", Model: "claude-3-opus", PromptTokens: 10000, Cost: 0.35})
	require.NoError(t, err)

	// 0.35 * 0.3 * 20
	assert.InDelta(t, 2.1, p.Impact, 1e-9)
	assert.Equal(t, model.ImpactMonthly, p.ImpactType)
	assert.Equal(t, 2.0, *p.QualityDeltaPct)

	g := p.Detail.Generic()
	assert.Equal(t, "10000 tokens", fieldValue(g.Before, "averageContextLength"))
	assert.Equal(t, "7000 tokens (70%)", fieldValue(g.Before, "usableContext"))
	assert.Equal(t, "100,000 tokens", fieldValue(g.Before, "modelLimit"))
	assert.Equal(t, "3000 tokens", fieldValue(g.Before, "wastedTokens"))
	assert.Equal(t, "7000 tokens", fieldValue(g.After, "recommendedLength"))
	assert.Equal(t, "3000 tokens", fieldValue(g.After, "savingsPerCall"))
	assert.Equal(t, "Context window trimming", fieldValue(g.After, "implementation"))
	assert.Contains(t, g.Snippet.Code, "maxTokens = 7000")
}

func TestIdleResource(t *testing.T) {
	rule := rules.IdleResource(rules.DefaultAssumptions())

	assert.True(t, rule.Condition(model.UsageRecord{Provider: "meta", Model: "llama3-70b", EndpointTag: "development"}))
	assert.True(t, rule.Condition(model.UsageRecord{Provider: "Meta", Model: "Llama3-8B", EndpointTag: "team-development-2"}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "meta", Model: "llama3-70b", EndpointTag: "production"}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "meta", Model: "llama3-70b"}))
	assert.False(t, rule.Condition(model.UsageRecord{Provider: "meta", Model: "llama2", EndpointTag: "development"}))

	p, err := rule.Action(model.UsageRecord{Provider: "meta", Model: "llama3-70b", EndpointTag: "development"})
	require.NoError(t, err)

	assert.Equal(t, "Idle GPU instance detected", p.Title)
	assert.Equal(t, "Your development instance has been idle for 26 hours.", p.Description)
	assert.InDelta(t, 2.16, p.Impact, 1e-9)
	assert.Equal(t, model.ImpactDaily, p.ImpactType)
	assert.Equal(t, 0.0, *p.QualityDeltaPct)

	g := p.Detail.Generic()
	assert.Equal(t, "g4dn.xlarge", fieldValue(g.Before, "instanceType"))
	assert.Equal(t, "$0.09", fieldValue(g.Before, "hourlyRate"))
	assert.Equal(t, "26 hours", fieldValue(g.Before, "idleTime"))
	assert.Equal(t, "Shutdown instance", fieldValue(g.After, "action"))
	assert.Nil(t, g.Snippet)
	assert.Contains(t, g.Script, "aws ec2 stop-instances")
}

func TestRules_Deterministic(t *testing.T) {
	record := model.UsageRecord{Provider: "openai", Model: "gpt-4", PromptTokens: 2500, CompletionTokens: 500, Cost: 0.12}
	for _, rule := range rules.Builtin(rules.DefaultAssumptions()) {
		first, err := rule.Action(record)
		require.NoError(t, err)
		second, err := rule.Action(record)
		require.NoError(t, err)
		assert.Equal(t, first, second, rule.ID)
		assert.Equal(t, rule.Condition(record), rule.Condition(record), rule.ID)
	}
}

package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// Built-in rule ids.
const (
	ModelSwitchID  = "R5"
	ContextTrimID  = "R6"
	IdleResourceID = "R7"
)

const (
	cheapModel      = "gpt-3.5-turbo"
	defaultTemp     = 0.7
	opusLimitTokens = 100_000
)

var (
	modelSwitchCostFactor = decimal.RequireFromString("0.35")
	contextTrimCostFactor = decimal.RequireFromString("0.7")
)

// impactPlaces is the precision of projected savings.
const impactPlaces = 4

// Builtin returns the reference rules in registration order, all enabled.
func Builtin(a Assumptions) []Rule {
	return []Rule{ModelSwitch(a), ContextTrim(a), IdleResource(a)}
}

// ModelSwitch suggests GPT-3.5 Turbo for small, non-SQL GPT-4 calls.
func ModelSwitch(a Assumptions) Rule {
	return Rule{
		ID:          ModelSwitchID,
		Name:        "Use cheaper model for simple tasks",
		Description: "Switch from GPT-4 to GPT-3.5-Turbo for non-SQL tasks with small context",
		Type:        model.SuggestionModelSwitch,
		Enabled:     true,
		Condition: func(u model.UsageRecord) bool {
			return strings.EqualFold(u.Provider, "openai") &&
				strings.Contains(strings.ToLower(u.Model), "gpt-4") &&
				u.TaskIntent != model.IntentSQL &&
				u.PromptTokens < 4000
		},
		Action: func(u model.UsageRecord) (Proposal, error) {
			current := decimal.NewFromFloat(u.Cost)
			next := current.Mul(modelSwitchCostFactor)
			monthly := current.Sub(next).Mul(decimal.NewFromInt(a.ModelSwitchMonthlyCalls))

			temp := defaultTemp
			if u.Temperature != nil && *u.Temperature != 0 {
				temp = *u.Temperature
			}

			return Proposal{
				Title:           "Switch from GPT-4 to GPT-3.5 Turbo",
				Description:     "A/B test shows similar quality with 70% cost reduction for simple tasks.",
				Impact:          monthly.Round(impactPlaces).InexactFloat64(),
				ImpactType:      model.ImpactMonthly,
				QualityDeltaPct: qualityDelta(5),
				Detail: ModelSwitchDetail{
					FromModel:     u.Model,
					ToModel:       cheapModel,
					CostBefore:    u.Cost,
					CostAfter:     next.InexactFloat64(),
					ContextTokens: u.PromptTokens,
					Snippet: model.Snippet{
						Language: "javascript",
						Code:     modelSwitchSnippet(u.Model, temp),
					},
				},
			}, nil
		},
	}
}

// ContextTrim suggests trimming very large Claude Opus prompts by 30%.
func ContextTrim(a Assumptions) Rule {
	return Rule{
		ID:          ContextTrimID,
		Name:        "Optimize context length for Anthropic Opus",
		Description: "Trim context window or use embeddings for large contexts",
		Type:        model.SuggestionContextLength,
		Enabled:     true,
		Condition: func(u model.UsageRecord) bool {
			return strings.EqualFold(u.Provider, "anthropic") &&
				strings.Contains(strings.ToLower(u.Model), "opus") &&
				u.PromptTokens > 8000
		},
		Action: func(u model.UsageRecord) (Proposal, error) {
			current := decimal.NewFromFloat(u.Cost)
			next := current.Mul(contextTrimCostFactor)
			monthly := current.Sub(next).Mul(decimal.NewFromInt(a.ContextTrimMonthlyCalls))

			keep := u.PromptTokens * 7 / 10
			drop := u.PromptTokens * 3 / 10

			return Proposal{
				Title:           "Optimize prompt context length",
				Description:     "Your prompts average high token usage but could be trimmed without quality loss.",
				Impact:          monthly.Round(impactPlaces).InexactFloat64(),
				ImpactType:      model.ImpactMonthly,
				QualityDeltaPct: qualityDelta(2),
				Detail: ContextLengthDetail{
					AverageTokens:     u.PromptTokens,
					UsableTokens:      keep,
					UsablePct:         70,
					ModelLimitTokens:  opusLimitTokens,
					WastedTokens:      drop,
					RecommendedTokens: keep,
					SavedTokens:       drop,
					Implementation:    "Context window trimming",
					Snippet: model.Snippet{
						Language: "javascript",
						Code:     contextTrimSnippet(u.Model, u.PromptTokens, keep),
					},
				},
			}, nil
		},
	}
}

// IdleResource flags Llama 3 development endpoints as idle GPU capacity.
func IdleResource(a Assumptions) Rule {
	return Rule{
		ID:          IdleResourceID,
		Name:        "Auto-stop idle Llama3 GPU",
		Description: "Automatically shut down GPU instances that are idle for more than 30 minutes",
		Type:        model.SuggestionIdleResource,
		Enabled:     true,
		Condition: func(u model.UsageRecord) bool {
			return strings.EqualFold(u.Provider, "meta") &&
				strings.Contains(strings.ToLower(u.Model), "llama3") &&
				strings.Contains(u.EndpointTag, "development")
		},
		Action: func(u model.UsageRecord) (Proposal, error) {
			daily := decimal.NewFromFloat(a.IdleHourlyRate).Mul(decimal.NewFromInt(24))

			return Proposal{
				Title:           "Idle GPU instance detected",
				Description:     fmt.Sprintf("Your development instance has been idle for %d hours.", a.IdleHours),
				Impact:          daily.Round(impactPlaces).InexactFloat64(),
				ImpactType:      model.ImpactDaily,
				QualityDeltaPct: qualityDelta(0),
				Detail: IdleResourceDetail{
					InstanceType:    "g4dn.xlarge",
					Region:          "us-west-2",
					HourlyRate:      a.IdleHourlyRate,
					IdleHours:       a.IdleHours,
					Action:          "Shutdown instance",
					PotentialAction: "Auto-scaling group with min=0",
					Script:          idleResourceScript,
				},
			}, nil
		},
	}
}

func modelSwitchSnippet(current string, temp float64) string {
	t := strconv.FormatFloat(temp, 'f', -1, 64)
	return fmt.Sprintf(`// Current implementation
const response = await openai.chat.completions.create({
  model: "%s",
  messages: messages,
  temperature: %s
});

// Proposed change
const response = await openai.chat.completions.create({
  model: "%s",
  messages: messages,
  temperature: %s
});`, current, t, cheapModel, t)
}

func contextTrimSnippet(current string, promptTokens, keep int64) string {
	return fmt.Sprintf(`// Before: Sending full context
const response = await anthropic.messages.create({
  model: "%[1]s",
  messages: fullContextMessages, // %[2]d tokens on average
  max_tokens: 1024
});

// After: Using more efficient context
function trimContext(messages, maxTokens = %[3]d) {
  // Keep system prompt and last N messages
  const systemPrompt = messages.find(m => m.role === 'system');
  const recentMessages = messages.filter(m => m.role !== 'system')
    .slice(-10); // Keep last 10 messages

  return [systemPrompt, ...recentMessages];
}

const response = await anthropic.messages.create({
  model: "%[1]s",
  messages: trimContext(fullContextMessages),
  max_tokens: 1024
});`, current, promptTokens, keep)
}

const idleResourceScript = `# AWS CLI command to stop the instance
aws ec2 stop-instances --instance-ids i-1234567890abcdef0

# To enable auto-scaling (recommended)
aws autoscaling create-auto-scaling-group --auto-scaling-group-name dev-llm-asg \
  --min-size 0 --max-size 2 --desired-capacity 1 \
  --launch-template LaunchTemplateId=lt-0123456789abcdef0,Version='$Latest'`

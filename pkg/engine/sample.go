package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// SampleUsage returns three reference usage records for orgID, one for each
// built-in rule. They seed demo data and smoke-test a deployment.
func SampleUsage(orgID string) []model.UsageRecord {
	now := time.Now().UTC()
	return []model.UsageRecord{
		{
			ID:               uuid.New().String(),
			OrgID:            orgID,
			Timestamp:        now,
			Provider:         "openai",
			Model:            "gpt-4",
			PromptTokens:     2500,
			CompletionTokens: 500,
			TotalTokens:      3000,
			Cost:             0.12,
			TaskIntent:       model.IntentGeneralChat,
		},
		{
			ID:               uuid.New().String(),
			OrgID:            orgID,
			Timestamp:        now,
			Provider:         "anthropic",
			Model:            "claude-3-opus",
			PromptTokens:     10000,
			CompletionTokens: 1500,
			TotalTokens:      11500,
			Cost:             0.35,
			TaskIntent:       model.IntentSummarize,
		},
		{
			ID:               uuid.New().String(),
			OrgID:            orgID,
			Timestamp:        now,
			Provider:         "meta",
			Model:            "llama3-70b",
			PromptTokens:     3000,
			CompletionTokens: 800,
			TotalTokens:      3800,
			Cost:             0.08,
			EndpointTag:      "development",
			TaskIntent:       model.IntentCode,
		},
	}
}

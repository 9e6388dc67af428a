package rules

import (
	"fmt"
	"strconv"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// ModelSwitchDetail backs a model_switch suggestion.
type ModelSwitchDetail struct {
	FromModel     string
	ToModel       string
	CostBefore    float64
	CostAfter     float64
	ContextTokens int64
	Snippet       model.Snippet
}

func (d ModelSwitchDetail) Generic() model.Details {
	ctx := tokens(d.ContextTokens)
	snippet := d.Snippet
	return model.Details{
		Before: []model.Field{
			{Key: "model", Value: d.FromModel},
			{Key: "costPerCall", Value: strconv.FormatFloat(d.CostBefore, 'f', 4, 64)},
			{Key: "contextLength", Value: ctx},
		},
		After: []model.Field{
			{Key: "model", Value: d.ToModel},
			{Key: "costPerCall", Value: strconv.FormatFloat(d.CostAfter, 'f', 4, 64)},
			{Key: "contextLength", Value: ctx},
		},
		Snippet: &snippet,
	}
}

// ContextLengthDetail backs a context_length suggestion.
type ContextLengthDetail struct {
	AverageTokens     int64
	UsableTokens      int64
	UsablePct         int
	ModelLimitTokens  int64
	WastedTokens      int64
	RecommendedTokens int64
	SavedTokens       int64
	Implementation    string
	Snippet           model.Snippet
}

func (d ContextLengthDetail) Generic() model.Details {
	snippet := d.Snippet
	return model.Details{
		Before: []model.Field{
			{Key: "averageContextLength", Value: tokens(d.AverageTokens)},
			{Key: "usableContext", Value: fmt.Sprintf("%s (%d%%)", tokens(d.UsableTokens), d.UsablePct)},
			{Key: "modelLimit", Value: groupThousands(d.ModelLimitTokens) + " tokens"},
			{Key: "wastedTokens", Value: tokens(d.WastedTokens)},
		},
		After: []model.Field{
			{Key: "recommendedLength", Value: tokens(d.RecommendedTokens)},
			{Key: "savingsPerCall", Value: tokens(d.SavedTokens)},
			{Key: "implementation", Value: d.Implementation},
		},
		Snippet: &snippet,
	}
}

// IdleResourceDetail backs an idle_resource suggestion.
type IdleResourceDetail struct {
	InstanceType    string
	Region          string
	HourlyRate      float64
	IdleHours       int64
	Action          string
	PotentialAction string
	Script          string
}

func (d IdleResourceDetail) Generic() model.Details {
	return model.Details{
		Before: []model.Field{
			{Key: "instanceType", Value: d.InstanceType},
			{Key: "region", Value: d.Region},
			{Key: "hourlyRate", Value: "$" + strconv.FormatFloat(d.HourlyRate, 'f', -1, 64)},
			{Key: "idleTime", Value: fmt.Sprintf("%d hours", d.IdleHours)},
		},
		After: []model.Field{
			{Key: "action", Value: d.Action},
			{Key: "potentialAction", Value: d.PotentialAction},
		},
		Script: d.Script,
	}
}

func tokens(n int64) string { return strconv.FormatInt(n, 10) + " tokens" }

// groupThousands formats n with comma separators, e.g. 100000 -> "100,000".
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

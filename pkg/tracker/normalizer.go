package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/intent"
	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

// FieldError describes one rejected field of a usage event.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned for usage events that can never be normalized.
// It is permanent: retrying the same event fails the same way.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "invalid usage event: " + strings.Join(parts, ", ")
}

// Normalizer validates raw usage events and turns them into canonical usage records.
type Normalizer struct {
	calculator *CostCalculator
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewNormalizer creates a normalizer that prices events with calc.
func NewNormalizer(calc *CostCalculator, logger *slog.Logger) *Normalizer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Normalizer{
		calculator: calc,
		validate:   v,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
}

// Validate checks the required fields of an event. Zero prompt or total tokens count as missing.
func (n *Normalizer) Validate(event model.UsageEvent) error {
	err := n.validate.Struct(event)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate usage event: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// Normalize validates an event and produces its canonical record. Missing cost is
// computed from the price tables and a missing intent is classified from the prompt text.
func (n *Normalizer) Normalize(event model.UsageEvent) (model.UsageRecord, error) {
	if err := n.Validate(event); err != nil {
		return model.UsageRecord{}, err
	}

	provider := strings.ToLower(strings.TrimSpace(event.Provider))

	var cost float64
	if event.Cost != nil {
		cost = *event.Cost
	} else {
		cost = n.calculator.Calculate(provider, event.Model, event.PromptTokens, event.CompletionTokens)
	}

	taskIntent := event.TaskIntent
	if taskIntent == "" {
		taskIntent = model.IntentGeneralChat
		if event.PromptText != "" {
			taskIntent = intent.Classify(event.PromptText, event.EndpointTag)
		}
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = n.now()
	}

	return model.UsageRecord{
		ID:               n.newID(),
		OrgID:            event.OrgID,
		Timestamp:        ts,
		Provider:         provider,
		Model:            event.Model,
		PromptTokens:     event.PromptTokens,
		CompletionTokens: event.CompletionTokens,
		TotalTokens:      event.TotalTokens,
		Cost:             cost,
		AvgLatencyMs:     event.AvgLatencyMs,
		Temperature:      event.Temperature,
		TopP:             event.TopP,
		EndpointTag:      event.EndpointTag,
		TaskIntent:       taskIntent,
	}, nil
}

// Rejected pairs an event's position in a batch with the reason it was dropped.
type Rejected struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

// NormalizeBatch normalizes every valid event and drops the rest without failing the batch.
// Records keep the relative order of their events.
func (n *Normalizer) NormalizeBatch(events []model.UsageEvent) ([]model.UsageRecord, []Rejected) {
	records := make([]model.UsageRecord, 0, len(events))
	var rejected []Rejected
	for i, event := range events {
		record, err := n.Normalize(event)
		if err != nil {
			n.logger.Warn("usage event dropped", "index", i, "org_id", event.OrgID, "error", err)
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		records = append(records, record)
	}
	return records, rejected
}

package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is returned when a suggestion leaves a terminal status.
	ErrInvalidTransition = errors.New("invalid suggestion status transition")

	// ErrSuggestionNotFound is returned by stores for unknown suggestion ids.
	ErrSuggestionNotFound = errors.New("suggestion not found")
)

// SuggestionType tags the rule category that produced a suggestion.
type SuggestionType string

const (
	SuggestionModelSwitch   SuggestionType = "model_switch"
	SuggestionContextLength SuggestionType = "context_length"
	SuggestionIdleResource  SuggestionType = "idle_resource"
)

// SuggestionStatus is the lifecycle state of a suggestion.
type SuggestionStatus string

const (
	StatusActive      SuggestionStatus = "active"
	StatusImplemented SuggestionStatus = "implemented"
	StatusDismissed   SuggestionStatus = "dismissed"
)

// Valid reports whether s is a known status.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusImplemented, StatusDismissed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s SuggestionStatus) Terminal() bool {
	return s == StatusImplemented || s == StatusDismissed
}

// Suggestion is an actionable cost or efficiency recommendation tied to one usage pattern.
type Suggestion struct {
	ID              string           `json:"id" db:"id"`
	OrgID           string           `json:"org_id" db:"org_id"`
	RuleID          string           `json:"rule_id" db:"rule_id"`
	UsageID         string           `json:"usage_id,omitempty" db:"usage_id"`
	Type            SuggestionType   `json:"type" db:"type"`
	Title           string           `json:"title" db:"title"`
	Description     string           `json:"description" db:"description"`
	Impact          float64          `json:"impact" db:"impact"`
	ImpactType      ImpactType       `json:"impact_type" db:"impact_type"`
	QualityDeltaPct *float64         `json:"quality_delta_pct,omitempty" db:"quality_delta_pct"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	Status          SuggestionStatus `json:"status" db:"status"`
	ImplementedAt   *time.Time       `json:"implemented_at,omitempty" db:"implemented_at"`
	DismissedAt     *time.Time       `json:"dismissed_at,omitempty" db:"dismissed_at"`
	Details         *Details         `json:"details,omitempty" db:"details"`
}

// Details is the rendering-facing form of a suggestion's supporting data.
type Details struct {
	Before  []Field  `json:"before,omitempty"`
	After   []Field  `json:"after,omitempty"`
	Snippet *Snippet `json:"snippet,omitempty"`
	Script  string   `json:"script,omitempty"`
}

// Field is one key/value row of a before or after snapshot.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Snippet is a code sample illustrating how to apply a suggestion.
type Snippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// MarkImplemented moves an active suggestion to implemented.
func (s *Suggestion) MarkImplemented(at time.Time) error {
	if err := s.transition(StatusImplemented); err != nil {
		return err
	}
	s.ImplementedAt = &at
	return nil
}

// Dismiss moves an active suggestion to dismissed.
func (s *Suggestion) Dismiss(at time.Time) error {
	if err := s.transition(StatusDismissed); err != nil {
		return err
	}
	s.DismissedAt = &at
	return nil
}

func (s *Suggestion) transition(to SuggestionStatus) error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// MonthlyImpact returns the impact expressed per month.
func (s Suggestion) MonthlyImpact() float64 {
	return s.ImpactType.Convert(s.Impact, ImpactMonthly)
}

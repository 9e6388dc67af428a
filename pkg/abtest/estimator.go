package abtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/llm-cost-advisor/pkg/model"
)

const (
	// DefaultSampleSize is used when Params.SampleSize is zero.
	DefaultSampleSize = 10

	// DefaultMaxQualityLossPct is the largest quality loss still reported as a success.
	DefaultMaxQualityLossPct = 5.0
)

// Params describes a model pair to compare.
type Params struct {
	OrgID          string   `json:"org_id"`
	CurrentModel   string   `json:"current_model"`
	CandidateModel string   `json:"candidate_model"`
	EndpointTag    string   `json:"endpoint_tag,omitempty"`
	SampleSize     int      `json:"sample_size,omitempty"`
	Prompts        []string `json:"prompts,omitempty"`
}

// Result is the outcome of a test.
type Result struct {
	model.ABTest
	SampleCount int        `json:"sample_count"`
	Matched     bool       `json:"matched"`
	Comparison  Comparison `json:"comparison"`
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMatrix replaces the comparison matrix.
func WithMatrix(m Matrix) Option {
	return func(e *Estimator) { e.matrix = m }
}

// WithMaxQualityLoss sets the success threshold in percent.
func WithMaxQualityLoss(pct float64) Option {
	return func(e *Estimator) { e.maxQualityLoss = pct }
}

// WithDefaultSampleSize sets the sample size used when a request names none.
func WithDefaultSampleSize(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.defaultSampleSize = n
		}
	}
}

// WithClock replaces the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// Estimator runs simulated A/B tests over a comparison matrix.
type Estimator struct {
	matrix            Matrix
	measurer          Measurer
	maxQualityLoss    float64
	defaultSampleSize int
	now               func() time.Time
	logger            *slog.Logger
}

// NewEstimator creates an estimator that draws results from measurer.
func NewEstimator(measurer Measurer, logger *slog.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		matrix:            DefaultMatrix(),
		measurer:          measurer,
		maxQualityLoss:    DefaultMaxQualityLossPct,
		defaultSampleSize: DefaultSampleSize,
		now:               func() time.Time { return time.Now().UTC() },
		logger:            logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTest estimates the quality and latency deltas of params.CandidateModel against
// params.CurrentModel. The result is a success when the quality loss is no worse
// than the configured maximum.
func (e *Estimator) RunTest(ctx context.Context, params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if params.SampleSize == 0 {
		params.SampleSize = e.defaultSampleSize
	}

	comparison, matched := e.matrix.Lookup(params.CurrentModel, params.CandidateModel)
	m, err := e.measurer.Measure(ctx, params, comparison)
	if err != nil {
		return nil, fmt.Errorf("measure %s vs %s: %w", params.CurrentModel, params.CandidateModel, err)
	}

	result := &Result{
		ABTest: model.ABTest{
			ID:                uuid.New().String(),
			OrgID:             params.OrgID,
			CurrentModel:      params.CurrentModel,
			CandidateModel:    params.CandidateModel,
			EndpointTag:       params.EndpointTag,
			SampleSize:        params.SampleSize,
			QualityDeltaPct:   m.QualityDeltaPct,
			AvgLatencyDeltaMs: m.AvgLatencyDeltaMs,
			Success:           e.Success(m.QualityDeltaPct),
			CreatedAt:         e.now(),
		},
		SampleCount: params.SampleSize,
		Matched:     matched,
		Comparison:  comparison,
	}

	e.logger.Info("ab test completed",
		"org_id", params.OrgID,
		"current_model", params.CurrentModel,
		"candidate_model", params.CandidateModel,
		"matched", matched,
		"quality_delta_pct", m.QualityDeltaPct,
		"latency_delta_ms", m.AvgLatencyDeltaMs,
		"success", result.Success,
	)
	return result, nil
}

// Success reports whether a quality delta is within the acceptable loss.
func (e *Estimator) Success(qualityDeltaPct float64) bool {
	return qualityDeltaPct >= -e.maxQualityLoss
}

func validateParams(p Params) error {
	var missing []string
	if strings.TrimSpace(p.OrgID) == "" {
		missing = append(missing, "org_id")
	}
	if strings.TrimSpace(p.CurrentModel) == "" {
		missing = append(missing, "current_model")
	}
	if strings.TrimSpace(p.CandidateModel) == "" {
		missing = append(missing, "candidate_model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	if p.SampleSize < 0 {
		return fmt.Errorf("%w: sample_size must not be negative", ErrInvalidParams)
	}
	return nil
}

// ErrInvalidParams is returned by RunTest for incomplete requests.
var ErrInvalidParams = errors.New("invalid ab test parameters")

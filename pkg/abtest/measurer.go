package abtest

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is one estimated outcome of running a candidate model against the current one.
type Measurement struct {
	QualityDeltaPct   float64
	AvgLatencyDeltaMs float64
}

// Measurer produces a measurement for a model pair. Implementations may draw from
// the comparison envelope or run real paired prompts.
type Measurer interface {
	Measure(ctx context.Context, params Params, c Comparison) (Measurement, error)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(ctx context.Context, params Params, c Comparison) (Measurement, error)

func (f MeasurerFunc) Measure(ctx context.Context, params Params, c Comparison) (Measurement, error) {
	return f(ctx, params, c)
}

// RandomMeasurer draws uniformly from the comparison ranges, rounded to 0.1.
// It simulates an evaluation harness and is safe for concurrent use.
type RandomMeasurer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomMeasurer creates a measurer. A zero seed seeds from the clock.
func NewRandomMeasurer(seed uint64) *RandomMeasurer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomMeasurer{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (m *RandomMeasurer) Measure(_ context.Context, _ Params, c Comparison) (Measurement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Measurement{
		QualityDeltaPct:   m.draw(c.Quality),
		AvgLatencyDeltaMs: m.draw(c.Latency),
	}, nil
}

func (m *RandomMeasurer) draw(r Range) float64 {
	v := m.rng.Float64()*(r.Max-r.Min) + r.Min
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

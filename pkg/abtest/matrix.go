// Package abtest estimates the quality and latency trade-off of replacing one
// model with another.
package abtest

import "strings"

// Range is a closed interval of plausible deltas.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Comparison is the envelope of previously observed deltas for one candidate.
// Negative quality means the candidate is worse; negative latency means it is faster.
type Comparison struct {
	Candidate string `json:"candidate"`
	Quality   Range  `json:"quality_delta_pct"`
	Latency   Range  `json:"latency_delta_ms"`
}

// Baseline lists the known comparisons for a current model.
type Baseline struct {
	Model       string       `json:"model"`
	Comparisons []Comparison `json:"comparisons"`
}

// Matrix is an ordered list of baselines. Lookups take the first baseline whose
// model name is contained in the current model.
type Matrix []Baseline

// DefaultComparison applies to pairs missing from the matrix: at most a 5% quality
// loss, and faster.
var DefaultComparison = Comparison{
	Quality: Range{Min: -5, Max: 0},
	Latency: Range{Min: -300, Max: -100},
}

// DefaultMatrix returns the built-in comparison matrix. "gpt-4o" precedes "gpt-4"
// because every gpt-4o name also contains "gpt-4".
func DefaultMatrix() Matrix {
	return Matrix{
		{Model: "gpt-4o", Comparisons: []Comparison{
			{Candidate: "gpt-3.5-turbo", Quality: Range{-6, -1}, Latency: Range{-350, -150}},
			{Candidate: "claude-3-sonnet", Quality: Range{-4, 1}, Latency: Range{-200, 0}},
			{Candidate: "claude-3-haiku", Quality: Range{-4, 1}, Latency: Range{-200, 0}},
		}},
		{Model: "gpt-4", Comparisons: []Comparison{
			{Candidate: "gpt-3.5-turbo", Quality: Range{-8, -2}, Latency: Range{-400, -200}},
			{Candidate: "claude-3-haiku", Quality: Range{-10, -5}, Latency: Range{-600, -300}},
			{Candidate: "claude-3-sonnet", Quality: Range{-10, -5}, Latency: Range{-600, -300}},
		}},
		{Model: "claude-3-opus", Comparisons: []Comparison{
			{Candidate: "claude-3-sonnet", Quality: Range{-5, -1}, Latency: Range{-300, -100}},
			{Candidate: "claude-3-haiku", Quality: Range{-12, -6}, Latency: Range{-800, -500}},
		}},
	}
}

// Lookup returns the comparison for a model pair by case-insensitive substring match.
// The second result is false when DefaultComparison was used.
func (m Matrix) Lookup(current, candidate string) (Comparison, bool) {
	cur := strings.ToLower(current)
	cand := strings.ToLower(candidate)

	for _, base := range m {
		if !strings.Contains(cur, strings.ToLower(base.Model)) {
			continue
		}
		for _, c := range base.Comparisons {
			if strings.Contains(cand, strings.ToLower(c.Candidate)) {
				return c, true
			}
		}
		break
	}

	d := DefaultComparison
	d.Candidate = candidate
	return d, false
}

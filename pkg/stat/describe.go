// Package stat computes summary statistics and a reliability score over the
// successful samples of a finalized run.  Every function is pure and total:
// degenerate input (no samples, one sample, zero variance) produces zeroed
// or absent fields, never a panic.
package stat

import (
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}

// stddev is the sample standard deviation (n-1 denominator).  Zero for
// fewer than two observations.
func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		s += math.Pow(v-mean, 2)
	}
	return math.Sqrt(s / float64(len(values)-1))
}

func min(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := values[0]
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func max(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := values[0]
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

// quantile returns the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between order statistics
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

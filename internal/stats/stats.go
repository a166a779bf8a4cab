// Package stats computes the descriptive statistics and grouped
// aggregations behind the radar charts.
package stats

import (
	"math"
	"sort"
)

// Summary holds the four statistics computed for every group. Std is nil
// for a single observation, where the sample estimator is undefined.
type Summary struct {
	N      int
	Median float64
	Mean   float64
	Std    *float64
	IQR    float64
}

// Quantile returns the q-th quantile (0..1) of sorted values using linear
// interpolation between closest ranks: the value at fractional rank
// r = q*(n-1) is x[lo] + (x[lo+1]-x[lo])*frac.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// Describe computes median, mean, sample standard deviation, and IQR over
// the given scores. The input must be non-empty; callers omit empty groups.
func Describe(scores []float64) Summary {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	n := len(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	s := Summary{
		N:      n,
		Median: Quantile(sorted, 0.5),
		Mean:   mean,
		IQR:    Quantile(sorted, 0.75) - Quantile(sorted, 0.25),
	}

	if n > 1 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(n-1))
		s.Std = &std
	}
	return s
}

package fib

import (
	"fmt"
	"math"
	"sort"
)

// Percentile returns the p-th percentile of values using midpoint
// interpolation: the mean of the two order statistics around rank (n-1)*p/100.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyPopulation
	}
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %v out of range [0, 100]", p)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return (sorted[lo] + sorted[hi]) / 2, nil
}

// SelectTop returns the users whose FIB-index is at or above the percentile
// cutoff of the score distribution, highest first, and the cutoff itself.
// All users tied at the cutoff are selected.
func SelectTop(scores []Score, percentile float64) ([]Score, float64, error) {
	if len(scores) == 0 {
		return nil, 0, ErrEmptyPopulation
	}
	if math.IsNaN(percentile) || percentile <= 0 || percentile > 100 {
		return nil, 0, fmt.Errorf("percentile %v out of range (0, 100]", percentile)
	}

	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = float64(s.Index)
	}
	cutoff, err := Percentile(values, percentile)
	if err != nil {
		return nil, 0, err
	}

	var top []Score
	for _, s := range scores {
		if float64(s.Index) >= cutoff {
			top = append(top, s)
		}
	}
	return SortDescending(top), cutoff, nil
}

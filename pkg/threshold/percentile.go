// Package threshold selects magnitude thresholds by percentile, suppresses
// transform coefficients with hard or soft rules, and binarizes reconstructions.
package threshold

import (
	"math"
	"sort"

	"fracturemask/pkg/faults"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks: position p/100*(n-1) in ascending order.
// values is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, faults.EmptyInput("percentile of zero values")
	}
	if err := checkPercentile(p); err != nil {
		return 0, err
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for input already sorted in ascending order.
// It lets callers take several percentiles from a single sort.
func PercentileSorted(sorted []float64, p float64) (float64, error) {
	n := len(sorted)
	if n == 0 {
		return 0, faults.EmptyInput("percentile of zero values")
	}
	if err := checkPercentile(p); err != nil {
		return 0, err
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}

func checkPercentile(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return faults.InvalidArgument("percentile %v outside [0, 100]", p)
	}
	return nil
}

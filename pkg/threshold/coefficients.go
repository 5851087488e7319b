package threshold

import (
	"math"
	"math/cmplx"
	"sort"

	"fracturemask/pkg/coeffs"
	"fracturemask/pkg/faults"
)

// Mode selects the suppression rule applied to each coefficient
type Mode string

const (
	// Hard keeps coefficients with Min <= |z| < Max and zeroes the rest
	Hard Mode = "hard"

	// Soft zeroes |z| < Min and shrinks the remaining magnitudes by Min
	Soft Mode = "soft"
)

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case Hard, Soft:
		return Mode(name), nil
	}
	return "", faults.InvalidArgument("unsupported thresholding mode %q (want %q or %q)", name, Hard, Soft)
}

// Bounds is the magnitude band (Min, Max) used by the suppression rules.
// Max is +Inf when only a lower threshold applies.
type Bounds struct {
	Min float64
	Max float64
}

// Lower returns bounds with only a lower threshold
func Lower(min float64) Bounds {
	return Bounds{Min: min, Max: math.Inf(1)}
}

// Validate checks that the band is well formed
func (b Bounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return faults.InvalidArgument("threshold bounds contain NaN")
	}
	if b.Min < 0 {
		return faults.InvalidArgument("lower threshold %v is negative", b.Min)
	}
	if b.Max < b.Min {
		return faults.InvalidArgument("upper threshold %v below lower threshold %v", b.Max, b.Min)
	}
	return nil
}

// Value returns the p-th percentile of every coefficient magnitude in the tree
func Value(tree *coeffs.Tree, p float64) (float64, error) {
	return Percentile(tree.Magnitudes(nil), p)
}

// SelectBounds computes a band from two percentiles over the coefficient
// magnitudes with a single sort. An upper percentile of 0 leaves Max unbounded.
func SelectBounds(tree *coeffs.Tree, lower, upper float64) (Bounds, error) {
	if err := checkPercentile(lower); err != nil {
		return Bounds{}, err
	}
	if upper != 0 {
		if err := checkPercentile(upper); err != nil {
			return Bounds{}, err
		}
		if upper < lower {
			return Bounds{}, faults.InvalidArgument("upper percentile %v below lower percentile %v", upper, lower)
		}
	}

	mags := tree.Magnitudes(nil)
	if len(mags) == 0 {
		return Bounds{}, faults.EmptyInput("coefficient tree has no coefficients")
	}
	sort.Float64s(mags)

	min, err := PercentileSorted(mags, lower)
	if err != nil {
		return Bounds{}, err
	}
	if upper == 0 {
		return Lower(min), nil
	}
	max, err := PercentileSorted(mags, upper)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Min: min, Max: max}, nil
}

// Apply returns a new tree with every coefficient passed through the
// suppression rule of mode. The input tree is left untouched.
func Apply(tree *coeffs.Tree, b Bounds, mode Mode) (*coeffs.Tree, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var rule func(complex128) complex128
	switch mode {
	case Hard:
		rule = func(z complex128) complex128 { return HardValue(z, b) }
	case Soft:
		rule = func(z complex128) complex128 { return SoftValue(z, b.Min) }
	default:
		return nil, faults.InvalidArgument("unsupported thresholding mode %q", mode)
	}

	out := tree.Clone()
	out.Walk(func(_ coeffs.Key, l *coeffs.Leaf) {
		for i, z := range l.Data {
			l.Data[i] = rule(z)
		}
	})
	return out, nil
}

// HardValue keeps z when Min <= |z| < Max and returns 0 otherwise
func HardValue(z complex128, b Bounds) complex128 {
	mag := cmplx.Abs(z)
	if mag >= b.Min && mag < b.Max {
		return z
	}
	return 0
}

// SoftValue shrinks |z| by min while keeping its phase; |z| < min maps to 0
func SoftValue(z complex128, min float64) complex128 {
	mag := cmplx.Abs(z)
	if mag < min || mag == 0 {
		return 0
	}
	factor := (mag - min) / mag
	return z * complex(factor, 0)
}

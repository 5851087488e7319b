package threshold

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fracturemask/internal/models"
	"fracturemask/pkg/coeffs"
	"fracturemask/pkg/faults"
)

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 1.75},
		{50, 2.5},
		{75, 3.25},
		{100, 4},
	}

	for _, tc := range cases {
		got, err := Percentile(values, tc.p)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-12, "p=%v", tc.p)
	}

	// input order is preserved
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}

func TestPercentileSingleValue(t *testing.T) {
	got, err := Percentile([]float64{7}, 33.3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestPercentileErrors(t *testing.T) {
	_, err := Percentile(nil, 50)
	assert.True(t, errors.Is(err, faults.ErrEmptyInput))

	for _, p := range []float64{-1, 100.5, math.NaN()} {
		_, err := Percentile([]float64{1, 2}, p)
		assert.True(t, errors.Is(err, faults.ErrInvalidArgument), "p=%v", p)
	}
}

func TestPercentileMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 257)
	for i := range values {
		values[i] = rng.ExpFloat64()
	}

	prev := -1.0
	for p := 0.0; p <= 100; p += 2.5 {
		v, err := Percentile(values, p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func scenarioTree() *coeffs.Tree {
	tree := coeffs.New(coeffs.Layout{{1}}, 2, 2)
	copy(tree.Scales[0][0][0].Data, []complex128{3, 0.5, -4, 0.1})
	return tree
}

func TestApplyHardScenario(t *testing.T) {
	tree := scenarioTree()

	out, err := Apply(tree, Bounds{Min: 1, Max: 10}, Hard)
	require.NoError(t, err)

	assert.Equal(t, []complex128{3, 0, -4, 0}, out.Scales[0][0][0].Data)
	// caller's tree is untouched
	assert.Equal(t, []complex128{3, 0.5, -4, 0.1}, tree.Scales[0][0][0].Data)
}

func TestApplyHardUpperBoundExclusive(t *testing.T) {
	tree := scenarioTree()

	out, err := Apply(tree, Bounds{Min: 0.5, Max: 4}, Hard)
	require.NoError(t, err)
	assert.Equal(t, []complex128{3, 0.5, 0, 0}, out.Scales[0][0][0].Data)
}

func TestSoftValueScenario(t *testing.T) {
	assert.InDelta(t, 3.0, real(SoftValue(4, 1)), 1e-12)
	assert.InDelta(t, -3.0, real(SoftValue(-4, 1)), 1e-12)
	assert.Equal(t, complex128(0), SoftValue(0.5, 1))
	assert.Equal(t, complex128(0), SoftValue(0, 0))
	assert.Equal(t, complex128(2), SoftValue(2, 0))
}

func TestSoftValuePreservesPhase(t *testing.T) {
	z := complex(3, 4)
	got := SoftValue(z, 1)

	assert.InDelta(t, 4.0, cmplx.Abs(got), 1e-12)
	assert.InDelta(t, cmplx.Phase(z), cmplx.Phase(got), 1e-12)
}

func randomTree(seed int64) *coeffs.Tree {
	rng := rand.New(rand.NewSource(seed))
	tree := coeffs.New(coeffs.Layout{{1}, {2, 2}, {4, 4}}, 3, 5)
	tree.Walk(func(_ coeffs.Key, l *coeffs.Leaf) {
		for i := range l.Data {
			l.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
	})
	return tree
}

func TestApplyPreservesShape(t *testing.T) {
	tree := randomTree(1)

	for _, mode := range []Mode{Hard, Soft} {
		out, err := Apply(tree, Bounds{Min: 0.5, Max: 2}, mode)
		require.NoError(t, err)
		assert.NoError(t, tree.SameShape(out), "mode %s", mode)
	}
}

// mixedShapeTree has a 2x2 low-pass leaf and 4x3 leaves at scale 1
func mixedShapeTree() *coeffs.Tree {
	leaf := func(rows, cols int, start float64) coeffs.Leaf {
		l := coeffs.NewLeaf(rows, cols)
		for i := range l.Data {
			l.Data[i] = complex(start+float64(i), 0)
		}
		return l
	}
	return &coeffs.Tree{Scales: [][][]coeffs.Leaf{
		{{leaf(2, 2, 0)}},
		{{leaf(4, 3, 4), leaf(4, 3, 16)}, {leaf(4, 3, -28)}},
	}}
}

func TestThresholdMixedLeafShapes(t *testing.T) {
	tree := mixedShapeTree()
	require.Equal(t, 4+3*12, tree.Size())

	b, err := SelectBounds(tree, 25, 75)
	require.NoError(t, err)

	for _, mode := range []Mode{Hard, Soft} {
		out, err := Apply(tree, b, mode)
		require.NoError(t, err)
		require.NoError(t, tree.SameShape(out), "mode %s", mode)

		low := out.Leaf(coeffs.Key{})
		assert.Equal(t, 2, low.Rows)
		assert.Equal(t, 2, low.Cols)
		for _, k := range out.Keys()[1:] {
			l := out.Leaf(k)
			assert.Equal(t, 4, l.Rows, "%v", k)
			assert.Equal(t, 3, l.Cols, "%v", k)
			assert.Len(t, l.Data, 12, "%v", k)
		}
	}

	// a tree whose scale-1 leaves are 3x4 is a different shape
	other := mixedShapeTree()
	other.Scales[1][1][0] = coeffs.NewLeaf(3, 4)
	assert.True(t, errors.Is(tree.SameShape(other), faults.ErrShape))
}

func TestHardIdempotent(t *testing.T) {
	tree := randomTree(2)
	b := Bounds{Min: 0.7, Max: 1.9}

	once, err := Apply(tree, b, Hard)
	require.NoError(t, err)
	twice, err := Apply(once, b, Hard)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestSoftShrinks(t *testing.T) {
	tree := randomTree(3)
	min := 1.1

	out, err := Apply(tree, Lower(min), Soft)
	require.NoError(t, err)

	for _, k := range tree.Keys() {
		in, res := tree.Leaf(k), out.Leaf(k)
		for i, z := range in.Data {
			assert.LessOrEqual(t, cmplx.Abs(res.Data[i]), cmplx.Abs(z)+1e-12)
			if cmplx.Abs(z) < min {
				assert.Equal(t, complex128(0), res.Data[i])
			}
		}
	}
}

func TestApplyRejectsBadArguments(t *testing.T) {
	tree := scenarioTree()

	_, err := Apply(tree, Lower(1), Mode("median"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "median")

	_, err = Apply(tree, Bounds{Min: -1, Max: 2}, Hard)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))

	_, err = Apply(tree, Bounds{Min: 3, Max: 2}, Soft)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("soft")
	require.NoError(t, err)
	assert.Equal(t, Soft, m)

	_, err = ParseMode("Soft")
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestSelectBounds(t *testing.T) {
	tree := scenarioTree()

	b, err := SelectBounds(tree, 50, 0)
	require.NoError(t, err)
	// magnitudes 0.1, 0.5, 3, 4
	assert.InDelta(t, 1.75, b.Min, 1e-12)
	assert.True(t, math.IsInf(b.Max, 1))

	b, err = SelectBounds(tree, 0, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, b.Min, 1e-12)
	assert.InDelta(t, 4, b.Max, 1e-12)

	v, err := Value(tree, 50)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, v, 1e-12)

	_, err = SelectBounds(tree, 80, 20)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))

	_, err = SelectBounds(coeffs.New(coeffs.Layout{{1}}, 0, 0), 50, 0)
	assert.True(t, errors.Is(err, faults.ErrEmptyInput))
}

func TestBinarizeStrictCut(t *testing.T) {
	img := models.Image{Data: []float64{1, 2, 3, 4}, Width: 2, Height: 2}

	mask, cut, err := Binarize(img, 50)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, cut, 1e-12)
	assert.Equal(t, []uint8{0, 0, 1, 1}, mask.Data)
	assert.Equal(t, 2, mask.Width)

	// every pixel equal to the cut stays 0
	flat := models.Image{Data: []float64{5, 5, 5, 5}, Width: 4, Height: 1}
	mask, _, err = Binarize(flat, 90)
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Count())
}

func TestBinarizeErrors(t *testing.T) {
	_, _, err := Binarize(models.Image{Data: []float64{1, 2, 3}, Width: 2, Height: 2}, 50)
	assert.True(t, errors.Is(err, faults.ErrShape))

	_, _, err = Binarize(models.Image{}, 50)
	assert.True(t, errors.Is(err, faults.ErrEmptyInput))
}

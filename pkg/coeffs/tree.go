// Package coeffs holds the ragged coefficient tree produced by the directional
// multiscale transform. A tree is indexed by (scale, direction, angle) and each
// leaf is a complex-valued grid; counts and leaf shapes may differ between scales.
package coeffs

import (
	"math/cmplx"

	"fracturemask/pkg/faults"
)

// Leaf is a row-major grid of coefficients
type Leaf struct {
	Rows int
	Cols int
	Data []complex128
}

// NewLeaf allocates a zero-filled leaf
func NewLeaf(rows, cols int) Leaf {
	return Leaf{Rows: rows, Cols: cols, Data: make([]complex128, rows*cols)}
}

// At returns the coefficient at row r, column c
func (l Leaf) At(r, c int) complex128 {
	return l.Data[r*l.Cols+c]
}

// Tree is indexed as Scales[scale][direction][angle]
type Tree struct {
	Scales [][][]Leaf
}

// Key addresses a single leaf
type Key struct {
	Scale, Direction, Angle int
}

// Layout describes the number of angles per direction per scale
type Layout [][]int

// New allocates a zero-filled tree with the given layout and uniform leaf shape
func New(layout Layout, rows, cols int) *Tree {
	t := &Tree{Scales: make([][][]Leaf, len(layout))}
	for s, dirs := range layout {
		t.Scales[s] = make([][]Leaf, len(dirs))
		for d, angles := range dirs {
			t.Scales[s][d] = make([]Leaf, angles)
			for a := range t.Scales[s][d] {
				t.Scales[s][d][a] = NewLeaf(rows, cols)
			}
		}
	}
	return t
}

// NumScales returns the number of scales
func (t *Tree) NumScales() int {
	return len(t.Scales)
}

// NumDirections returns the number of directions at scale s
func (t *Tree) NumDirections(s int) int {
	return len(t.Scales[s])
}

// NumAngles returns the number of angles at scale s, direction d
func (t *Tree) NumAngles(s, d int) int {
	return len(t.Scales[s][d])
}

// Leaf returns a pointer to the addressed leaf
func (t *Tree) Leaf(k Key) *Leaf {
	return &t.Scales[k.Scale][k.Direction][k.Angle]
}

// Keys lists every leaf address in scale, direction, angle order
func (t *Tree) Keys() []Key {
	var keys []Key
	for s := range t.Scales {
		for d := range t.Scales[s] {
			for a := range t.Scales[s][d] {
				keys = append(keys, Key{Scale: s, Direction: d, Angle: a})
			}
		}
	}
	return keys
}

// Layout reports the angle counts of the tree
func (t *Tree) Layout() Layout {
	layout := make(Layout, len(t.Scales))
	for s := range t.Scales {
		layout[s] = make([]int, len(t.Scales[s]))
		for d := range t.Scales[s] {
			layout[s][d] = len(t.Scales[s][d])
		}
	}
	return layout
}

// Size returns the total number of coefficients
func (t *Tree) Size() int {
	n := 0
	t.Walk(func(_ Key, l *Leaf) {
		n += len(l.Data)
	})
	return n
}

// Walk visits every leaf in scale, direction, angle order
func (t *Tree) Walk(fn func(k Key, l *Leaf)) {
	for s := range t.Scales {
		for d := range t.Scales[s] {
			for a := range t.Scales[s][d] {
				fn(Key{Scale: s, Direction: d, Angle: a}, &t.Scales[s][d][a])
			}
		}
	}
}

// Clone returns a deep copy that shares no storage with t
func (t *Tree) Clone() *Tree {
	out := &Tree{Scales: make([][][]Leaf, len(t.Scales))}
	for s := range t.Scales {
		out.Scales[s] = make([][]Leaf, len(t.Scales[s]))
		for d := range t.Scales[s] {
			out.Scales[s][d] = make([]Leaf, len(t.Scales[s][d]))
			for a, leaf := range t.Scales[s][d] {
				data := make([]complex128, len(leaf.Data))
				copy(data, leaf.Data)
				out.Scales[s][d][a] = Leaf{Rows: leaf.Rows, Cols: leaf.Cols, Data: data}
			}
		}
	}
	return out
}

// Magnitudes appends |z| of every coefficient to dst and returns the result
func (t *Tree) Magnitudes(dst []float64) []float64 {
	if cap(dst)-len(dst) < t.Size() {
		grown := make([]float64, len(dst), len(dst)+t.Size())
		copy(grown, dst)
		dst = grown
	}
	t.Walk(func(_ Key, l *Leaf) {
		for _, z := range l.Data {
			dst = append(dst, cmplx.Abs(z))
		}
	})
	return dst
}

// NonZero counts coefficients different from zero
func (t *Tree) NonZero() int {
	n := 0
	t.Walk(func(_ Key, l *Leaf) {
		for _, z := range l.Data {
			if z != 0 {
				n++
			}
		}
	})
	return n
}

// SameShape returns a shape error when other differs from t in any count or leaf shape
func (t *Tree) SameShape(other *Tree) error {
	if other == nil {
		return faults.Shape("missing coefficient tree")
	}
	if len(t.Scales) != len(other.Scales) {
		return faults.Shape("scale count %d != %d", len(t.Scales), len(other.Scales))
	}
	for s := range t.Scales {
		if len(t.Scales[s]) != len(other.Scales[s]) {
			return faults.Shape("scale %d: direction count %d != %d", s, len(t.Scales[s]), len(other.Scales[s]))
		}
		for d := range t.Scales[s] {
			if len(t.Scales[s][d]) != len(other.Scales[s][d]) {
				return faults.Shape("scale %d direction %d: angle count %d != %d",
					s, d, len(t.Scales[s][d]), len(other.Scales[s][d]))
			}
			for a := range t.Scales[s][d] {
				l, o := t.Scales[s][d][a], other.Scales[s][d][a]
				if l.Rows != o.Rows || l.Cols != o.Cols || len(l.Data) != len(o.Data) {
					return faults.Shape("leaf (%d,%d,%d): %dx%d != %dx%d", s, d, a, l.Rows, l.Cols, o.Rows, o.Cols)
				}
			}
		}
	}
	return nil
}

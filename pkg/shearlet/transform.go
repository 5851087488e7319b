// Package shearlet implements a directional multiscale transform built from
// Meyer-type frequency windows. Scale 0 is a low-pass band; every finer scale is
// a radial band split into angular wedges whose count doubles every second scale.
// The windows square-sum to one at every frequency, so Reconstruct inverts
// Decompose up to FFT round-off.
package shearlet

import (
	"math"
	"runtime"
	"sync"

	"fracturemask/internal/models"
	"fracturemask/pkg/coeffs"
	"fracturemask/pkg/faults"
)

// directions is the number of orientation half-ranges every directional scale is split into
const directions = 2

// transitionWidth is the fraction of a wedge used for the smooth hand-over to its neighbour
const transitionWidth = 0.25

// Params configures the transform
type Params struct {
	// Rows and Cols fix the image shape the transform accepts
	Rows, Cols int

	// Scales is the number of scales including the low-pass scale
	Scales int

	// Angles is the number of wedges at the coarsest directional scale; must be even
	Angles int

	// Workers bounds the number of leaves processed concurrently; 0 uses all CPUs
	Workers int
}

// Transform holds precomputed frequency windows for one image shape
type Transform struct {
	rows    int
	cols    int
	scales  int
	angles  int
	workers int
	layout  coeffs.Layout
	keys    []coeffs.Key

	// windows[i] is the real frequency window of leaf keys[i]
	windows [][]float64
}

// NewTransform validates params and builds the frequency windows
func NewTransform(p Params) (*Transform, error) {
	if p.Rows < 2 || p.Cols < 2 {
		return nil, faults.Shape("transform needs at least 2x2 pixels, got %dx%d", p.Cols, p.Rows)
	}
	if p.Scales < 1 {
		return nil, faults.InvalidArgument("scale count %d must be at least 1", p.Scales)
	}
	if p.Angles < directions || p.Angles%directions != 0 {
		return nil, faults.InvalidArgument("angle count %d must be a positive multiple of %d", p.Angles, directions)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	t := &Transform{
		rows:    p.Rows,
		cols:    p.Cols,
		scales:  p.Scales,
		angles:  p.Angles,
		workers: workers,
		layout:  buildLayout(p.Scales, p.Angles),
	}
	t.initializeWindows()
	return t, nil
}

// buildLayout returns the angle counts per direction for every scale
func buildLayout(scales, angles int) coeffs.Layout {
	layout := make(coeffs.Layout, scales)
	layout[0] = []int{1}
	for j := 1; j < scales; j++ {
		perDirection := wedgeCount(angles, j) / directions
		layout[j] = make([]int, directions)
		for d := range layout[j] {
			layout[j][d] = perDirection
		}
	}
	return layout
}

// wedgeCount returns the number of angular wedges over [0, pi) at scale j >= 1
func wedgeCount(angles, j int) int {
	return angles << uint((j-1)/2)
}

// Layout returns the ragged shape of the trees this transform produces
func (t *Transform) Layout() coeffs.Layout {
	return t.layout
}

// Shape returns the image size the transform accepts
func (t *Transform) Shape() (rows, cols int) {
	return t.rows, t.cols
}

// initializeWindows computes the window of every leaf on the DFT grid
func (t *Transform) initializeWindows() {
	tree := coeffs.New(t.layout, 0, 0)
	t.keys = tree.Keys()
	t.windows = make([][]float64, len(t.keys))
	for i := range t.windows {
		t.windows[i] = make([]float64, t.rows*t.cols)
	}

	index := make(map[coeffs.Key]int, len(t.keys))
	for i, k := range t.keys {
		index[k] = i
	}

	radii := lowpassRadii(t.scales)

	for r := 0; r < t.rows; r++ {
		w1 := normalizedFrequency(r, t.rows)
		for c := 0; c < t.cols; c++ {
			w2 := normalizedFrequency(c, t.cols)
			pos := r*t.cols + c
			radius := math.Hypot(w1, w2)

			theta := math.Atan2(w1, w2)
			if theta < 0 {
				theta += math.Pi
			}
			if theta >= math.Pi {
				theta -= math.Pi
			}

			t.windows[index[coeffs.Key{}]][pos] = lowpass(radius, radii[0])

			for j := 1; j < t.scales; j++ {
				band := radialBand(radius, radii, j)
				if band == 0 {
					continue
				}
				count := wedgeCount(t.angles, j)
				perDirection := count / directions
				a, wa, b, wb := wedgeWeights(theta, count)
				ka := coeffs.Key{Scale: j, Direction: a / perDirection, Angle: a % perDirection}
				kb := coeffs.Key{Scale: j, Direction: b / perDirection, Angle: b % perDirection}
				t.windows[index[ka]][pos] += band * wa
				if b != a {
					t.windows[index[kb]][pos] += band * wb
				}
			}
		}
	}
}

// normalizedFrequency maps DFT index i of an n-point axis to a signed frequency in [-1, 1]
func normalizedFrequency(i, n int) float64 {
	k := i
	if k > n/2 {
		k -= n
	}
	return float64(k) / (float64(n) / 2)
}

// lowpassRadii returns the pass-band radius of every low-pass profile L_j, j < scales-1.
// L_{scales-1} is the all-pass profile.
func lowpassRadii(scales int) []float64 {
	rmax := math.Sqrt2
	radii := make([]float64, scales)
	for j := 0; j < scales-1; j++ {
		radii[j] = rmax / math.Pow(2, float64(scales-j))
	}
	radii[scales-1] = math.Inf(1)
	return radii
}

// lowpass is 1 below radius R, 0 above 2R, with a Meyer transition in between
func lowpass(radius, R float64) float64 {
	if math.IsInf(R, 1) || radius <= R {
		return 1
	}
	if radius >= 2*R {
		return 0
	}
	return math.Cos(math.Pi / 2 * meyer((radius-R)/R))
}

// radialBand returns sqrt(L_j^2 - L_{j-1}^2)
func radialBand(radius float64, radii []float64, j int) float64 {
	outer := lowpass(radius, radii[j])
	inner := lowpass(radius, radii[j-1])
	v := outer*outer - inner*inner
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// wedgeWeights returns the two wedges sharing angle theta in [0, pi) and their
// weights; the squared weights sum to one. Wedge 0 is centred on theta = 0.
func wedgeWeights(theta float64, count int) (a int, wa float64, b int, wb float64) {
	width := math.Pi / float64(count)
	u := theta/width + 0.5
	k := int(math.Floor(u))
	f := u - float64(k)
	k = ((k % count) + count) % count

	switch {
	case f < transitionWidth:
		s := (f + transitionWidth) / (2 * transitionWidth)
		prev := (k - 1 + count) % count
		return k, math.Sin(math.Pi / 2 * meyer(s)), prev, math.Cos(math.Pi / 2 * meyer(s))
	case f > 1-transitionWidth:
		s := (f - (1 - transitionWidth)) / (2 * transitionWidth)
		next := (k + 1) % count
		return k, math.Cos(math.Pi / 2 * meyer(s)), next, math.Sin(math.Pi / 2 * meyer(s))
	}
	return k, 1, k, 0
}

// meyer implements the Meyer auxiliary function used in wavelet construction.
func meyer(t float64) float64 {
	if t < 0 {
		return 0
	} else if t > 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func (t *Transform) checkImage(img models.Image) error {
	if img.Width != t.cols || img.Height != t.rows || len(img.Data) != t.rows*t.cols {
		return faults.Shape("transform expects %dx%d image, got %dx%d", t.cols, t.rows, img.Width, img.Height)
	}
	return nil
}

// Decompose computes the coefficient tree of img
func (t *Transform) Decompose(img models.Image) (*coeffs.Tree, error) {
	if err := t.checkImage(img); err != nil {
		return nil, err
	}

	spectrum := newPlan(t.rows, t.cols).fft2D(img.Data)
	tree := coeffs.New(t.layout, t.rows, t.cols)

	t.forEachLeaf(func(p *plan, i int) {
		leaf := tree.Leaf(t.keys[i])
		w := t.windows[i]
		for pos, v := range spectrum {
			leaf.Data[pos] = v * complex(w[pos], 0)
		}
		p.inverse(leaf.Data)
	})

	return tree, nil
}

// Reconstruct synthesizes an image from a coefficient tree with this transform's layout
func (t *Transform) Reconstruct(tree *coeffs.Tree) (models.Image, error) {
	if err := coeffs.New(t.layout, t.rows, t.cols).SameShape(tree); err != nil {
		return models.Image{}, err
	}

	// Leaves are striped over workers so partial sums combine in a fixed order
	partials := make([][]complex128, t.workers)
	buffers := make([][]complex128, t.workers)
	var wg sync.WaitGroup
	for w := 0; w < t.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p := newPlan(t.rows, t.cols)
			for i := worker; i < len(t.keys); i += t.workers {
				if partials[worker] == nil {
					partials[worker] = make([]complex128, t.rows*t.cols)
					buffers[worker] = make([]complex128, t.rows*t.cols)
				}
				buf := buffers[worker]
				copy(buf, tree.Leaf(t.keys[i]).Data)
				p.forward(buf)
				win := t.windows[i]
				acc := partials[worker]
				for pos, v := range buf {
					acc[pos] += v * complex(win[pos], 0)
				}
			}
		}(w)
	}
	wg.Wait()

	sum := make([]complex128, t.rows*t.cols)
	for _, part := range partials {
		for pos, v := range part {
			sum[pos] += v
		}
	}
	newPlan(t.rows, t.cols).inverse(sum)

	img := models.NewImage(t.cols, t.rows)
	for pos, v := range sum {
		img.Data[pos] = real(v)
	}
	return img, nil
}

// forEachLeaf runs fn for every leaf index on a bounded worker pool
func (t *Transform) forEachLeaf(fn func(p *plan, i int)) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < t.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := newPlan(t.rows, t.cols)
			for i := range jobs {
				fn(p, i)
			}
		}()
	}
	for i := range t.keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

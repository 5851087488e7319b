// Package evaluation scores a candidate binary mask against a reference mask
// and measures how faithfully a reconstruction reproduces its source image.
package evaluation

import (
	"fmt"
	"math"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// Result holds the overlap metrics between a candidate and a reference mask.
// IoU is NaN and Defined is false when both masks are empty.
type Result struct {
	// IoU is Intersection / Union
	IoU float64

	// Defined reports whether IoU has a nonzero denominator
	Defined bool

	// FalseNegatives counts reference pixels the candidate missed
	FalseNegatives int

	// FalsePositives counts candidate pixels outside the reference
	FalsePositives int

	// Intersection counts pixels set in both masks
	Intersection int

	// Union counts pixels set in at least one mask
	Union int

	// CandidatePixels and ReferencePixels count the set pixels of each mask
	CandidatePixels int
	ReferencePixels int
}

func (r Result) String() string {
	iou := "undefined"
	if r.Defined {
		iou = fmt.Sprintf("%.4f", r.IoU)
	}
	return fmt.Sprintf("IoU=%s FN=%d FP=%d", iou, r.FalseNegatives, r.FalsePositives)
}

// Compare scores candidate against reference. Both masks must share a shape
// and contain only 0 and 1. When the union is empty the counts are still
// returned alongside an undefined-metric error.
func Compare(candidate, reference models.BinaryMask) (Result, error) {
	if err := sameShape(candidate, reference); err != nil {
		return Result{}, err
	}

	var r Result
	for i := range candidate.Data {
		c, ref := candidate.Data[i], reference.Data[i]
		if c > 1 || ref > 1 {
			return Result{}, faults.InvalidArgument("non-binary value at pixel %d (%d, %d)", i, c, ref)
		}

		if c == 1 {
			r.CandidatePixels++
		}
		if ref == 1 {
			r.ReferencePixels++
		}
		switch {
		case c == 1 && ref == 1:
			r.Intersection++
		case ref == 1:
			r.FalseNegatives++
		case c == 1:
			r.FalsePositives++
		}
	}
	r.Union = r.Intersection + r.FalseNegatives + r.FalsePositives

	if r.Union == 0 {
		r.IoU = math.NaN()
		return r, faults.UndefinedMetric("IoU of two empty masks")
	}
	r.IoU = float64(r.Intersection) / float64(r.Union)
	r.Defined = true
	return r, nil
}

func sameShape(a, b models.BinaryMask) error {
	if a.Width != b.Width || a.Height != b.Height {
		return faults.Shape("mask %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if len(a.Data) != a.Width*a.Height || len(b.Data) != b.Width*b.Height {
		return faults.Shape("mask storage does not match %dx%d", a.Width, a.Height)
	}
	return nil
}

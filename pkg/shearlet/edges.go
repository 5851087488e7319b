package shearlet

import (
	"math"
	"math/cmplx"

	"fracturemask/internal/models"
	"fracturemask/pkg/coeffs"
)

// EdgeInfo holds edge detection information
type EdgeInfo struct {
	// Edges is the strongest directional response per pixel, normalized to [0, 1]
	Edges models.Image

	// Orientations is the wedge centre angle (radians, [0, pi)) of that response
	Orientations models.Image
}

// DetectEdges scans the directional scales of tree and keeps, per pixel, the
// largest coefficient magnitude and the orientation of the wedge that produced it.
// The low-pass scale is ignored.
func (t *Transform) DetectEdges(tree *coeffs.Tree) (EdgeInfo, error) {
	if err := coeffs.New(t.layout, t.rows, t.cols).SameShape(tree); err != nil {
		return EdgeInfo{}, err
	}

	edges := models.NewImage(t.cols, t.rows)
	orientations := models.NewImage(t.cols, t.rows)

	for _, k := range t.keys {
		if k.Scale == 0 {
			continue
		}
		perDirection := t.layout[k.Scale][k.Direction]
		wedge := k.Direction*perDirection + k.Angle
		angle := float64(wedge) * math.Pi / float64(wedgeCount(t.angles, k.Scale))

		for pos, z := range tree.Leaf(k).Data {
			mag := cmplx.Abs(z)
			if mag > edges.Data[pos] {
				edges.Data[pos] = mag
				orientations.Data[pos] = angle
			}
		}
	}

	// Normalize edge map
	maxEdge := 0.0
	for _, v := range edges.Data {
		if v > maxEdge {
			maxEdge = v
		}
	}
	if maxEdge > 0 {
		for i := range edges.Data {
			edges.Data[i] /= maxEdge
		}
	}

	return EdgeInfo{Edges: edges, Orientations: orientations}, nil
}

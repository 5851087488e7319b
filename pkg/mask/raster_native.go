//go:build opencv

package mask

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"fracturemask/internal/models"
)

// fill is white in every channel; a single-channel Mat takes only the first
// scalar value, which gocv maps from the blue component.
var fill = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// fillPolygons rasterizes the polygons with OpenCV's fillPoly.
// Vertices are truncated to integer pixels.
func fillPolygons(dst models.BinaryMask, polygons []models.Polygon) error {
	var rings [][]image.Point
	for _, poly := range polygons {
		if len(poly) < 3 {
			continue
		}
		ring := make([]image.Point, len(poly))
		for i, p := range poly {
			ring[i] = image.Pt(int(p.X), int(p.Y))
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 || dst.Width == 0 || dst.Height == 0 {
		return nil
	}

	canvas := gocv.Zeros(dst.Height, dst.Width, gocv.MatTypeCV8U)
	defer canvas.Close()

	pts := gocv.NewPointsVectorFromPoints(rings)
	defer pts.Close()

	if err := gocv.FillPoly(&canvas, pts, fill); err != nil {
		return errors.Wrap(err, "filling segmentation polygons")
	}

	pix := canvas.ToBytes()
	for i := range dst.Data {
		if pix[i] != 0 {
			dst.Data[i] = 1
		}
	}
	return nil
}

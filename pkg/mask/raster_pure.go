//go:build !opencv

package mask

import (
	"image"

	"golang.org/x/image/vector"

	"fracturemask/internal/models"
)

// fillPolygons sets every pixel touched by a polygon interior or outline to 1.
// Vertices are truncated to integer pixels and then shifted by half a pixel so
// they address pixel centres, which is how OpenCV's fillPoly interprets them.
func fillPolygons(dst models.BinaryMask, polygons []models.Polygon) error {
	if dst.Width == 0 || dst.Height == 0 {
		return nil
	}

	z := vector.NewRasterizer(dst.Width, dst.Height)
	drawn := false
	for _, poly := range polygons {
		if len(poly) < 3 {
			continue
		}
		z.MoveTo(pixelCentre(poly[0]))
		for _, p := range poly[1:] {
			z.LineTo(pixelCentre(p))
		}
		z.ClosePath()
		drawn = true
	}
	if !drawn {
		return nil
	}

	coverage := image.NewAlpha(image.Rect(0, 0, dst.Width, dst.Height))
	z.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	for i, a := range coverage.Pix {
		if a > 0 {
			dst.Data[i] = 1
		}
	}
	return nil
}

// pixelCentre truncates p toward zero and returns the centre of that pixel
func pixelCentre(p models.Point) (x, y float32) {
	return float32(int(p.X)) + 0.5, float32(int(p.Y)) + 0.5
}

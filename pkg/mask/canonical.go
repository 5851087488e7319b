package mask

import (
	"image"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// DefaultSide is the side length of the canonical square window
const DefaultSide = 352

// Canonicalize crops image, masks and bounding box to the top-left side x side
// window. Sources smaller than the window are rejected rather than truncated.
// The patch is left as built.
func Canonicalize(s models.Sample, side int) (models.Sample, error) {
	if side <= 0 {
		return models.Sample{}, faults.InvalidArgument("canonical side %d must be positive", side)
	}
	if s.Image.Width < side || s.Image.Height < side {
		return models.Sample{}, faults.Shape("image %dx%d smaller than canonical %dx%d",
			s.Image.Width, s.Image.Height, side, side)
	}
	if s.Mask.Width != s.Image.Width || s.Mask.Height != s.Image.Height ||
		s.Box.Width != s.Image.Width || s.Box.Height != s.Image.Height {
		return models.Sample{}, faults.Shape("masks do not match image %dx%d", s.Image.Width, s.Image.Height)
	}

	window := image.Rect(0, 0, side, side)
	clipped := s.BoundingBox.Rect().Intersect(window)

	return models.Sample{
		Filename: s.Filename,
		Image:    Crop(s.Image, window),
		Mask:     CropMask(s.Mask, window),
		Box:      CropMask(s.Box, window),
		BoundingBox: models.BoundingBox{
			X:      clipped.Min.X,
			Y:      clipped.Min.Y,
			Width:  clipped.Dx(),
			Height: clipped.Dy(),
		},
		Patch: s.Patch,
	}, nil
}

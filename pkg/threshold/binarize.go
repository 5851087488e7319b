package threshold

import (
	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// Binarize marks pixels strictly brighter than the p-th intensity percentile.
// It returns the mask and the cut value that produced it.
func Binarize(img models.Image, p float64) (models.BinaryMask, float64, error) {
	if img.Width < 0 || img.Height < 0 || len(img.Data) != img.Width*img.Height {
		return models.BinaryMask{}, 0, faults.Shape("image %dx%d with %d pixels", img.Width, img.Height, len(img.Data))
	}

	cut, err := Percentile(img.Data, p)
	if err != nil {
		return models.BinaryMask{}, 0, err
	}

	mask := models.NewBinaryMask(img.Width, img.Height)
	for i, v := range img.Data {
		if v > cut {
			mask.Data[i] = 1
		}
	}
	return mask, cut, nil
}

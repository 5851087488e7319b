//go:build opencv

package dataset

import (
	"gocv.io/x/gocv"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// LoadChannel reads an image with OpenCV and returns one RGB channel on a 0..255 scale
func LoadChannel(path string, channel int) (models.Image, error) {
	if err := checkChannel(channel); err != nil {
		return models.Image{}, err
	}

	src := gocv.IMRead(path, gocv.IMReadColor)
	defer src.Close()
	if src.Empty() {
		return models.Image{}, faults.NotFound("could not load image: %s", path)
	}

	w, h := src.Cols(), src.Rows()
	out := models.NewImage(w, h)

	// OpenCV stores BGR
	bgr := 2 - channel
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Data[y*w+x] = float64(src.GetVecbAt(y, x)[bgr])
		}
	}
	return out, nil
}

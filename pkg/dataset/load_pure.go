//go:build !opencv

package dataset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"fracturemask/internal/models"
)

// LoadChannel decodes an image file and returns one RGB channel on a 0..255 scale
func LoadChannel(path string, channel int) (models.Image, error) {
	if err := checkChannel(channel); err != nil {
		return models.Image{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.Image{}, errors.Wrap(err, "opening image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return models.Image{}, errors.Wrapf(err, "decoding image %s", path)
	}

	return ChannelOf(img, channel), nil
}

// ChannelOf extracts one RGB channel of img on a 0..255 scale
func ChannelOf(img image.Image, channel int) models.Image {
	bounds := img.Bounds()
	out := models.NewImage(bounds.Dx(), bounds.Dy())

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			v := [3]uint32{r, g, b}[channel]
			out.Data[y*out.Width+x] = float64(v >> 8)
		}
	}
	return out
}

// Package visualization renders intensity images and mask comparisons as PNG files.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"

	"fracturemask/internal/models"
)

var (
	// truthColor marks ground-truth pixels the candidate missed
	truthColor = color.RGBA{R: 40, G: 200, B: 60, A: 255}

	// detectedColor marks candidate pixels outside the ground truth
	detectedColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}

	// overlapColor marks pixels present in both masks
	overlapColor = color.RGBA{R: 240, G: 220, B: 40, A: 255}
)

// Viewer renders one intensity image and masks laid over it
type Viewer struct {
	img models.Image
}

// NewViewer creates a viewer for img
func NewViewer(img models.Image) *Viewer {
	return &Viewer{img: img}
}

// Grayscale maps the intensity range of the image linearly onto 0..255
func (v *Viewer) Grayscale() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, v.img.Width, v.img.Height))
	if len(v.img.Data) == 0 {
		return out
	}

	lo, hi := floats.Min(v.img.Data), floats.Max(v.img.Data)
	span := hi - lo
	for i, val := range v.img.Data {
		g := 0.0
		if span > 0 {
			g = (val - lo) / span * 255
		}
		out.Pix[i] = uint8(g + 0.5)
	}
	return out
}

// Mask renders a binary mask as black and white
func Mask(m models.BinaryMask) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		if v == 1 {
			out.Pix[i] = 255
		}
	}
	return out
}

// Overlay colours candidate and reference pixels over the grayscale image and
// writes label in the top-left corner
func (v *Viewer) Overlay(candidate, reference models.BinaryMask, label string) (*image.RGBA, error) {
	w, h := v.img.Width, v.img.Height
	if candidate.Width != w || candidate.Height != h || reference.Width != w || reference.Height != h {
		return nil, fmt.Errorf("overlay masks %dx%d and %dx%d do not match image %dx%d",
			candidate.Width, candidate.Height, reference.Width, reference.Height, w, h)
	}

	gray := v.Grayscale()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		c := color.RGBA{R: gray.Pix[i], G: gray.Pix[i], B: gray.Pix[i], A: 255}
		switch {
		case candidate.Data[i] == 1 && reference.Data[i] == 1:
			c = blend(c, overlapColor)
		case candidate.Data[i] == 1:
			c = blend(c, detectedColor)
		case reference.Data[i] == 1:
			c = blend(c, truthColor)
		}
		out.SetRGBA(i%w, i/w, c)
	}

	if label != "" {
		drawText(out, basicfont.Face7x13, label, 4, 14, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return out, nil
}

// blend mixes base and tint in equal parts
func blend(base, tint color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(base.R) + uint16(tint.R)) / 2),
		G: uint8((uint16(base.G) + uint16(tint.G)) / 2),
		B: uint8((uint16(base.B) + uint16(tint.B)) / 2),
		A: 255,
	}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// SavePNG writes img to filename, creating parent directories as needed
func SavePNG(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}

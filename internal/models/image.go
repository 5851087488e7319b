package models

import (
	"image"
)

// Image is a single-channel intensity grid stored in row-major order
type Image struct {
	// Data holds Width*Height intensities, row by row
	Data []float64

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int
}

// NewImage allocates a zero-filled image of the given size
func NewImage(width, height int) Image {
	return Image{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the intensity at column x, row y
func (img Image) At(x, y int) float64 {
	return img.Data[y*img.Width+x]
}

// Set stores an intensity at column x, row y
func (img Image) Set(x, y int, v float64) {
	img.Data[y*img.Width+x] = v
}

// Bounds returns the image rectangle anchored at the origin
func (img Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// Clone returns a deep copy
func (img Image) Clone() Image {
	data := make([]float64, len(img.Data))
	copy(data, img.Data)
	return Image{Data: data, Width: img.Width, Height: img.Height}
}

// BinaryMask is a row-major grid of 0/1 values with the shape of its source image
type BinaryMask struct {
	// Data holds Width*Height values, each 0 or 1
	Data []uint8

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int
}

// NewBinaryMask allocates an all-zero mask of the given size
func NewBinaryMask(width, height int) BinaryMask {
	return BinaryMask{
		Data:   make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the mask value at column x, row y
func (m BinaryMask) At(x, y int) uint8 {
	return m.Data[y*m.Width+x]
}

// Set stores a mask value at column x, row y
func (m BinaryMask) Set(x, y int, v uint8) {
	m.Data[y*m.Width+x] = v
}

// Count returns the number of pixels set to 1
func (m BinaryMask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v == 1 {
			n++
		}
	}
	return n
}

// BoundingBox is an axis-aligned box in pixel space
type BoundingBox struct {
	X, Y, Width, Height int
}

// Rect converts the box to an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Point is a polygon vertex in pixel space
type Point struct {
	X, Y float64
}

// Polygon is a closed ring of vertices; the last vertex connects back to the first
type Polygon []Point

// Annotation holds the ground truth attached to one image
type Annotation struct {
	// ImageID identifies the annotated image in the catalog
	ImageID int

	// Segmentation lists the outline polygons of the fracture
	Segmentation []Polygon

	// Box is the fracture bounding box
	Box BoundingBox
}

// Sample is one image together with the masks derived from its annotation
type Sample struct {
	// Filename is the image file name used for catalog lookup
	Filename string

	// Image is the intensity channel at native resolution
	Image Image

	// Mask is the filled segmentation polygon
	Mask BinaryMask

	// Box is the filled bounding-box mask
	Box BinaryMask

	// BoundingBox is the raw annotation box
	BoundingBox BoundingBox

	// Patch is the image cropped around the box with a margin, clamped to the image
	Patch Image
}

// Package mask derives ground-truth masks from annotations and crops samples
// to the fixed square window the transform works on.
package mask

import (
	"image"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// PatchMargin is the number of pixels kept around the bounding box when cropping a patch
const PatchMargin = 10

// Build turns an annotation into a segmentation mask, a box mask and a patch
// cropped around the box. Box and patch are clamped to the image bounds.
func Build(filename string, img models.Image, ann models.Annotation) (models.Sample, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Data) != img.Width*img.Height {
		return models.Sample{}, faults.Shape("image %dx%d with %d pixels", img.Width, img.Height, len(img.Data))
	}
	if ann.Box.Width < 0 || ann.Box.Height < 0 {
		return models.Sample{}, faults.InvalidArgument("bounding box %+v has negative size", ann.Box)
	}

	segmentation := models.NewBinaryMask(img.Width, img.Height)
	if err := fillPolygons(segmentation, ann.Segmentation); err != nil {
		return models.Sample{}, err
	}

	return models.Sample{
		Filename:    filename,
		Image:       img,
		Mask:        segmentation,
		Box:         BoxMask(img.Width, img.Height, ann.Box),
		BoundingBox: ann.Box,
		Patch:       Crop(img, PatchRect(ann.Box, PatchMargin)),
	}, nil
}

// BoxMask fills the part of box that lies inside a width x height grid
func BoxMask(width, height int, box models.BoundingBox) models.BinaryMask {
	m := models.NewBinaryMask(width, height)
	r := box.Rect().Intersect(image.Rect(0, 0, width, height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, 1)
		}
	}
	return m
}

// PatchRect grows box by margin on every side
func PatchRect(box models.BoundingBox, margin int) image.Rectangle {
	return box.Rect().Inset(-margin)
}

// Crop copies the part of r that lies inside img. A rectangle entirely
// outside the image yields an empty image.
func Crop(img models.Image, r image.Rectangle) models.Image {
	r = r.Intersect(img.Bounds())
	out := models.NewImage(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := (r.Min.Y+y)*img.Width + r.Min.X
		copy(out.Data[y*out.Width:(y+1)*out.Width], img.Data[src:src+out.Width])
	}
	return out
}

// CropMask copies the part of r that lies inside m
func CropMask(m models.BinaryMask, r image.Rectangle) models.BinaryMask {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	out := models.NewBinaryMask(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := (r.Min.Y+y)*m.Width + r.Min.X
		copy(out.Data[y*out.Width:(y+1)*out.Width], m.Data[src:src+out.Width])
	}
	return out
}

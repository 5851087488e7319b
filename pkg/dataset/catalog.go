// Package dataset reads a COCO-style fracture annotation catalog and loads the
// referenced X-ray images.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// MatchField selects the annotation field compared against an image id
type MatchField string

const (
	// MatchImageID compares annotation.image_id with the image id
	MatchImageID MatchField = "image_id"

	// MatchAnnotationID compares annotation.id with the image id
	MatchAnnotationID MatchField = "id"
)

// ImageInfo is the catalog entry of one image
type ImageInfo struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type annotationRecord struct {
	ID           int             `json:"id"`
	ImageID      int             `json:"image_id"`
	Segmentation json.RawMessage `json:"segmentation"`
	BBox         []float64       `json:"bbox"`
}

type cocoFile struct {
	Images      []ImageInfo        `json:"images"`
	Annotations []annotationRecord `json:"annotations"`
}

// Catalog answers image and annotation lookups. When several records share a
// key the first one in file order wins; Duplicates reports how often that happened.
type Catalog struct {
	match       MatchField
	images      map[string]ImageInfo
	annotations map[int]annotationRecord
	duplicates  int
}

// LoadCatalog reads a COCO JSON file
func LoadCatalog(path string, match MatchField) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading annotation catalog")
	}
	return ParseCatalog(data, match)
}

// ParseCatalog decodes COCO JSON bytes
func ParseCatalog(data []byte, match MatchField) (*Catalog, error) {
	switch match {
	case MatchImageID, MatchAnnotationID:
	default:
		return nil, faults.InvalidArgument("unsupported annotation match field %q", match)
	}

	var file cocoFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decoding annotation catalog")
	}

	c := &Catalog{
		match:       match,
		images:      make(map[string]ImageInfo, len(file.Images)),
		annotations: make(map[int]annotationRecord, len(file.Annotations)),
	}
	for _, img := range file.Images {
		if _, ok := c.images[img.FileName]; ok {
			c.duplicates++
			continue
		}
		c.images[img.FileName] = img
	}
	for _, ann := range file.Annotations {
		key := ann.ImageID
		if match == MatchAnnotationID {
			key = ann.ID
		}
		if _, ok := c.annotations[key]; ok {
			c.duplicates++
			continue
		}
		c.annotations[key] = ann
	}
	return c, nil
}

// Len returns the number of distinct images
func (c *Catalog) Len() int {
	return len(c.images)
}

// Duplicates returns how many records were shadowed by an earlier one with the same key
func (c *Catalog) Duplicates() int {
	return c.duplicates
}

// LookupImage finds an image by file name
func (c *Catalog) LookupImage(filename string) (ImageInfo, error) {
	img, ok := c.images[filename]
	if !ok {
		return ImageInfo{}, faults.NotFound("image %q not in catalog", filename)
	}
	return img, nil
}

// LookupAnnotation finds the annotation attached to an image id
func (c *Catalog) LookupAnnotation(imageID int) (models.Annotation, error) {
	rec, ok := c.annotations[imageID]
	if !ok {
		return models.Annotation{}, faults.NotFound("no annotation with %s %d", c.match, imageID)
	}

	polygons, err := parseSegmentation(rec.Segmentation)
	if err != nil {
		return models.Annotation{}, errors.Wrapf(err, "annotation %d", rec.ID)
	}
	if len(rec.BBox) != 4 {
		return models.Annotation{}, faults.InvalidArgument("annotation %d: bbox has %d values, want 4", rec.ID, len(rec.BBox))
	}

	return models.Annotation{
		ImageID:      imageID,
		Segmentation: polygons,
		Box: models.BoundingBox{
			X:      int(rec.BBox[0]),
			Y:      int(rec.BBox[1]),
			Width:  int(rec.BBox[2]),
			Height: int(rec.BBox[3]),
		},
	}, nil
}

// parseSegmentation accepts either a list of flat polygons or a single flat polygon
func parseSegmentation(raw json.RawMessage) ([]models.Polygon, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rings [][]float64
	if err := json.Unmarshal(raw, &rings); err != nil {
		var flat []float64
		if errFlat := json.Unmarshal(raw, &flat); errFlat != nil {
			return nil, faults.InvalidArgument("segmentation is not a polygon list: %v", err)
		}
		rings = [][]float64{flat}
	}

	polygons := make([]models.Polygon, 0, len(rings))
	for i, ring := range rings {
		if len(ring)%2 != 0 {
			return nil, faults.InvalidArgument("polygon %d has an odd number of coordinates (%d)", i, len(ring))
		}
		poly := make(models.Polygon, len(ring)/2)
		for j := range poly {
			poly[j] = models.Point{X: ring[2*j], Y: ring[2*j+1]}
		}
		polygons = append(polygons, poly)
	}
	return polygons, nil
}

// String summarises the catalog
func (c *Catalog) String() string {
	return fmt.Sprintf("catalog{images=%d annotations=%d match=%s duplicates=%d}",
		len(c.images), len(c.annotations), c.match, c.duplicates)
}

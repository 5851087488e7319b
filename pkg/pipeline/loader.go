package pipeline

import (
	"github.com/pkg/errors"

	"fracturemask/internal/models"
	"fracturemask/pkg/dataset"
	"fracturemask/pkg/faults"
	"fracturemask/pkg/mask"
)

// Loader resolves file names to annotated samples
type Loader struct {
	catalog *dataset.Catalog
	path    func(filename string) string
	channel int
}

// NewLoader reads images through path, which maps a catalog file name to a file on disk
func NewLoader(catalog *dataset.Catalog, path func(filename string) string, channel int) *Loader {
	return &Loader{catalog: catalog, path: path, channel: channel}
}

// Load reads one image, finds its annotation and builds the ground-truth masks
func (l *Loader) Load(filename string) (models.Sample, error) {
	info, err := l.catalog.LookupImage(filename)
	if err != nil {
		return models.Sample{}, err
	}

	img, err := dataset.LoadChannel(l.path(filename), l.channel)
	if err != nil {
		return models.Sample{}, errors.Wrapf(err, "loading %s", filename)
	}
	if info.Width > 0 && info.Height > 0 && (img.Width != info.Width || img.Height != info.Height) {
		return models.Sample{}, faults.Shape("%s is %dx%d, catalog says %dx%d",
			filename, img.Width, img.Height, info.Width, info.Height)
	}

	ann, err := l.catalog.LookupAnnotation(info.ID)
	if err != nil {
		return models.Sample{}, errors.Wrapf(err, "annotation for %s", filename)
	}

	sample, err := mask.Build(filename, img, ann)
	if err != nil {
		return models.Sample{}, errors.Wrapf(err, "building masks for %s", filename)
	}
	return sample, nil
}

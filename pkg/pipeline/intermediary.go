package pipeline

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"fracturemask/pkg/visualization"
)

// saveIntermediaryResults writes the stage images of the last run. Failures
// are logged and do not abort the evaluation.
func (e *Evaluator) saveIntermediaryResults() {
	dir := filepath.Join(e.params.IntermediaryDir, stem(e.canonical.Filename))
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.log.Error(component, errors.Wrap(err, "creating intermediary directory"), nil)
		return
	}

	stages := []struct {
		name  string
		image func() (image.Image, error)
	}{
		{"01_canonical", func() (image.Image, error) {
			return visualization.NewViewer(e.canonical.Image).Grayscale(), nil
		}},
		{"02_truth_mask", func() (image.Image, error) {
			return visualization.Mask(e.canonical.Mask), nil
		}},
		{"03_edges", func() (image.Image, error) {
			info, err := e.transform.DetectEdges(e.coefficients)
			if err != nil {
				return nil, err
			}
			return visualization.NewViewer(info.Edges).Grayscale(), nil
		}},
		{"04_reconstruction", func() (image.Image, error) {
			return visualization.NewViewer(e.reconstruction).Grayscale(), nil
		}},
		{"05_binarized", func() (image.Image, error) {
			return visualization.Mask(e.detected), nil
		}},
		{"06_overlay", func() (image.Image, error) {
			return visualization.NewViewer(e.canonical.Image).Overlay(e.detected, e.canonical.Mask, e.metrics.Segmentation.String())
		}},
	}

	for _, stage := range stages {
		if err := e.saveIntermediaryResult(dir, stage.name, stage.image); err != nil {
			e.log.Warning(component, "failed to save intermediary result", map[string]interface{}{
				"stage": stage.name, "error": err.Error(),
			})
		}
	}
	e.log.Debug(component, "intermediary results saved", map[string]interface{}{"dir": dir})
}

func (e *Evaluator) saveIntermediaryResult(dir, stage string, render func() (image.Image, error)) error {
	img, err := render()
	if err != nil {
		return err
	}
	return visualization.SavePNG(img, filepath.Join(dir, stage+".png"))
}

func stem(filename string) string {
	base := filepath.Base(filename)
	if s := strings.TrimSuffix(base, filepath.Ext(base)); s != "" && s != "." {
		return s
	}
	return "sample"
}

package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fracturemask/internal/logger"
	"fracturemask/internal/models"
	"fracturemask/pkg/config"
	"fracturemask/pkg/dataset"
	"fracturemask/pkg/faults"
	"fracturemask/pkg/mask"
	"fracturemask/pkg/threshold"
)

func testParams() *Params {
	return &Params{
		Side:               32,
		Scales:             3,
		Angles:             4,
		Workers:            2,
		Mode:               threshold.Soft,
		LowerPercentile:    80,
		BinarizePercentile: 95,
	}
}

// squareSample is a 40x40 dark image with a bright annotated square at (10,10)-(19,19)
func squareSample(t *testing.T) models.Sample {
	img := models.NewImage(40, 40)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := 20.0
			if x >= 10 && x < 20 && y >= 10 && y < 20 {
				v = 200
			}
			img.Set(x, y, v)
		}
	}

	ann := models.Annotation{
		ImageID:      1,
		Segmentation: []models.Polygon{{{X: 10, Y: 10}, {X: 19, Y: 10}, {X: 19, Y: 19}, {X: 10, Y: 19}}},
		Box:          models.BoundingBox{X: 10, Y: 10, Width: 10, Height: 10},
	}
	s, err := mask.Build("square.png", img, ann)
	require.NoError(t, err)
	return s
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	params, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, threshold.Soft, params.Mode)
	assert.Equal(t, 352, params.Side)
	assert.Equal(t, 95.0, params.BinarizePercentile)

	cfg.Threshold.Mode = "median"
	_, err = ParamsFromConfig(cfg)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestNewEvaluatorRejectsBadParams(t *testing.T) {
	_, err := NewEvaluator(nil, nil)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))

	params := testParams()
	params.Angles = 3
	_, err = NewEvaluator(params, nil)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestProcessSquare(t *testing.T) {
	e, err := NewEvaluator(testParams(), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, e.Process(squareSample(t)))

	m := e.GetMetrics()
	assert.True(t, m.Segmentation.Defined)
	assert.GreaterOrEqual(t, m.Segmentation.IoU, 0.0)
	assert.LessOrEqual(t, m.Segmentation.IoU, 1.0)
	assert.Equal(t, 100, m.Segmentation.ReferencePixels)
	assert.Equal(t, 100, m.Segmentation.Intersection+m.Segmentation.FalseNegatives)
	assert.Equal(t, 100, m.Box.ReferencePixels)
	assert.Equal(t, m.Segmentation.CandidatePixels, m.Box.CandidatePixels)

	assert.True(t, math.IsInf(m.Bounds.Max, 1))
	assert.Greater(t, m.Bounds.Min, 0.0)
	assert.Greater(t, m.Coefficients, 0)
	assert.Greater(t, m.Retained, 0)
	assert.Less(t, m.Retained, m.Coefficients)
	assert.Greater(t, m.MagnitudeMean, 0.0)
	assert.Greater(t, m.Fidelity.RMSE, 0.0)

	// the cut sits at the 95th percentile so at most 5% of the window is detected
	assert.LessOrEqual(t, e.Detected().Count(), 32*32*5/100+1)
	assert.Equal(t, 32, e.Reconstruction().Width)
	assert.Equal(t, 32, e.Canonical().Image.Height)

	original, thresholded := e.Coefficients()
	require.NotNil(t, original)
	require.NoError(t, original.SameShape(thresholded))
	assert.Contains(t, m.Summary(), "segmentation: IoU=")
}

func TestProcessIsRepeatable(t *testing.T) {
	e, err := NewEvaluator(testParams(), nil)
	require.NoError(t, err)

	sample := squareSample(t)
	require.NoError(t, e.Process(sample))
	first := e.GetMetrics()
	require.NoError(t, e.Process(sample))
	second := e.GetMetrics()

	assert.Equal(t, first.Segmentation, second.Segmentation)
	assert.Equal(t, first.Bounds, second.Bounds)
	assert.Equal(t, first.Retained, second.Retained)
}

func TestProcessHardWithUpperBound(t *testing.T) {
	params := testParams()
	params.Mode = threshold.Hard
	params.LowerPercentile = 50
	params.UpperPercentile = 99

	e, err := NewEvaluator(params, nil)
	require.NoError(t, err)
	require.NoError(t, e.Process(squareSample(t)))

	m := e.GetMetrics()
	assert.False(t, math.IsInf(m.Bounds.Max, 1))
	assert.Less(t, m.Bounds.Min, m.Bounds.Max)
	assert.Less(t, m.Retained, m.Coefficients)
}

func TestProcessUndefinedIoUIsWarning(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEvaluator(testParams(), logger.NewZerolog(&buf, zerolog.DebugLevel))
	require.NoError(t, err)

	// blank image, annotation outside the canonical window
	s, err := mask.Build("blank.png", models.NewImage(40, 40), models.Annotation{
		Box: models.BoundingBox{X: 35, Y: 35, Width: 4, Height: 4},
	})
	require.NoError(t, err)

	require.NoError(t, e.Process(s))
	m := e.GetMetrics()
	assert.False(t, m.Segmentation.Defined)
	assert.True(t, math.IsNaN(m.Segmentation.IoU))
	assert.False(t, m.Box.Defined)
	assert.Contains(t, buf.String(), "IoU undefined")
}

func TestProcessRejectsSmallImage(t *testing.T) {
	e, err := NewEvaluator(testParams(), nil)
	require.NoError(t, err)

	s, err := mask.Build("small.png", models.NewImage(16, 16), models.Annotation{})
	require.NoError(t, err)

	err = e.Process(s)
	assert.True(t, errors.Is(err, faults.ErrShape))
}

func TestFailedProcessClearsPreviousRun(t *testing.T) {
	e, err := NewEvaluator(testParams(), nil)
	require.NoError(t, err)
	require.NoError(t, e.Process(squareSample(t)))
	require.NotNil(t, e.Reconstruction().Data)

	s, err := mask.Build("small.png", models.NewImage(16, 16), models.Annotation{})
	require.NoError(t, err)
	require.Error(t, e.Process(s))

	original, thresholded := e.Coefficients()
	assert.Nil(t, original)
	assert.Nil(t, thresholded)
	assert.Empty(t, e.Canonical().Filename)
	assert.Empty(t, e.Canonical().Image.Data)
	assert.Empty(t, e.Reconstruction().Data)
	assert.Empty(t, e.Detected().Data)
	assert.Equal(t, Metrics{}, e.GetMetrics())
}

func TestSaveIntermediaryResults(t *testing.T) {
	params := testParams()
	params.SaveIntermediaryResults = true
	params.IntermediaryDir = t.TempDir()

	e, err := NewEvaluator(params, nil)
	require.NoError(t, err)
	require.NoError(t, e.Process(squareSample(t)))

	for _, stage := range []string{"01_canonical", "02_truth_mask", "03_edges", "04_reconstruction", "05_binarized", "06_overlay"} {
		path := filepath.Join(params.IntermediaryDir, "square", stage+".png")
		f, err := os.Open(path)
		require.NoError(t, err, stage)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err, stage)
		assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds(), stage)
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "IMG0000019", stem("IMG0000019.jpg"))
	assert.Equal(t, "IMG", stem(filepath.Join("a", "IMG.png")))
	assert.Equal(t, "sample", stem(""))
}

func writeSquarePNG(t *testing.T, path string, w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(20)
			if x >= 10 && x < 20 && y >= 10 && y < 20 {
				v = 200
			}
			img.Set(x, y, color.RGBA{R: v, G: 0, B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestLoaderEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeSquarePNG(t, filepath.Join(dir, "square.png"), 40, 40)

	catalog, err := dataset.ParseCatalog([]byte(`{
  "images": [{"id": 3, "file_name": "square.png", "width": 40, "height": 40},
             {"id": 4, "file_name": "wrong.png", "width": 10, "height": 10}],
  "annotations": [{"id": 1, "image_id": 3, "segmentation": [[10, 10, 19, 10, 19, 19, 10, 19]], "bbox": [10, 10, 10, 10]}]
}`), dataset.MatchImageID)
	require.NoError(t, err)

	loader := NewLoader(catalog, func(name string) string { return filepath.Join(dir, name) }, 0)
	sample, err := loader.Load("square.png")
	require.NoError(t, err)
	assert.Equal(t, 100, sample.Mask.Count())
	assert.Equal(t, 200.0, sample.Image.At(15, 15))

	e, err := NewEvaluator(testParams(), nil)
	require.NoError(t, err)
	require.NoError(t, e.Process(sample))
	assert.True(t, e.GetMetrics().Segmentation.Defined)

	_, err = loader.Load("absent.png")
	assert.True(t, errors.Is(err, faults.ErrNotFound))

	writeSquarePNG(t, filepath.Join(dir, "wrong.png"), 40, 40)
	_, err = loader.Load("wrong.png")
	assert.True(t, errors.Is(err, faults.ErrShape), fmt.Sprint(err))
}

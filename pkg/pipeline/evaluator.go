// Package pipeline runs the fracture localization evaluation for one sample:
// canonicalize, decompose, threshold the coefficients, reconstruct, binarize
// and score the result against the ground-truth masks.
package pipeline

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"fracturemask/internal/logger"
	"fracturemask/internal/models"
	"fracturemask/pkg/coeffs"
	"fracturemask/pkg/config"
	"fracturemask/pkg/evaluation"
	"fracturemask/pkg/faults"
	"fracturemask/pkg/mask"
	"fracturemask/pkg/shearlet"
	"fracturemask/pkg/threshold"
)

const component = "pipeline"

// Params holds the evaluation parameters.
type Params struct {
	// Side is the canonical square window side length
	Side int

	// Scales, Angles and Workers configure the transform
	Scales  int
	Angles  int
	Workers int

	// Mode selects hard or soft coefficient suppression
	Mode threshold.Mode

	// LowerPercentile and UpperPercentile select the magnitude band;
	// an UpperPercentile of 0 leaves the band open above
	LowerPercentile float64
	UpperPercentile float64

	// BinarizePercentile is the intensity percentile used to binarize the reconstruction
	BinarizePercentile float64

	// SaveIntermediaryResults writes stage images to IntermediaryDir
	SaveIntermediaryResults bool
	IntermediaryDir         string
}

// ParamsFromConfig converts a loaded configuration
func ParamsFromConfig(cfg *config.Config) (*Params, error) {
	mode, err := threshold.ParseMode(cfg.Threshold.Mode)
	if err != nil {
		return nil, err
	}
	return &Params{
		Side:                    cfg.Canonical.Side,
		Scales:                  cfg.Transform.Scales,
		Angles:                  cfg.Transform.Angles,
		Workers:                 cfg.Transform.Workers,
		Mode:                    mode,
		LowerPercentile:         cfg.Threshold.LowerPercentile,
		UpperPercentile:         cfg.Threshold.UpperPercentile,
		BinarizePercentile:      cfg.Binarize.Percentile,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
	}, nil
}

// Metrics collects everything measured for one sample
type Metrics struct {
	// Segmentation scores the binarized reconstruction against the polygon mask
	Segmentation evaluation.Result

	// Box scores the binarized reconstruction against the bounding-box mask
	Box evaluation.Result

	// Fidelity compares the reconstruction with the canonical image
	Fidelity evaluation.Fidelity

	// Bounds is the coefficient magnitude band that was applied
	Bounds threshold.Bounds

	// BinarizeCut is the intensity above which reconstructed pixels are detections
	BinarizeCut float64

	// Coefficients is the size of the coefficient tree; Retained counts non-zero survivors
	Coefficients int
	Retained     int

	// MagnitudeMean and MagnitudeStdDev summarise the coefficient magnitudes before thresholding
	MagnitudeMean   float64
	MagnitudeStdDev float64

	// Elapsed is the wall time of Process
	Elapsed time.Duration
}

// Evaluator runs the pipeline. One evaluator can process many samples of
// the same canonical size one after another; it is not safe for concurrent use.
type Evaluator struct {
	params    *Params
	log       logger.Logger
	transform *shearlet.Transform

	canonical      models.Sample
	coefficients   *coeffs.Tree
	thresholded    *coeffs.Tree
	reconstruction models.Image
	detected       models.BinaryMask
	metrics        Metrics
}

// NewEvaluator builds the transform for the canonical window
func NewEvaluator(params *Params, log logger.Logger) (*Evaluator, error) {
	if params == nil {
		return nil, faults.InvalidArgument("missing pipeline params")
	}
	if log == nil {
		log = logger.NewNop()
	}

	transform, err := shearlet.NewTransform(shearlet.Params{
		Rows:    params.Side,
		Cols:    params.Side,
		Scales:  params.Scales,
		Angles:  params.Angles,
		Workers: params.Workers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building transform")
	}

	return &Evaluator{params: params, log: log, transform: transform}, nil
}

// Process evaluates one sample as produced by the mask builder
func (e *Evaluator) Process(sample models.Sample) error {
	start := time.Now()
	e.reset()

	// Step 1: canonical window
	canonical, err := mask.Canonicalize(sample, e.params.Side)
	if err != nil {
		return errors.Wrapf(err, "canonicalizing %s", sample.Filename)
	}
	e.canonical = canonical
	e.log.Debug(component, "canonicalized", map[string]interface{}{
		"file": sample.Filename, "side": e.params.Side, "truthPixels": canonical.Mask.Count(),
	})

	// Step 2: decomposition
	tree, err := e.transform.Decompose(canonical.Image)
	if err != nil {
		return errors.Wrap(err, "decomposing image")
	}
	e.coefficients = tree
	e.metrics.Coefficients = tree.Size()

	mags := tree.Magnitudes(nil)
	e.metrics.MagnitudeMean, e.metrics.MagnitudeStdDev = stat.MeanStdDev(mags, nil)

	// Step 3: threshold selection and suppression
	bounds, err := threshold.SelectBounds(tree, e.params.LowerPercentile, e.params.UpperPercentile)
	if err != nil {
		return errors.Wrap(err, "selecting thresholds")
	}
	e.metrics.Bounds = bounds

	thresholded, err := threshold.Apply(tree, bounds, e.params.Mode)
	if err != nil {
		return errors.Wrap(err, "thresholding coefficients")
	}
	e.thresholded = thresholded
	e.metrics.Retained = thresholded.NonZero()
	e.log.Info(component, "coefficients thresholded", map[string]interface{}{
		"mode": e.params.Mode, "tMin": bounds.Min, "tMax": bounds.Max,
		"total": e.metrics.Coefficients, "retained": e.metrics.Retained,
	})

	// Step 4: reconstruction
	rec, err := e.transform.Reconstruct(thresholded)
	if err != nil {
		return errors.Wrap(err, "reconstructing image")
	}
	e.reconstruction = rec

	e.metrics.Fidelity, err = evaluation.CompareImages(canonical.Image, rec)
	if err != nil {
		return errors.Wrap(err, "measuring reconstruction fidelity")
	}

	// Step 5: binarization
	detected, cut, err := threshold.Binarize(rec, e.params.BinarizePercentile)
	if err != nil {
		return errors.Wrap(err, "binarizing reconstruction")
	}
	e.detected = detected
	e.metrics.BinarizeCut = cut

	// Step 6: scoring
	if e.metrics.Segmentation, err = e.score(detected, canonical.Mask, "segmentation"); err != nil {
		return err
	}
	if e.metrics.Box, err = e.score(detected, canonical.Box, "box"); err != nil {
		return err
	}

	if e.params.SaveIntermediaryResults {
		e.saveIntermediaryResults()
	}

	e.metrics.Elapsed = time.Since(start)
	e.log.Info(component, "sample evaluated", map[string]interface{}{
		"file":         sample.Filename,
		"segmentation": e.metrics.Segmentation.String(),
		"box":          e.metrics.Box.String(),
		"elapsed":      e.metrics.Elapsed.String(),
	})
	return nil
}

// score compares the detection with a reference mask. An empty union is
// reported as a warning and leaves the result marked undefined.
func (e *Evaluator) score(detected, reference models.BinaryMask, name string) (evaluation.Result, error) {
	res, err := evaluation.Compare(detected, reference)
	if errors.Is(err, faults.ErrUndefinedMetric) {
		e.log.Warning(component, "IoU undefined", map[string]interface{}{"reference": name})
		return res, nil
	}
	if err != nil {
		return res, errors.Wrapf(err, "scoring against %s mask", name)
	}
	return res, nil
}

// reset clears everything left over from the previous sample
func (e *Evaluator) reset() {
	e.canonical = models.Sample{}
	e.coefficients = nil
	e.thresholded = nil
	e.reconstruction = models.Image{}
	e.detected = models.BinaryMask{}
	e.metrics = Metrics{}
}

// GetMetrics returns the metrics of the last processed sample
func (e *Evaluator) GetMetrics() Metrics {
	return e.metrics
}

// Canonical returns the canonicalized sample of the last run
func (e *Evaluator) Canonical() models.Sample {
	return e.canonical
}

// Reconstruction returns the image reconstructed from the thresholded coefficients
func (e *Evaluator) Reconstruction() models.Image {
	return e.reconstruction
}

// Detected returns the binarized reconstruction
func (e *Evaluator) Detected() models.BinaryMask {
	return e.detected
}

// Coefficients returns the unthresholded and thresholded trees of the last run
func (e *Evaluator) Coefficients() (original, thresholded *coeffs.Tree) {
	return e.coefficients, e.thresholded
}

// Summary formats the metrics as a short report
func (m Metrics) Summary() string {
	return fmt.Sprintf(
		"segmentation: %s\nbox:          %s\nthreshold:    [%.4f, %.4f) retained %d/%d coefficients\nbinarize cut: %.4f\nfidelity:     RMSE=%.4f SSIM=%.4f",
		m.Segmentation, m.Box, m.Bounds.Min, m.Bounds.Max, m.Retained, m.Coefficients,
		m.BinarizeCut, m.Fidelity.RMSE, m.Fidelity.SSIM)
}

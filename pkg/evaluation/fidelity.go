package evaluation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fracturemask/internal/models"
	"fracturemask/pkg/faults"
)

// Fidelity summarises how close a reconstruction is to its source image
type Fidelity struct {
	// RMSE is the root mean square intensity error
	RMSE float64

	// SSIM is the global structural similarity index over the whole image
	SSIM float64
}

// CompareImages measures reconstruction fidelity between two images of equal shape
func CompareImages(original, reconstructed models.Image) (Fidelity, error) {
	if original.Width != reconstructed.Width || original.Height != reconstructed.Height ||
		len(original.Data) != len(reconstructed.Data) {
		return Fidelity{}, faults.Shape("image %dx%d vs %dx%d",
			original.Width, original.Height, reconstructed.Width, reconstructed.Height)
	}
	if len(original.Data) == 0 {
		return Fidelity{}, faults.EmptyInput("fidelity of empty images")
	}

	return Fidelity{
		RMSE: calculateRMSE(original.Data, reconstructed.Data),
		SSIM: calculateSSIM(original.Data, reconstructed.Data),
	}, nil
}

// calculateRMSE computes the root mean square error
func calculateRMSE(original, reconstructed []float64) float64 {
	return floats.Distance(original, reconstructed, 2) / math.Sqrt(float64(len(original)))
}

// calculateSSIM computes a single-window structural similarity index.
// The dynamic range is taken from the original image.
func calculateSSIM(original, reconstructed []float64) float64 {
	const k1 = 0.01
	const k2 = 0.03

	l := floats.Max(original) - floats.Min(original)
	if l == 0 {
		l = 1
	}
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muX := stat.Mean(original, nil)
	muY := stat.Mean(reconstructed, nil)

	sigmaX := stat.Variance(original, nil)
	sigmaY := stat.Variance(reconstructed, nil)
	sigmaXY := stat.Covariance(original, reconstructed, nil)
	if len(original) < 2 {
		sigmaX, sigmaY, sigmaXY = 0, 0, 0
	}

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	return num / den
}

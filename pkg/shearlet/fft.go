package shearlet

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// plan performs 2D FFTs on row-major complex grids of a fixed shape.
// A plan owns scratch buffers and must not be shared between goroutines.
type plan struct {
	rows, cols int
	rowFFT     *fourier.CmplxFFT
	colFFT     *fourier.CmplxFFT
	rowBuf     []complex128
	colIn      []complex128
	colOut     []complex128
}

func newPlan(rows, cols int) *plan {
	return &plan{
		rows:   rows,
		cols:   cols,
		rowFFT: fourier.NewCmplxFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		rowBuf: make([]complex128, cols),
		colIn:  make([]complex128, rows),
		colOut: make([]complex128, rows),
	}
}

// forward replaces data with its unnormalized 2D DFT
func (p *plan) forward(data []complex128) {
	p.separable(data, (*fourier.CmplxFFT).Coefficients)
}

// inverse replaces data with its normalized inverse 2D DFT.
// gonum's Sequence is unnormalized, so the result is divided by rows*cols.
func (p *plan) inverse(data []complex128) {
	p.separable(data, (*fourier.CmplxFFT).Sequence)

	scale := complex(1/float64(p.rows*p.cols), 0)
	for i := range data {
		data[i] *= scale
	}
}

// separable applies a 1D transform to every row and then every column
func (p *plan) separable(data []complex128, step func(*fourier.CmplxFFT, []complex128, []complex128) []complex128) {
	// Row-wise transform
	for i := 0; i < p.rows; i++ {
		row := data[i*p.cols : (i+1)*p.cols]
		step(p.rowFFT, p.rowBuf, row)
		copy(row, p.rowBuf)
	}

	// Column-wise transform
	for j := 0; j < p.cols; j++ {
		for i := 0; i < p.rows; i++ {
			p.colIn[i] = data[i*p.cols+j]
		}
		step(p.colFFT, p.colOut, p.colIn)
		for i := 0; i < p.rows; i++ {
			data[i*p.cols+j] = p.colOut[i]
		}
	}
}

// fft2D returns the 2D DFT of a real image
func (p *plan) fft2D(data []float64) []complex128 {
	out := make([]complex128, len(data))
	for i, v := range data {
		out[i] = complex(v, 0)
	}
	p.forward(out)
	return out
}

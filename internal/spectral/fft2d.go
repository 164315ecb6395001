// Package spectral implements the 2D discrete Fourier transform over single
// H×W image planes, along with the index shuffles (fftshift/ifftshift) and
// sample frequencies needed to build frequency-domain masks.
//
// Transforms follow the usual convention: the forward transform is
// unnormalized and the inverse divides by H*W, so Inverse(Forward(x)) == x up
// to floating point error.
package spectral

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan performs 2D transforms on row-major H×W planes. A Plan holds scratch
// state and must not be shared between goroutines.
type Plan struct {
	h, w int
	hFFT *fourier.CmplxFFT // length h, runs down columns
	wFFT *fourier.CmplxFFT // length w, runs along rows
	col  []complex128
}

// NewPlan returns a plan for planes of h rows and w columns.
func NewPlan(h, w int) *Plan {
	if h <= 0 || w <= 0 {
		panic(fmt.Sprintf("spectral: invalid plane size %dx%d", h, w))
	}
	return &Plan{
		h:    h,
		w:    w,
		hFFT: fourier.NewCmplxFFT(h),
		wFFT: fourier.NewCmplxFFT(w),
		col:  make([]complex128, h),
	}
}

// Size returns the plane dimensions.
func (p *Plan) Size() (h, w int) { return p.h, p.w }

// Len returns h*w.
func (p *Plan) Len() int { return p.h * p.w }

// Forward computes the unnormalized 2D DFT of src into dst. dst and src may
// be the same slice.
func (p *Plan) Forward(dst, src []complex128) {
	p.transform(dst, src, true)
}

// Inverse computes the inverse 2D DFT of src into dst, scaled by 1/(h*w).
func (p *Plan) Inverse(dst, src []complex128) {
	p.transform(dst, src, false)
	scale := complex(1/float64(p.h*p.w), 0)
	for i := range dst {
		dst[i] *= scale
	}
}

// ForwardReal loads a real plane into dst and transforms it in place.
func (p *Plan) ForwardReal(dst []complex128, src []float32) {
	p.checkLen(len(src))
	for i, v := range src {
		dst[i] = complex(float64(v), 0)
	}
	p.Forward(dst, dst)
}

// InverseReal inverts spec and writes the real part into dst.
// spec is used as scratch and is overwritten.
func (p *Plan) InverseReal(dst []float32, spec []complex128) {
	p.checkLen(len(dst))
	p.Inverse(spec, spec)
	for i := range dst {
		dst[i] = float32(real(spec[i]))
	}
}

func (p *Plan) transform(dst, src []complex128, forward bool) {
	p.checkLen(len(src))
	p.checkLen(len(dst))
	if &dst[0] != &src[0] {
		copy(dst, src)
	}

	// rows
	for y := 0; y < p.h; y++ {
		row := dst[y*p.w : (y+1)*p.w]
		if forward {
			p.wFFT.Coefficients(row, row)
		} else {
			p.wFFT.Sequence(row, row)
		}
	}

	// cols
	for x := 0; x < p.w; x++ {
		for y := 0; y < p.h; y++ {
			p.col[y] = dst[y*p.w+x]
		}
		if forward {
			p.hFFT.Coefficients(p.col, p.col)
		} else {
			p.hFFT.Sequence(p.col, p.col)
		}
		for y := 0; y < p.h; y++ {
			dst[y*p.w+x] = p.col[y]
		}
	}
}

func (p *Plan) checkLen(n int) {
	if n != p.h*p.w {
		panic(fmt.Sprintf("spectral: plane length %d != %dx%d", n, p.h, p.w))
	}
}

// Shift reorders src so the zero frequency sits at (h/2, w/2), writing into
// dst. dst and src must not alias.
func (p *Plan) Shift(dst, src []complex128) {
	p.checkLen(len(src))
	p.checkLen(len(dst))
	for y := 0; y < p.h; y++ {
		sy := p.hFFT.ShiftIdx(y) * p.w
		for x := 0; x < p.w; x++ {
			dst[y*p.w+x] = src[sy+p.wFFT.ShiftIdx(x)]
		}
	}
}

// Unshift undoes Shift. dst and src must not alias.
func (p *Plan) Unshift(dst, src []complex128) {
	p.checkLen(len(src))
	p.checkLen(len(dst))
	for y := 0; y < p.h; y++ {
		sy := p.hFFT.UnshiftIdx(y) * p.w
		for x := 0; x < p.w; x++ {
			dst[y*p.w+x] = src[sy+p.wFFT.UnshiftIdx(x)]
		}
	}
}

// RowFreq returns the sample frequencies along the height axis, in cycles per
// sample and in unshifted order: 0, 1/h, ..., -1/h.
func (p *Plan) RowFreq() []float64 { return freqs(p.hFFT) }

// ColFreq returns the sample frequencies along the width axis.
func (p *Plan) ColFreq() []float64 { return freqs(p.wFFT) }

func freqs(f *fourier.CmplxFFT) []float64 {
	out := make([]float64, f.Len())
	for i := range out {
		out[i] = f.Freq(i)
	}
	return out
}

// Freq returns the sample frequencies for a length-n transform.
func Freq(n int) []float64 {
	return freqs(fourier.NewCmplxFFT(n))
}

// Amplitude writes |spec[i]| into dst.
func Amplitude(dst []float64, spec []complex128) {
	for i, v := range spec {
		dst[i] = cmplx.Abs(v)
	}
}

// WithAmplitude replaces the modulus of every coefficient in spec with amp,
// keeping its phase. A zero coefficient is treated as phase 0.
func WithAmplitude(spec []complex128, amp []float64) {
	for i, v := range spec {
		spec[i] = cmplx.Rect(amp[i], cmplx.Phase(v))
	}
}

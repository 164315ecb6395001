package augment

import (
	"math"

	"github.com/MeKo-Tech/freqaug/internal/mempool"
	"github.com/MeKo-Tech/freqaug/internal/spectral"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// FrequencyMask marks which coefficients of an H×W spectrum survive.
// Centered masks index the fftshift-ed spectrum; otherwise the mask uses
// the natural FFT ordering.
type FrequencyMask struct {
	H, W     int
	Keep     []bool
	Centered bool
}

// Suppressed counts the coefficients the mask zeroes.
func (m FrequencyMask) Suppressed() int {
	n := 0
	for _, k := range m.Keep {
		if !k {
			n++
		}
	}
	return n
}

// RingMask keeps everything except the ring r1 <= d <= r2, where d is the
// distance from the spectrum centre (h/2, w/2) and the radii are scaled by
// max(h, w).
func RingMask(h, w int, p RingParams) FrequencyMask {
	cy, cx := h/2, w/2
	side := float64(max(h, w))
	r1, r2 := side*p.R1, side*p.R2

	keep := make([]bool, h*w)
	for y := 0; y < h; y++ {
		dy := float64(y - cy)
		for x := 0; x < w; x++ {
			dx := float64(x - cx)
			d := math.Sqrt(dy*dy + dx*dx)
			inRing := d <= r2 && d >= r1
			keep[y*w+x] = !inRing
		}
	}
	return FrequencyMask{H: h, W: w, Keep: keep, Centered: true}
}

// SquareRingMask keeps everything except coefficients whose absolute row and
// column frequencies are both below High while not both below Low.
func SquareRingMask(h, w int, p BandParams) FrequencyMask {
	fy := spectral.Freq(h)
	fx := spectral.Freq(w)

	keep := make([]bool, h*w)
	for y := 0; y < h; y++ {
		ay := math.Abs(fy[y])
		for x := 0; x < w; x++ {
			ax := math.Abs(fx[x])
			inHigh := ay < p.High && ax < p.High
			inLow := ay < p.Low && ax < p.Low
			keep[y*w+x] = !(inHigh && !inLow)
		}
	}
	return FrequencyMask{H: h, W: w, Keep: keep}
}

// ApplyFrequencyMask filters every channel plane of x through m and returns a
// new batch. It never samples randomness.
func ApplyFrequencyMask(x *tensor.Batch, m FrequencyMask) (*tensor.Batch, error) {
	if err := checkBatch("mask", x); err != nil {
		return nil, err
	}
	if m.H != x.H() || m.W != x.W() || len(m.Keep) != m.H*m.W {
		return nil, &ShapeMismatchError{Op: "mask", Want: []int{m.H, m.W}, Got: x.Shape, Msg: "mask size does not match image plane"}
	}

	out := tensor.ZerosLike(x)
	plan := spectral.NewPlan(x.H(), x.W())
	spec := mempool.GetComplex(plan.Len())
	defer mempool.PutComplex(spec)
	var shifted []complex128
	if m.Centered {
		shifted = mempool.GetComplex(plan.Len())
		defer mempool.PutComplex(shifted)
	}

	for n := 0; n < x.N(); n++ {
		for c := 0; c < x.C(); c++ {
			plan.ForwardReal(spec, x.Plane(n, c))
			if m.Centered {
				plan.Shift(shifted, spec)
				applyKeep(shifted, m.Keep)
				plan.Unshift(spec, shifted)
			} else {
				applyKeep(spec, m.Keep)
			}
			plan.InverseReal(out.Plane(n, c), spec)
		}
	}
	return out, nil
}

func applyKeep(spec []complex128, keep []bool) {
	for i, k := range keep {
		if !k {
			spec[i] = 0
		}
	}
}

// ApplyRingMask suppresses the ring described by p in every channel.
func ApplyRingMask(x *tensor.Batch, p RingParams) (*tensor.Batch, error) {
	if err := checkBatch("mask-ring", x); err != nil {
		return nil, err
	}
	return ApplyFrequencyMask(x, RingMask(x.H(), x.W(), p))
}

// ApplyBandMask suppresses the square ring described by p. Channels are
// treated as 3-channel frames sharing one mask, so C must be a multiple of 3.
// The mask is constant along the frame axis, so filtering each channel plane
// gives the same result as filtering the grouped 3D spectrum.
func ApplyBandMask(x *tensor.Batch, p BandParams) (*tensor.Batch, error) {
	if err := checkBatch("mask-square", x); err != nil {
		return nil, err
	}
	if err := checkGroups("mask-square", x); err != nil {
		return nil, err
	}
	return ApplyFrequencyMask(x, SquareRingMask(x.H(), x.W(), p))
}

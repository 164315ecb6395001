package augment

import (
	"fmt"

	"github.com/MeKo-Tech/freqaug/internal/mempool"
	"github.com/MeKo-Tech/freqaug/internal/spectral"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// MixAmplitude blends the amplitude spectrum of each plane of x with a
// reference amplitude, keeping x's phase:
//
//	|out| = (1-k[n])·|X| + k[n]·A,  arg(out) = arg(X)
//
// A is |FFT(ref[n, c])| for Paired, or the mean over n of |FFT(ref[n, c])|
// for BatchMean. coeffs holds one coefficient per sample.
func MixAmplitude(x, ref *tensor.Batch, coeffs []float64, reference Reference) (*tensor.Batch, error) {
	if err := checkBatch("mix", x); err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, shapeErr("mix", x, nil)
	}
	if err := checkBatch("mix", ref); err != nil {
		return nil, err
	}
	if !x.SameShape(ref) {
		return nil, shapeErr("mix", x, ref)
	}
	if len(coeffs) != x.N() {
		return nil, &ShapeMismatchError{Op: "mix", Want: []int{x.N()}, Got: []int{len(coeffs)}, Msg: "one coefficient per sample required"}
	}
	if x.Device != ref.Device {
		return nil, &DeviceMismatchError{Op: "mix", Want: x.Device, Got: ref.Device}
	}

	n, c := x.N(), x.C()
	plan := spectral.NewPlan(x.H(), x.W())
	size := plan.Len()
	out := tensor.ZerosLike(x)

	scratch := mempool.GetComplexMultiple([]int{size, size})
	defer mempool.PutComplexMultiple(scratch)
	spec, refSpec := scratch[0], scratch[1]
	amp := mempool.GetFloat64(size)
	defer mempool.PutFloat64(amp)
	refAmp := mempool.GetFloat64(size)
	defer mempool.PutFloat64(refAmp)

	var meanAmp [][]float64
	switch reference {
	case Paired:
	case BatchMean:
		meanAmp = batchMeanAmplitude(plan, ref, refSpec, amp)
		defer func() {
			for _, m := range meanAmp {
				mempool.PutFloat64(m)
			}
		}()
	default:
		return nil, fmt.Errorf("mix: unknown reference %d: %w", reference, ErrUnsupportedVariant)
	}

	for i := 0; i < n; i++ {
		k := coeffs[i]
		for ch := 0; ch < c; ch++ {
			plan.ForwardReal(spec, x.Plane(i, ch))
			spectral.Amplitude(amp, spec)

			target := refAmp
			if reference == BatchMean {
				target = meanAmp[ch]
			} else {
				plan.ForwardReal(refSpec, ref.Plane(i, ch))
				spectral.Amplitude(refAmp, refSpec)
			}

			for j := range amp {
				amp[j] = (1-k)*amp[j] + k*target[j]
			}
			spectral.WithAmplitude(spec, amp)
			plan.InverseReal(out.Plane(i, ch), spec)
		}
	}
	return out, nil
}

// batchMeanAmplitude returns, per channel, the amplitude spectrum averaged
// over the batch axis.
func batchMeanAmplitude(plan *spectral.Plan, ref *tensor.Batch, spec []complex128, amp []float64) [][]float64 {
	n, c := ref.N(), ref.C()
	mean := make([][]float64, c)
	for ch := 0; ch < c; ch++ {
		acc := mempool.GetFloat64(plan.Len())
		for i := 0; i < n; i++ {
			plan.ForwardReal(spec, ref.Plane(i, ch))
			spectral.Amplitude(amp, spec)
			for j, v := range amp {
				acc[j] += v
			}
		}
		inv := 1 / float64(n)
		for j := range acc {
			acc[j] *= inv
		}
		mean[ch] = acc
	}
	return mean
}

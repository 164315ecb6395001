package augment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// OverlaySource supplies natural images for the overlay variant. Batch must
// return shape (n, 3, h, w) with values in [0, 1].
type OverlaySource interface {
	Batch(n, h, w int) (*tensor.Batch, error)
}

// overlay blends x (0..255) with a source batch (0..1), repeating the RGB
// source across every 3-channel frame of x.
func overlay(x *tensor.Batch, src OverlaySource) (*tensor.Batch, error) {
	if src == nil {
		return nil, ErrNoOverlaySource
	}
	if err := checkGroups("overlay", x); err != nil {
		return nil, err
	}
	imgs, err := src.Batch(x.N(), x.H(), x.W())
	if err != nil {
		return nil, fmt.Errorf("overlay: fetch batch: %w", err)
	}
	want := []int{x.N(), 3, x.H(), x.W()}
	if imgs == nil {
		return nil, &ShapeMismatchError{Op: "overlay", Want: want, Msg: "source returned no batch"}
	}
	if err := imgs.Verify(); err != nil || imgs.N() != want[0] || imgs.C() != 3 || imgs.H() != want[2] || imgs.W() != want[3] {
		return nil, &ShapeMismatchError{Op: "overlay", Want: want, Got: imgs.Shape}
	}

	out := tensor.ZerosLike(x)
	const a = OverlayAlpha
	for n := 0; n < x.N(); n++ {
		for c := 0; c < x.C(); c++ {
			src := imgs.Plane(n, c%3)
			in := x.Plane(n, c)
			dst := out.Plane(n, c)
			for i := range dst {
				dst[i] = float32(((1-a)*(float64(in[i])/255) + a*float64(src[i])) * 255)
			}
		}
	}
	return out, nil
}

// randomConv convolves each sample with its own random 3x3x3x3 kernel
// (replicate padding), then squashes through a sigmoid back to 0..255. All
// frames of one sample share the kernel.
func randomConv(x *tensor.Batch, rng *rand.Rand) (*tensor.Batch, error) {
	if err := checkGroups("conv", x); err != nil {
		return nil, err
	}
	h, w := x.H(), x.W()
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	out := tensor.ZerosLike(x)
	var weights [3][3][3][3]float64 // out, in, ky, kx

	for n := 0; n < x.N(); n++ {
		for o := range weights {
			for i := range weights[o] {
				for ky := range weights[o][i] {
					for kx := range weights[o][i][ky] {
						weights[o][i][ky][kx] = norm.Rand()
					}
				}
			}
		}
		for g := 0; g < x.C()/3; g++ {
			for o := 0; o < 3; o++ {
				dst := out.Plane(n, 3*g+o)
				for y := 0; y < h; y++ {
					for xx := 0; xx < w; xx++ {
						var sum float64
						for i := 0; i < 3; i++ {
							src := x.Plane(n, 3*g+i)
							for ky := 0; ky < 3; ky++ {
								sy := clamp(y+ky-1, 0, h-1)
								for kx := 0; kx < 3; kx++ {
									sx := clamp(xx+kx-1, 0, w-1)
									sum += weights[o][i][ky][kx] * float64(src[sy*w+sx]) / 255
								}
							}
						}
						dst[y*w+xx] = float32(sigmoid(sum) * 255)
					}
				}
			}
		}
	}
	return out, nil
}

// randomShift pads each sample by ShiftPad pixels (replicate) and crops an
// H×W window at a random offset.
func randomShift(x *tensor.Batch, rng *rand.Rand) *tensor.Batch {
	h, w := x.H(), x.W()
	out := tensor.ZerosLike(x)
	for n := 0; n < x.N(); n++ {
		oy := rng.IntN(2*ShiftPad+1) - ShiftPad
		ox := rng.IntN(2*ShiftPad+1) - ShiftPad
		for c := 0; c < x.C(); c++ {
			src := x.Plane(n, c)
			dst := out.Plane(n, c)
			for y := 0; y < h; y++ {
				sy := clamp(y+oy, 0, h-1)
				for xx := 0; xx < w; xx++ {
					dst[y*w+xx] = src[sy*w+clamp(xx+ox, 0, w-1)]
				}
			}
		}
	}
	return out
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

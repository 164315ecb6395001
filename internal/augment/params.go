package augment

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampling bounds. Radii and frequency limits are fractions of the normalized
// frequency axis, where 0.5 is Nyquist.
const (
	// SkipProbability is the chance that a mask or mix call returns its input.
	SkipProbability = 0.5

	MaxRadius     = 0.5
	MaxRingWidth  = 0.035
	MaxBandLow    = 0.5
	MaxBandWidth  = 0.05
	OverlayAlpha  = 0.5
	ShiftPad      = 4
	bandPrecision = 100 // two decimal places
)

// RingParams are the inner and outer radii of a circular ring, as fractions
// of the larger image side.
type RingParams struct {
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
}

// BandParams are the frequency limits of a square ring.
type BandParams struct {
	Low  float64 `json:"freq_limit_low"`
	High float64 `json:"freq_limit_hi"`
}

// Params records what a single call sampled. Only the fields relevant to
// the variant are set.
type Params struct {
	Ring         *RingParams `json:"ring,omitempty"`
	Band         *BandParams `json:"band,omitempty"`
	Coefficients []float64   `json:"coefficients,omitempty"`
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: rng}.Rand()
}

// Skip flips the per-call coin. It returns true when the transform should be
// bypassed.
func Skip(rng *rand.Rand) bool {
	return uniform(rng, 0, 1) > 1-SkipProbability
}

// SampleRing draws r1 ~ U(0, 0.5) and r2 = min(r1 + U(0, 0.035), 0.5).
func SampleRing(rng *rand.Rand) RingParams {
	r1 := uniform(rng, 0, MaxRadius)
	delta := uniform(rng, 0, MaxRingWidth)
	return RingParams{R1: r1, R2: math.Min(r1+delta, MaxRadius)}
}

// SampleBand draws the low limit from U(0, 0.5) and the width from
// U(0, 0.05), both rounded to two decimals.
func SampleBand(rng *rand.Rand) BandParams {
	low := round2(uniform(rng, 0, MaxBandLow))
	diff := round2(uniform(rng, 0, MaxBandWidth))
	return BandParams{Low: low, High: low + diff}
}

func round2(v float64) float64 {
	return math.Round(v*bandPrecision) / bandPrecision
}

// SampleCoefficients draws n independent mixing coefficients from U(lo, hi).
func SampleCoefficients(rng *rand.Rand, n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = uniform(rng, lo, hi)
	}
	return out
}

// coefficients resolves spec against the configured alpha for a batch of n.
func (s MixSpec) coefficients(rng *rand.Rand, n int, alpha float64) []float64 {
	if s.Fixed {
		v := s.Value
		if s.AlphaBound {
			v = alpha
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	hi := s.Hi
	if s.AlphaBound {
		hi = alpha
	}
	return SampleCoefficients(rng, n, s.Lo, hi)
}

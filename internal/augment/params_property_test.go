package augment

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

// TestSampleRing_Containment verifies 0 <= r1 <= r2 <= 0.5 and r2-r1 <= 0.035.
func TestSampleRing_Containment(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ring radii stay ordered and inside Nyquist", prop.ForAll(
		func(seed uint64) bool {
			p := SampleRing(testutil.NewRand(seed))
			if p.R1 < 0 || p.R1 > MaxRadius {
				return false
			}
			if p.R2 < p.R1 || p.R2 > MaxRadius {
				return false
			}
			return p.R2-p.R1 <= MaxRingWidth+1e-12
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestSampleRing_ClampOnlyAtBoundary replays the two draws and checks that
// r2 is clamped exactly when r1 + delta crosses 0.5.
func TestSampleRing_ClampOnlyAtBoundary(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("r2 = min(r1 + delta, 0.5)", prop.ForAll(
		func(seed uint64) bool {
			p := SampleRing(testutil.NewRand(seed))

			replay := testutil.NewRand(seed)
			r1 := uniform(replay, 0, MaxRadius)
			delta := uniform(replay, 0, MaxRingWidth)

			if r1 != p.R1 {
				return false
			}
			if r1+delta > MaxRadius {
				return p.R2 == MaxRadius
			}
			return p.R2 == r1+delta
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestSampleBand_Ordering verifies low <= high with both on a 0.01 grid.
func TestSampleBand_Ordering(t *testing.T) {
	properties := gopter.NewProperties(nil)

	onGrid := func(v float64) bool {
		return math.Abs(v*100-math.Round(v*100)) < 1e-6
	}

	properties.Property("band limits are ordered and rounded", prop.ForAll(
		func(seed uint64) bool {
			p := SampleBand(testutil.NewRand(seed))
			if p.Low < 0 || p.Low > MaxBandLow {
				return false
			}
			if p.High < p.Low || p.High-p.Low > MaxBandWidth+1e-9 {
				return false
			}
			return onGrid(p.Low) && onGrid(p.High)
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestSampleCoefficients_Bounds verifies every draw lies in [lo, hi].
func TestSampleCoefficients_Bounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("coefficients stay inside the band", prop.ForAll(
		func(seed uint64, n, band int) bool {
			lo := float64(band) * 0.2
			hi := lo + 0.2
			coeffs := SampleCoefficients(testutil.NewRand(seed), n, lo, hi)
			if len(coeffs) != n {
				return false
			}
			for _, k := range coeffs {
				if k < lo || k > hi {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 64),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

// TestMixSpec_Coefficients covers alpha binding and fixed values.
func TestMixSpec_Coefficients(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("alpha-bound draws never exceed alpha", prop.ForAll(
		func(seed uint64, alpha float64) bool {
			spec, _ := Mix.MixSpec()
			for _, k := range spec.coefficients(testutil.NewRand(seed), 8, alpha) {
				if k < 0 || k > alpha {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.Float64Range(0, 1),
	))

	properties.Property("mix-fixed uses alpha for every sample", prop.ForAll(
		func(seed uint64, alpha float64) bool {
			spec, _ := MixFixed.MixSpec()
			for _, k := range spec.coefficients(testutil.NewRand(seed), 5, alpha) {
				if k != alpha {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestSkip_Frequency(t *testing.T) {
	rng := testutil.NewRand(42)
	const trials = 20000
	skipped := 0
	for i := 0; i < trials; i++ {
		if Skip(rng) {
			skipped++
		}
	}
	frac := float64(skipped) / trials
	if math.Abs(frac-SkipProbability) > 0.02 {
		t.Fatalf("skip fraction %.3f too far from %.1f", frac, SkipProbability)
	}
}

func TestMixSpec_Registry(t *testing.T) {
	mean, ok := MixMean.MixSpec()
	if !ok || mean.Reference != BatchMean || !mean.Fixed || mean.Value != 0.5 {
		t.Fatalf("unexpected mix-mean spec: %+v", mean)
	}
	if _, ok := MaskRing.MixSpec(); ok {
		t.Fatal("mask-ring must not expose a mix spec")
	}
	coeffs := mean.coefficients(testutil.NewRand(1), 3, 0.9)
	for _, k := range coeffs {
		if k != 0.5 {
			t.Fatalf("mix-mean coefficient %v, want 0.5", k)
		}
	}
}

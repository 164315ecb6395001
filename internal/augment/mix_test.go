package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/spectral"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

func planeAmplitude(t *testing.T, plane []float32, h, w int) []float64 {
	t.Helper()
	plan := spectral.NewPlan(h, w)
	spec := make([]complex128, h*w)
	plan.ForwardReal(spec, plane)
	amp := make([]float64, h*w)
	spectral.Amplitude(amp, spec)
	return amp
}

func TestMixAmplitude_ZeroCoefficientIsIdentity(t *testing.T) {
	x := testutil.PixelBatch(10, 2, 3, 6, 6)
	ref := testutil.PixelBatch(11, 2, 3, 6, 6)

	out, err := MixAmplitude(x, ref, []float64{0, 0}, Paired)
	require.NoError(t, err)
	testutil.RequireBatchClose(t, x, out, 1e-3)
}

func TestMixAmplitude_FullCoefficientTakesReferenceAmplitude(t *testing.T) {
	x := testutil.PixelBatch(12, 2, 3, 4, 4)
	ref := testutil.PixelBatch(13, 2, 3, 4, 4)

	out, err := MixAmplitude(x, ref, []float64{1, 0}, Paired)
	require.NoError(t, err)

	for c := 0; c < 3; c++ {
		got := planeAmplitude(t, out.Plane(0, c), 4, 4)
		want := planeAmplitude(t, ref.Plane(0, c), 4, 4)
		assert.InDeltaSlice(t, want, got, 0.05, "sample 0 channel %d", c)
	}
	// Sample 1 used coefficient 0.
	for c := 0; c < 3; c++ {
		assert.InDeltaSlice(t, toFloat64(x.Plane(1, c)), toFloat64(out.Plane(1, c)), 1e-3)
	}
}

func TestMixAmplitude_HalfCoefficientAveragesAmplitude(t *testing.T) {
	x := testutil.PixelBatch(14, 1, 3, 4, 4)
	ref := testutil.PixelBatch(15, 1, 3, 4, 4)

	out, err := MixAmplitude(x, ref, []float64{0.5}, Paired)
	require.NoError(t, err)

	ax := planeAmplitude(t, x.Plane(0, 1), 4, 4)
	ar := planeAmplitude(t, ref.Plane(0, 1), 4, 4)
	got := planeAmplitude(t, out.Plane(0, 1), 4, 4)
	for i := range got {
		assert.InDelta(t, 0.5*ax[i]+0.5*ar[i], got[i], 0.05)
	}
}

func TestMixAmplitude_BatchMeanOfIdenticalSamplesMatchesPaired(t *testing.T) {
	x := testutil.PixelBatch(16, 2, 2, 4, 4)
	ref := tensor.Zeros(2, 2, 4, 4)
	sample := testutil.PixelBatch(17, 1, 2, 4, 4)
	copy(ref.Data[:len(sample.Data)], sample.Data)
	copy(ref.Data[len(sample.Data):], sample.Data)

	mean, err := MixAmplitude(x, ref, []float64{0.5, 0.5}, BatchMean)
	require.NoError(t, err)
	paired, err := MixAmplitude(x, ref, []float64{0.5, 0.5}, Paired)
	require.NoError(t, err)
	testutil.RequireBatchClose(t, paired, mean, 1e-3)
}

func TestMixAmplitude_BatchMeanAveragesOverSamples(t *testing.T) {
	x := testutil.PixelBatch(18, 2, 2, 4, 4)
	ref := testutil.PixelBatch(19, 2, 2, 4, 4)

	out, err := MixAmplitude(x, ref, []float64{1, 1}, BatchMean)
	require.NoError(t, err)

	for c := 0; c < 2; c++ {
		a0 := planeAmplitude(t, ref.Plane(0, c), 4, 4)
		a1 := planeAmplitude(t, ref.Plane(1, c), 4, 4)
		for n := 0; n < 2; n++ {
			got := planeAmplitude(t, out.Plane(n, c), 4, 4)
			for i := range got {
				assert.InDelta(t, (a0[i]+a1[i])/2, got[i], 0.05)
			}
		}
	}
}

func TestMixAmplitude_Errors(t *testing.T) {
	x := testutil.PixelBatch(20, 2, 3, 4, 4)

	t.Run("missing reference", func(t *testing.T) {
		_, err := MixAmplitude(x, nil, []float64{0, 0}, Paired)
		var sErr *ShapeMismatchError
		require.ErrorAs(t, err, &sErr)
		assert.Contains(t, sErr.Error(), "missing second batch")
	})

	t.Run("shape", func(t *testing.T) {
		_, err := MixAmplitude(x, testutil.PixelBatch(21, 2, 3, 4, 5), []float64{0, 0}, Paired)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("coefficient count", func(t *testing.T) {
		_, err := MixAmplitude(x, x.Clone(), []float64{0.3}, Paired)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("device", func(t *testing.T) {
		ref := x.Clone()
		ref.Device = tensor.Device{Kind: "cuda", Index: 0}
		_, err := MixAmplitude(x, ref, []float64{0, 0}, Paired)
		var dErr *DeviceMismatchError
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, tensor.CPU, dErr.Want)
		require.ErrorIs(t, err, ErrDeviceMismatch)
	})

	t.Run("reference kind", func(t *testing.T) {
		_, err := MixAmplitude(x, x.Clone(), []float64{0, 0}, Reference(7))
		require.ErrorIs(t, err, ErrUnsupportedVariant)
	})
}

func toFloat64(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

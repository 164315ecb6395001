package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

func TestRingMask_EmptyRingKeepsEverything(t *testing.T) {
	// 0.3 * 8 = 2.4 pixels; no integer offset has squared length 5.76.
	m := RingMask(8, 8, RingParams{R1: 0.3, R2: 0.3})
	assert.Equal(t, 0, m.Suppressed())
	assert.True(t, m.Centered)
}

func TestRingMask_ZeroRadiusSuppressesCentre(t *testing.T) {
	m := RingMask(8, 8, RingParams{R1: 0, R2: 0.01})
	assert.Equal(t, 1, m.Suppressed())
	assert.False(t, m.Keep[4*8+4], "centre (h/2, w/2) must be suppressed")
}

func TestRingMask_UsesLargerSide(t *testing.T) {
	// Radius 1/8 of max(4, 8) is one pixel; the four direct neighbours of the
	// centre sit exactly on it.
	m := RingMask(4, 8, RingParams{R1: 0.125, R2: 0.125})
	assert.Equal(t, 4, m.Suppressed())
	cy, cx := 2, 4
	for _, off := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		assert.False(t, m.Keep[(cy+off[0])*8+cx+off[1]])
	}
}

func TestSquareRingMask_Regions(t *testing.T) {
	// Freq(8) = 0, .125, .25, .375, -.5, -.375, -.25, -.125
	m := SquareRingMask(8, 8, BandParams{Low: 0.2, High: 0.3})
	assert.False(t, m.Centered)

	// |f| < 0.3 on both axes gives a 5x5 block, |f| < 0.2 gives a 3x3 block.
	assert.Equal(t, 25-9, m.Suppressed())
	assert.True(t, m.Keep[0], "DC lies inside the low square")
	assert.False(t, m.Keep[0*8+2], "(0, .25) lies in the ring")
	assert.True(t, m.Keep[4*8+0], "Nyquist row is outside the high square")
}

func TestSquareRingMask_EqualLimitsIsEmpty(t *testing.T) {
	m := SquareRingMask(84, 84, BandParams{Low: 0.21, High: 0.21})
	assert.Equal(t, 0, m.Suppressed())
}

func TestApplyRingMask_EmptyRingIsIdentity(t *testing.T) {
	x := testutil.PixelBatch(1, 2, 3, 8, 8)
	out, err := ApplyRingMask(x, RingParams{R1: 0.3, R2: 0.3})
	require.NoError(t, err)
	testutil.RequireBatchClose(t, x, out, 1e-3)
	assert.NotSame(t, x, out)
}

func TestApplyRingMask_RemovesMean(t *testing.T) {
	x := testutil.PixelBatch(2, 1, 2, 8, 8)
	out, err := ApplyRingMask(x, RingParams{R1: 0, R2: 0.01})
	require.NoError(t, err)

	for c := 0; c < 2; c++ {
		in := x.Plane(0, c)
		var mean float64
		for _, v := range in {
			mean += float64(v)
		}
		mean /= float64(len(in))

		got := out.Plane(0, c)
		for i := range in {
			assert.InDelta(t, float64(in[i])-mean, float64(got[i]), 1e-3)
		}
	}
}

func TestApplyBandMask_FullBandZeroesSignal(t *testing.T) {
	x := testutil.PixelBatch(3, 2, 3, 6, 6)
	// Low 0 keeps nothing inside the low square, High 0.6 covers every bin.
	out, err := ApplyBandMask(x, BandParams{Low: 0, High: 0.6})
	require.NoError(t, err)
	testutil.RequireBatchClose(t, tensor.ZerosLike(x), out, 1e-3)
}

func TestApplyBandMask_RequiresFrames(t *testing.T) {
	x := testutil.PixelBatch(4, 1, 4, 6, 6)
	_, err := ApplyBandMask(x, BandParams{Low: 0.1, High: 0.2})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestApplyFrequencyMask_SizeMismatch(t *testing.T) {
	x := testutil.PixelBatch(5, 1, 3, 6, 6)
	_, err := ApplyFrequencyMask(x, RingMask(8, 8, RingParams{}))
	var sErr *ShapeMismatchError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, []int{8, 8}, sErr.Want)
}

func TestApplyFrequencyMask_DoesNotModifyInput(t *testing.T) {
	x := testutil.PixelBatch(6, 1, 3, 6, 6)
	before := x.Clone()
	_, err := ApplyBandMask(x, BandParams{Low: 0.1, High: 0.4})
	require.NoError(t, err)
	assert.Equal(t, before.Data, x.Data)
}

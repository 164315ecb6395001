package augment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

type fakeOverlay struct {
	value float32
	err   error
	shape []int
	calls int
}

func (f *fakeOverlay) Batch(n, h, w int) (*tensor.Batch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.shape != nil {
		return testutil.ConstantBatch(f.value, f.shape[0], f.shape[1], f.shape[2], f.shape[3]), nil
	}
	return testutil.ConstantBatch(f.value, n, 3, h, w), nil
}

func TestOverlay_Blend(t *testing.T) {
	src := &fakeOverlay{value: 1}
	e := NewEngine(DefaultConfig(), WithOverlaySource(src))
	x := testutil.ConstantBatch(100, 2, 9, 5, 5)

	res, err := e.Transform(x, nil, Overlay)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, src.calls)

	// 0.5*100/255*255 + 0.5*1*255
	want := float32(50 + 127.5)
	for _, v := range res.Batch.Data {
		assert.InDelta(t, want, v, 1e-3)
	}
}

func TestOverlay_Errors(t *testing.T) {
	x := testutil.PixelBatch(30, 2, 3, 5, 5)

	t.Run("no source", func(t *testing.T) {
		_, err := NewEngine(DefaultConfig()).Transform(x, nil, Overlay)
		require.ErrorIs(t, err, ErrNoOverlaySource)
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("disk gone")
		e := NewEngine(DefaultConfig(), WithOverlaySource(&fakeOverlay{err: boom}))
		_, err := e.Transform(x, nil, Overlay)
		require.ErrorIs(t, err, boom)
	})

	t.Run("source shape", func(t *testing.T) {
		e := NewEngine(DefaultConfig(), WithOverlaySource(&fakeOverlay{shape: []int{2, 3, 4, 4}}))
		_, err := e.Transform(x, nil, Overlay)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("channels", func(t *testing.T) {
		e := NewEngine(DefaultConfig(), WithOverlaySource(&fakeOverlay{}))
		_, err := e.Transform(testutil.PixelBatch(31, 1, 2, 5, 5), nil, Overlay)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestRandomConv_RangeAndConstantInput(t *testing.T) {
	x := testutil.ConstantBatch(255, 2, 6, 7, 7)
	out, err := randomConv(x, testutil.NewRand(4))
	require.NoError(t, err)
	require.Equal(t, x.Shape, out.Shape)

	for _, v := range out.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(255))
	}
	// Replicate padding keeps a constant image constant per channel.
	for n := 0; n < 2; n++ {
		for c := 0; c < 6; c++ {
			p := out.Plane(n, c)
			for _, v := range p {
				assert.InDelta(t, p[0], v, 1e-3)
			}
		}
	}
	// Both frames of a sample share the kernel.
	assert.Equal(t, out.Plane(0, 0), out.Plane(0, 3))
}

func TestRandomConv_RequiresFrames(t *testing.T) {
	_, err := randomConv(testutil.PixelBatch(32, 1, 4, 5, 5), testutil.NewRand(1))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRandomShift_ValuesComeFromInput(t *testing.T) {
	h, w := 10, 10
	x := tensor.Zeros(3, 2, h, w)
	for i := range x.Data {
		x.Data[i] = float32(i)
	}
	out := randomShift(x, testutil.NewRand(6))
	require.Equal(t, x.Shape, out.Shape)

	for n := 0; n < 3; n++ {
		for c := 0; c < 2; c++ {
			src := x.Plane(n, c)
			set := make(map[float32]bool, len(src))
			for _, v := range src {
				set[v] = true
			}
			for _, v := range out.Plane(n, c) {
				assert.True(t, set[v], "value %v not from sample %d channel %d", v, n, c)
			}
		}
	}
}

func TestRandomShift_SameOffsetAcrossChannels(t *testing.T) {
	x := testutil.PixelBatch(33, 1, 1, 9, 9)
	stacked := tensor.Zeros(1, 3, 9, 9)
	for c := 0; c < 3; c++ {
		copy(stacked.Plane(0, c), x.Plane(0, 0))
	}
	out := randomShift(stacked, testutil.NewRand(12))
	assert.Equal(t, out.Plane(0, 0), out.Plane(0, 1))
	assert.Equal(t, out.Plane(0, 0), out.Plane(0, 2))
}

package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// NewRand returns a deterministic generator for tests.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// RandomBatch fills an (n, c, h, w) batch with values drawn uniformly from
// [lo, hi).
func RandomBatch(seed uint64, n, c, h, w int, lo, hi float32) *tensor.Batch {
	rng := NewRand(seed)
	b := tensor.Zeros(n, c, h, w)
	for i := range b.Data {
		b.Data[i] = lo + (hi-lo)*rng.Float32()
	}
	return b
}

// PixelBatch is RandomBatch over the 0..255 range of stacked observations.
func PixelBatch(seed uint64, n, c, h, w int) *tensor.Batch {
	return RandomBatch(seed, n, c, h, w, 0, 255)
}

// ConstantBatch returns a batch where every element equals v.
func ConstantBatch(v float32, n, c, h, w int) *tensor.Batch {
	b := tensor.Zeros(n, c, h, w)
	for i := range b.Data {
		b.Data[i] = v
	}
	return b
}

// MaxAbsDiff returns the largest elementwise difference between two batches
// of the same length.
func MaxAbsDiff(a, b *tensor.Batch) float64 {
	var worst float64
	for i := range a.Data {
		worst = math.Max(worst, math.Abs(float64(a.Data[i])-float64(b.Data[i])))
	}
	return worst
}

// RequireBatchClose fails the test unless both batches share a shape and
// every element is within tol.
func RequireBatchClose(t *testing.T, want, got *tensor.Batch, tol float64) {
	t.Helper()

	require.NotNil(t, got)
	require.Equal(t, want.Shape, got.Shape, "shape mismatch")
	require.LessOrEqual(t, MaxAbsDiff(want, got), tol, "batches differ beyond tolerance")
}

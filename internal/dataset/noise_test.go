package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

func TestNoise_Batch(t *testing.T) {
	src := NewNoise(testutil.NewRand(3))
	b, err := src.Batch(2, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5, 7}, b.Shape)

	minVal, maxVal, mean := tensor.Stats(b.Data)
	assert.GreaterOrEqual(t, minVal, float32(0))
	assert.LessOrEqual(t, maxVal, float32(1))
	assert.InDelta(t, 0.5, mean, 0.15)
}

func TestNoise_Deterministic(t *testing.T) {
	a, err := NewNoise(testutil.NewRand(9)).Batch(1, 4, 4)
	require.NoError(t, err)
	b, err := NewNoise(testutil.NewRand(9)).Batch(1, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestNoise_InvalidSize(t *testing.T) {
	_, err := NewNoise(nil).Batch(0, 4, 4)
	require.Error(t, err)
}

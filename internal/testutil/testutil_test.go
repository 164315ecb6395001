package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
	assert.True(t, DirExists(filepath.Join(root, "internal")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestPixelBatch(t *testing.T) {
	b := PixelBatch(1, 2, 3, 4, 5)
	assert.Equal(t, []int{2, 3, 4, 5}, b.Shape)
	for _, v := range b.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(255))
	}
	assert.Equal(t, b.Data, PixelBatch(1, 2, 3, 4, 5).Data)
	assert.InDelta(t, 0.0, MaxAbsDiff(b, b), 0)
}

package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradientImage(t *testing.T) {
	a := GradientImage(SmallSize, 0)
	b := GradientImage(SmallSize, 0.5)

	assert.Equal(t, SmallSize.Width, a.Bounds().Dx())
	assert.Equal(t, SmallSize.Height, a.Bounds().Dy())
	assert.True(t, CompareImages(a, a, 0))
	assert.False(t, CompareImages(a, b, 0.01))
}

func TestCheckerImage(t *testing.T) {
	img := CheckerImage(ImageSize{4, 4}, 2, color.White, color.Black)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(3, 3))
}

func TestCompareImages_SizeMismatch(t *testing.T) {
	assert.False(t, CompareImages(SolidImage(SmallSize, color.White), SolidImage(LargeSize, color.White), 1))
}

func TestWriteImageSet(t *testing.T) {
	dir := t.TempDir()
	paths := WriteImageSet(t, dir, 3, SmallSize, ".png")
	require.Len(t, paths, 3)

	for _, p := range paths {
		assert.True(t, FileExists(p))
		img, err := imaging.Open(p)
		require.NoError(t, err)
		assert.Equal(t, SmallSize.Width, img.Bounds().Dx())
	}
	assert.Equal(t, filepath.Join(dir, "img_0.png"), paths[0])
}

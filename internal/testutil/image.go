package testutil

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// ImageSize represents image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// AtariSize is the observation size used by most pixel-based agents.
	AtariSize = ImageSize{84, 84}
	// SmallSize keeps fixture files tiny.
	SmallSize = ImageSize{32, 24}
	// LargeSize is big enough to exercise crops and resizes.
	LargeSize = ImageSize{160, 120}
)

// GradientImage draws a diagonal RGB gradient. The phase shifts the channels
// so different phases yield visibly different images.
func GradientImage(size ImageSize, phase float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			t := float64(x+y) / float64(size.Width+size.Height)
			img.SetNRGBA(x, y, color.NRGBA{
				R: channel(t + phase),
				G: channel(t + phase + 1.0/3),
				B: channel(t + phase + 2.0/3),
				A: 255,
			})
		}
	}
	return img
}

func channel(t float64) uint8 {
	return uint8(127.5 + 127.5*math.Sin(2*math.Pi*t))
}

// CheckerImage draws a checkerboard with square cells of the given size.
func CheckerImage(size ImageSize, cell int, a, b color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.Set(x, y, a)
			} else {
				img.Set(x, y, b)
			}
		}
	}
	return img
}

// SolidImage returns an image filled with c.
func SolidImage(size ImageSize, c color.Color) *image.NRGBA {
	return imaging.New(size.Width, size.Height, c)
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, SaveImageFile(img, path), "Failed to save image %s", path)
}

// SaveImageFile is SaveImage for callers without a *testing.T, such as godog
// steps.
func SaveImageFile(img image.Image, path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return imaging.Save(img, path)
}

// WriteImageSet writes count gradient images named img_<i><ext> into dir
// and returns their paths.
func WriteImageSet(t *testing.T, dir string, count int, size ImageSize, ext string) []string {
	t.Helper()

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p := filepath.Join(dir, fmt.Sprintf("img_%d%s", i, ext))
		SaveImage(t, GradientImage(size, float64(i)/float64(count+1)), p)
		paths = append(paths, p)
	}
	return paths
}

// CompareImages reports whether the mean per-pixel colour distance of two
// equally sized images is at most tolerance (as a fraction of the maximum).
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b := img1.Bounds()
	if b.Size() != img2.Bounds().Size() {
		return false
	}
	o := img2.Bounds().Min.Sub(b.Min)

	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x+o.X, y+o.Y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			total += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
		}
	}

	avg := total / float64(b.Dx()*b.Dy())
	return avg/math.Sqrt(4*65535*65535) <= tolerance
}

package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// Value ranges for batches built from images.
const (
	// PixelScale keeps raw 0..255 intensities, the range the augmentation
	// engine expects for observations.
	PixelScale float32 = 255
	// UnitScale maps intensities to 0..1, the range of overlay images.
	UnitScale float32 = 1
)

// ResizeImage scales img to exactly width×height using a linear filter.
func ResizeImage(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

// ImagesToBatch converts images into an NCHW batch. Every frames consecutive
// images are stacked into one sample of 3*frames channels, so len(imgs) must
// be a multiple of frames and all images must share one size. Values are
// scaled to 0..scale.
func ImagesToBatch(imgs []image.Image, frames int, scale float32) (*tensor.Batch, error) {
	if len(imgs) == 0 {
		return nil, &ImageProcessingError{Operation: "to-batch", Err: errors.New("no images")}
	}
	if frames <= 0 || len(imgs)%frames != 0 {
		return nil, &ImageProcessingError{
			Operation: "to-batch",
			Err:       fmt.Errorf("%d images cannot be stacked in groups of %d", len(imgs), frames),
		}
	}
	b0 := imgs[0].Bounds()
	w, h := b0.Dx(), b0.Dy()
	out := tensor.Zeros(len(imgs)/frames, 3*frames, h, w)

	for i, img := range imgs {
		if img == nil {
			return nil, &ImageProcessingError{Operation: "to-batch", Err: fmt.Errorf("image %d is nil", i)}
		}
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			return nil, &ImageProcessingError{
				Operation: "to-batch",
				Err:       fmt.Errorf("image %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), w, h),
			}
		}
		n, f := i/frames, i%frames
		writePlanes(out.Plane(n, 3*f), out.Plane(n, 3*f+1), out.Plane(n, 3*f+2), img, scale)
	}
	return out, nil
}

func writePlanes(r, g, b []float32, img image.Image, scale float32) {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	k := scale / 255
	for y := range h {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range w {
			idx := y*w + x
			r[idx] = float32(row[4*x]) * k
			g[idx] = float32(row[4*x+1]) * k
			b[idx] = float32(row[4*x+2]) * k
		}
	}
}

// BatchToImages converts sample n of b back into one RGB image per 3-channel
// frame. Values are divided by scale and clamped to 0..255.
func BatchToImages(b *tensor.Batch, n int, scale float32) ([]image.Image, error) {
	if b == nil || b.Verify() != nil {
		return nil, &ImageProcessingError{Operation: "from-batch", Err: errors.New("invalid batch")}
	}
	if n < 0 || n >= b.N() {
		return nil, &ImageProcessingError{Operation: "from-batch", Err: fmt.Errorf("sample %d out of range [0,%d)", n, b.N())}
	}
	if b.C()%3 != 0 {
		return nil, &ImageProcessingError{Operation: "from-batch", Err: fmt.Errorf("%d channels are not RGB frames", b.C())}
	}

	w, h := b.W(), b.H()
	k := 255 / scale
	imgs := make([]image.Image, 0, b.C()/3)
	for f := 0; f < b.C()/3; f++ {
		r, g, bl := b.Plane(n, 3*f), b.Plane(n, 3*f+1), b.Plane(n, 3*f+2)
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := range h {
			for x := range w {
				idx := y*w + x
				img.SetNRGBA(x, y, color.NRGBA{
					R: toByte(r[idx] * k),
					G: toByte(g[idx] * k),
					B: toByte(bl[idx] * k),
					A: 255,
				})
			}
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// Package dataset provides overlay image sources for the overlay
// augmentation. A Source hands out batches of natural images of shape
// (n, 3, h, w) with values in [0, 1].
package dataset

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/utils"
)

// ErrNoImages is returned when a source has nothing to sample from.
var ErrNoImages = errors.New("dataset: no images found")

// Source supplies overlay batches.
type Source interface {
	Batch(n, h, w int) (*tensor.Batch, error)
}

// Crop parameters of the random resized crop.
const (
	MinCropScale = 0.08
	MaxCropScale = 1.0
	MinCropRatio = 3.0 / 4.0
	MaxCropRatio = 4.0 / 3.0
	cropAttempts = 10
)

// Folder samples images from a directory tree. The directory is scanned on
// the first call to Batch; each pass over the images uses a fresh shuffle.
// Folder is safe for concurrent use.
type Folder struct {
	dir        string
	extensions []string
	recursive  bool
	logger     *slog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	paths  []string
	order  []int
	pos    int
	loaded bool
}

// FolderOption customizes a Folder.
type FolderOption func(*Folder)

// WithExtensions restricts the scan to the given extensions (".jpg", ...).
func WithExtensions(exts ...string) FolderOption {
	return func(f *Folder) { f.extensions = exts }
}

// WithRecursive controls whether subdirectories are scanned. Default true,
// matching class-per-subdirectory layouts.
func WithRecursive(r bool) FolderOption {
	return func(f *Folder) { f.recursive = r }
}

// WithRand sets the generator used for shuffling and cropping.
func WithRand(r *rand.Rand) FolderOption {
	return func(f *Folder) { f.rng = r }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) FolderOption {
	return func(f *Folder) { f.logger = l }
}

// NewFolder returns a lazily initialized source over dir.
func NewFolder(dir string, opts ...FolderOption) *Folder {
	f := &Folder{dir: dir, recursive: true}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Dir returns the scanned directory.
func (f *Folder) Dir() string { return f.dir }

// Len scans the directory if needed and returns the number of images.
func (f *Folder) Len() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return 0, err
	}
	return len(f.paths), nil
}

func (f *Folder) load() error {
	if f.loaded {
		return nil
	}
	var include []string
	for _, ext := range f.extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		include = append(include, "*"+ext, "*"+strings.ToUpper(ext))
	}
	paths, err := utils.DiscoverImages([]string{f.dir}, utils.DiscoverOptions{Recursive: f.recursive, Include: include})
	if err != nil {
		return fmt.Errorf("dataset: scan %s: %w", f.dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w in %s", ErrNoImages, f.dir)
	}
	f.paths = paths
	f.loaded = true
	f.reshuffle()
	f.logger.Info("loaded overlay dataset", "dir", f.dir, "images", len(paths))
	return nil
}

func (f *Folder) reshuffle() {
	if f.order == nil {
		f.order = make([]int, len(f.paths))
		for i := range f.order {
			f.order[i] = i
		}
	}
	f.rng.Shuffle(len(f.order), func(i, j int) { f.order[i], f.order[j] = f.order[j], f.order[i] })
	f.pos = 0
}

// next returns n image paths. A pass that cannot fill a whole batch is
// dropped and a new shuffled pass starts; datasets smaller than n wrap.
func (f *Folder) next(n int) []string {
	if len(f.order)-f.pos < n && len(f.order) >= n {
		f.reshuffle()
	}
	out := make([]string, 0, n)
	for len(out) < n {
		if f.pos == len(f.order) {
			f.reshuffle()
		}
		out = append(out, f.paths[f.order[f.pos]])
		f.pos++
	}
	return out
}

// Batch returns n randomly cropped and flipped images resized to w×h.
func (f *Folder) Batch(n, h, w int) (*tensor.Batch, error) {
	if n <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("dataset: invalid batch size %dx%dx%d", n, h, w)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return nil, err
	}

	imgs := make([]image.Image, 0, n)
	for _, p := range f.next(n) {
		img, _, err := utils.LoadImage(p)
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		imgs = append(imgs, Augment(img, w, h, f.rng))
	}
	return utils.ImagesToBatch(imgs, 1, utils.UnitScale)
}

// Augment applies a random resized crop to w×h followed by a random
// horizontal flip with probability 0.5.
func Augment(img image.Image, w, h int, rng *rand.Rand) image.Image {
	crop := RandomResizedCrop(img.Bounds(), rng)
	out := imaging.Resize(imaging.Crop(img, crop), w, h, imaging.Linear)
	if rng.Float64() < 0.5 {
		out = imaging.FlipH(out)
	}
	return out
}

// RandomResizedCrop picks a crop covering 8% to 100% of the area with an
// aspect ratio between 3/4 and 4/3 (log-uniform). After ten failed
// attempts it falls back to the largest centred crop within the ratio
// limits.
func RandomResizedCrop(b image.Rectangle, rng *rand.Rand) image.Rectangle {
	width, height := b.Dx(), b.Dy()
	area := float64(width * height)

	scale := distuv.Uniform{Min: MinCropScale, Max: MaxCropScale, Src: rng}
	logRatio := distuv.Uniform{Min: math.Log(MinCropRatio), Max: math.Log(MaxCropRatio), Src: rng}

	for range cropAttempts {
		target := area * scale.Rand()
		aspect := math.Exp(logRatio.Rand())
		cw := int(math.Round(math.Sqrt(target * aspect)))
		ch := int(math.Round(math.Sqrt(target / aspect)))
		if cw > 0 && cw <= width && ch > 0 && ch <= height {
			y := rng.IntN(height - ch + 1)
			x := rng.IntN(width - cw + 1)
			return image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+cw, b.Min.Y+y+ch)
		}
	}

	cw, ch := width, height
	switch ratio := float64(width) / float64(height); {
	case ratio < MinCropRatio:
		ch = int(math.Round(float64(cw) / MinCropRatio))
	case ratio > MaxCropRatio:
		cw = int(math.Round(float64(ch) * MaxCropRatio))
	}
	x := (width - cw) / 2
	y := (height - ch) / 2
	return image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+cw, b.Min.Y+y+ch)
}

// Package tensor holds the batched NCHW image representation shared by the
// augmentation engine, the CLI and the HTTP service.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"
)

// Device identifies where a batch lives. It is an opaque caller-supplied
// handle; computations in this module run on the host regardless.
type Device struct {
	Kind  string
	Index int
}

// CPU is the default host device.
var CPU = Device{Kind: "cpu"}

// IsZero reports whether the device was left unset.
func (d Device) IsZero() bool { return d.Kind == "" }

func (d Device) String() string {
	if d.Kind == "" {
		return "unset"
	}
	if d.Kind == "cpu" && d.Index == 0 {
		return "cpu"
	}
	return d.Kind + ":" + strconv.Itoa(d.Index)
}

// ParseDevice parses handles like "cpu", "cuda:1" or "gpu:0".
// An empty string yields CPU.
func ParseDevice(s string) (Device, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return CPU, nil
	}
	kind, idx, found := strings.Cut(s, ":")
	if kind == "" {
		return Device{}, fmt.Errorf("invalid device %q: empty kind", s)
	}
	if !found {
		return Device{Kind: kind}, nil
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return Device{}, fmt.Errorf("invalid device %q: bad index", s)
	}
	return Device{Kind: kind, Index: n}, nil
}

// Batch is a float32 tensor of shape [N, C, H, W] in row-major order.
// Values are not assumed normalized; pixel batches are usually in 0..255.
type Batch struct {
	Data   []float32
	Shape  []int
	Device Device
}

// New wraps data as a batch with the given NCHW shape on the CPU.
func New(data []float32, n, c, h, w int) (*Batch, error) {
	if data == nil {
		return nil, errors.New("nil data")
	}
	b := &Batch{Data: data, Shape: []int{n, c, h, w}, Device: CPU}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromSlice builds a batch from data and an arbitrary shape, rejecting
// anything that is not rank 4.
func FromSlice(data []float32, shape []int) (*Batch, error) {
	if err := ValidateNCHW(shape); err != nil {
		return nil, err
	}
	return New(data, shape[0], shape[1], shape[2], shape[3])
}

// Zeros allocates a zero-filled batch.
func Zeros(n, c, h, w int) *Batch {
	return &Batch{
		Data:   make([]float32, n*c*h*w),
		Shape:  []int{n, c, h, w},
		Device: CPU,
	}
}

// ZerosLike allocates a zero-filled batch with b's shape and device.
func ZerosLike(b *Batch) *Batch {
	out := Zeros(b.N(), b.C(), b.H(), b.W())
	out.Device = b.Device
	return out
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	data := make([]float32, len(b.Data))
	copy(data, b.Data)
	shape := make([]int, len(b.Shape))
	copy(shape, b.Shape)
	return &Batch{Data: data, Shape: shape, Device: b.Device}
}

// N returns the batch size.
func (b *Batch) N() int { return b.Shape[0] }

// C returns the channel count.
func (b *Batch) C() int { return b.Shape[1] }

// H returns the image height.
func (b *Batch) H() int { return b.Shape[2] }

// W returns the image width.
func (b *Batch) W() int { return b.Shape[3] }

// PlaneSize is H*W.
func (b *Batch) PlaneSize() int { return b.Shape[2] * b.Shape[3] }

// Plane returns the H*W slice of sample n, channel c. The slice aliases Data.
func (b *Batch) Plane(n, c int) []float32 {
	ps := b.PlaneSize()
	off := (n*b.Shape[1] + c) * ps
	return b.Data[off : off+ps]
}

// SameShape reports whether both batches have identical dimensions.
func (b *Batch) SameShape(o *Batch) bool {
	if len(b.Shape) != len(o.Shape) {
		return false
	}
	for i := range b.Shape {
		if b.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Verify checks the shape is NCHW and matches the data length.
func (b *Batch) Verify() error {
	if b == nil {
		return errors.New("nil batch")
	}
	expected, err := NumElements(b.Shape)
	if err != nil {
		return err
	}
	if len(b.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(b.Data), expected, b.Shape)
	}
	return nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions
// whose product fits in an int.
func ValidateNCHW(shape []int) error {
	_, err := NumElements(shape)
	return err
}

// NumElements validates an NCHW shape and returns N*C*H*W. Shapes whose
// element count overflows int are rejected.
func NumElements(shape []int) (int, error) {
	if len(shape) != 4 {
		return 0, fmt.Errorf("shape rank %d != 4", len(shape))
	}
	total := 1
	for i, v := range shape {
		if v <= 0 {
			return 0, fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
		if v > math.MaxInt/total {
			return 0, fmt.Errorf("shape %v has too many elements", shape)
		}
		total *= v
	}
	return total, nil
}

// Stats computes min, max and mean for debug output.
func Stats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}

// FrobeniusNorm returns the Euclidean norm of all elements.
func (b *Batch) FrobeniusNorm() float64 {
	if len(b.Data) == 0 {
		return 0
	}
	return float64(blas32.Nrm2(blas32.Vector{N: len(b.Data), Inc: 1, Data: b.Data}))
}

// DiffNorm returns the Frobenius norm of b - o. Shapes must match.
func (b *Batch) DiffNorm(o *Batch) (float64, error) {
	if !b.SameShape(o) {
		return 0, fmt.Errorf("shape %v != %v", b.Shape, o.Shape)
	}
	diff := make([]float32, len(b.Data))
	for i := range diff {
		diff[i] = b.Data[i] - o.Data[i]
	}
	if len(diff) == 0 {
		return 0, nil
	}
	return float64(blas32.Nrm2(blas32.Vector{N: len(diff), Inc: 1, Data: diff})), nil
}

package augment

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrUnsupportedVariant = errors.New("unsupported variant")
	ErrDeviceMismatch     = errors.New("device mismatch")
	ErrNoOverlaySource    = errors.New("no overlay source configured")
)

// ShapeMismatchError reports inputs whose dimensions cannot be combined.
type ShapeMismatchError struct {
	Op   string
	Want []int
	Got  []int
	Msg  string
}

func (e *ShapeMismatchError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: shape mismatch: %s (got %v)", e.Op, e.Msg, e.Got)
	}
	return fmt.Sprintf("%s: shape mismatch: want %v, got %v", e.Op, e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// UnsupportedVariantError reports an unknown variant name or value.
type UnsupportedVariantError struct {
	Name string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("unsupported variant %q", e.Name)
}

func (e *UnsupportedVariantError) Is(target error) bool { return target == ErrUnsupportedVariant }

// DeviceMismatchError reports batches or buffers placed on different devices.
type DeviceMismatchError struct {
	Op   string
	Want tensor.Device
	Got  tensor.Device
}

func (e *DeviceMismatchError) Error() string {
	return fmt.Sprintf("%s: device mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}

func (e *DeviceMismatchError) Is(target error) bool { return target == ErrDeviceMismatch }

func shapeErr(op string, want, got *tensor.Batch) error {
	e := &ShapeMismatchError{Op: op}
	if want != nil {
		e.Want = want.Shape
	}
	if got != nil {
		e.Got = got.Shape
	} else {
		e.Msg = "missing second batch"
	}
	return e
}

// checkBatch rejects malformed input. No coercion is attempted.
func checkBatch(op string, b *tensor.Batch) error {
	if b == nil {
		return &ShapeMismatchError{Op: op, Msg: "nil batch"}
	}
	if err := b.Verify(); err != nil {
		return &ShapeMismatchError{Op: op, Got: b.Shape, Msg: err.Error()}
	}
	return nil
}

func checkGroups(op string, b *tensor.Batch) error {
	if b.C()%3 != 0 {
		return &ShapeMismatchError{Op: op, Got: b.Shape, Msg: fmt.Sprintf("channels %d not divisible into 3-channel frames", b.C())}
	}
	return nil
}

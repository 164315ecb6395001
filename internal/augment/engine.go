package augment

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// Config carries the caller-level settings shared by all variants.
type Config struct {
	// FreqAlpha bounds the coefficient of "mix" and is the coefficient of
	// "mix-fixed". Must lie in [0, 1].
	FreqAlpha float64
	// Device, when set, is the device every input batch must live on.
	Device tensor.Device
}

// DefaultConfig returns the settings used by the training scripts.
func DefaultConfig() Config {
	return Config{FreqAlpha: 1.0, Device: tensor.CPU}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.FreqAlpha < 0 || c.FreqAlpha > 1 {
		return fmt.Errorf("invalid freq_alpha: %.3f (must be between 0.0 and 1.0)", c.FreqAlpha)
	}
	return nil
}

// Observer is notified after every successful call.
type Observer interface {
	Observe(v Variant, applied bool, elapsed time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(v Variant, applied bool, elapsed time.Duration)

// Observe calls f.
func (f ObserverFunc) Observe(v Variant, applied bool, elapsed time.Duration) { f(v, applied, elapsed) }

// Result is the outcome of one Transform call.
type Result struct {
	Batch   *tensor.Batch
	Applied bool
	Params  Params
}

// Engine applies augmentations. Randomness comes only from the injected
// generator, so an Engine is not safe for concurrent use.
type Engine struct {
	cfg      Config
	rng      *rand.Rand
	overlay  OverlaySource
	observer Observer
	logger   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand sets the random generator. Tests pass a seeded one.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds a PCG generator.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithOverlaySource sets the image source used by the overlay variant.
func WithOverlaySource(src OverlaySource) Option {
	return func(e *Engine) { e.overlay = src }
}

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine. Without WithRand or WithSeed it draws from a
// randomly seeded generator.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ApplyMask runs a mask-family variant on x.
func (e *Engine) ApplyMask(x *tensor.Batch, v Variant) (*tensor.Batch, error) {
	if v.valid() && v.Family() != FamilyMask {
		return nil, &UnsupportedVariantError{Name: v.String() + " (not a mask variant)"}
	}
	res, err := e.Transform(x, nil, v)
	if err != nil {
		return nil, err
	}
	return res.Batch, nil
}

// ApplyMix runs a mix-family variant blending x with x2.
func (e *Engine) ApplyMix(x, x2 *tensor.Batch, v Variant) (*tensor.Batch, error) {
	if v.valid() && v.Family() != FamilyMix {
		return nil, &UnsupportedVariantError{Name: v.String() + " (not a mix variant)"}
	}
	res, err := e.Transform(x, x2, v)
	if err != nil {
		return nil, err
	}
	return res.Batch, nil
}

// Transform applies v to x. x2 is required by the mix family and ignored by
// the rest. Mask and mix variants return x itself with Applied=false half of
// the time.
func (e *Engine) Transform(x, x2 *tensor.Batch, v Variant) (Result, error) {
	if !v.valid() {
		return Result{}, &UnsupportedVariantError{Name: fmt.Sprintf("Variant(%d)", int(v))}
	}
	if err := checkBatch(v.String(), x); err != nil {
		return Result{}, err
	}
	if err := e.checkDevice(v.String(), x); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res, err := e.dispatch(x, x2, v)
	if err != nil {
		return Result{}, err
	}
	if e.observer != nil {
		e.observer.Observe(v, res.Applied, time.Since(start))
	}
	return res, nil
}

func (e *Engine) dispatch(x, x2 *tensor.Batch, v Variant) (Result, error) {
	switch v.Family() {
	case FamilyMask:
		return e.mask(x, v)
	case FamilyMix:
		return e.mix(x, x2, v)
	default:
		return e.spatial(x, v)
	}
}

func (e *Engine) checkDevice(op string, b *tensor.Batch) error {
	if e.cfg.Device.IsZero() || b.Device == e.cfg.Device {
		return nil
	}
	return &DeviceMismatchError{Op: op, Want: e.cfg.Device, Got: b.Device}
}

func (e *Engine) mask(x *tensor.Batch, v Variant) (Result, error) {
	if v == MaskSquare {
		if err := checkGroups(v.String(), x); err != nil {
			return Result{}, err
		}
	}
	if Skip(e.rng) {
		return Result{Batch: x}, nil
	}

	var (
		out    *tensor.Batch
		err    error
		params Params
	)
	switch v {
	case MaskRing:
		p := SampleRing(e.rng)
		params.Ring = &p
		e.logger.Debug("applying ring mask", "r1", p.R1, "r2", p.R2, "shape", x.Shape)
		out, err = ApplyRingMask(x, p)
	case MaskSquare:
		p := SampleBand(e.rng)
		params.Band = &p
		e.logger.Debug("applying square-ring mask", "freq_limit_low", p.Low, "freq_limit_hi", p.High, "shape", x.Shape)
		out, err = ApplyBandMask(x, p)
	default:
		return Result{}, &UnsupportedVariantError{Name: v.String()}
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Batch: out, Applied: true, Params: params}, nil
}

func (e *Engine) mix(x, x2 *tensor.Batch, v Variant) (Result, error) {
	op := v.String()
	if x2 == nil {
		return Result{}, shapeErr(op, x, nil)
	}
	if err := checkBatch(op, x2); err != nil {
		return Result{}, err
	}
	if !x.SameShape(x2) {
		return Result{}, shapeErr(op, x, x2)
	}
	if err := e.checkDevice(op, x2); err != nil {
		return Result{}, err
	}
	if x2.Device != x.Device {
		return Result{}, &DeviceMismatchError{Op: op, Want: x.Device, Got: x2.Device}
	}
	if Skip(e.rng) {
		return Result{Batch: x}, nil
	}

	spec, _ := v.MixSpec()
	coeffs := spec.coefficients(e.rng, x.N(), e.cfg.FreqAlpha)
	e.logger.Debug("applying amplitude mix", "variant", op, "coefficients", coeffs)
	out, err := MixAmplitude(x, x2, coeffs, spec.Reference)
	if err != nil {
		return Result{}, err
	}
	return Result{Batch: out, Applied: true, Params: Params{Coefficients: coeffs}}, nil
}

func (e *Engine) spatial(x *tensor.Batch, v Variant) (Result, error) {
	switch v {
	case Identity:
		return Result{Batch: x}, nil
	case Overlay:
		out, err := overlay(x, e.overlay)
		if err != nil {
			return Result{}, err
		}
		return Result{Batch: out, Applied: true}, nil
	case Conv:
		out, err := randomConv(x, e.rng)
		if err != nil {
			return Result{}, err
		}
		return Result{Batch: out, Applied: true}, nil
	case Shift:
		return Result{Batch: randomShift(x, e.rng), Applied: true}, nil
	default:
		return Result{}, &UnsupportedVariantError{Name: v.String()}
	}
}

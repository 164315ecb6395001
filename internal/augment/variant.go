// Package augment implements image-batch augmentations for pixel-based
// reinforcement learning, centred on frequency-domain perturbations: ring
// and square-ring masking of the centred spectrum and amplitude mixing
// between batches. A handful of spatial augmentations (overlay, random conv,
// random shift) share the same entry point.
package augment

import (
	"strings"
)

// Variant selects one augmentation.
type Variant int

const (
	Identity Variant = iota
	Overlay
	Conv
	Shift
	MaskRing
	MaskSquare
	Mix
	MixBand1
	MixBand2
	MixBand3
	MixBand4
	MixBand5
	MixFixed
	MixMean
)

// Family groups variants by how they are driven.
type Family int

const (
	FamilySpatial Family = iota
	FamilyMask
	FamilyMix
)

func (f Family) String() string {
	switch f {
	case FamilySpatial:
		return "spatial"
	case FamilyMask:
		return "mask"
	case FamilyMix:
		return "mix"
	default:
		return "unknown"
	}
}

// Reference selects the amplitude spectrum blended into x.
type Reference int

const (
	// Paired uses the amplitude of x2[n] for sample n.
	Paired Reference = iota
	// BatchMean uses the mean amplitude of x2 over the batch axis.
	BatchMean
)

// MixSpec parameterizes the amplitude-mixing family.
type MixSpec struct {
	Reference Reference
	// Lo and Hi bound the per-sample coefficient draw.
	Lo, Hi float64
	// Fixed makes every sample use Value instead of a draw.
	Fixed bool
	Value float64
	// AlphaBound takes Hi (or Value when Fixed) from Config.FreqAlpha.
	AlphaBound bool
}

type variantInfo struct {
	name        string
	family      Family
	description string
	aliases     []string
	mix         MixSpec
}

var registry = [...]variantInfo{
	Identity: {
		name: "identity", family: FamilySpatial,
		description: "return the batch unchanged",
	},
	Overlay: {
		name: "overlay", family: FamilySpatial,
		description: "blend with an image from the overlay dataset (alpha 0.5)",
		aliases:     []string{"random_overlay"},
	},
	Conv: {
		name: "conv", family: FamilySpatial,
		description: "random 3x3 convolution per sample, squashed with a sigmoid",
		aliases:     []string{"random_conv"},
	},
	Shift: {
		name: "shift", family: FamilySpatial,
		description: "replicate-pad 4 pixels and crop back at a random offset",
		aliases:     []string{"random_shift"},
	},
	MaskRing: {
		name: "mask-ring", family: FamilyMask,
		description: "suppress a thin circular ring of the centred spectrum",
		aliases:     []string{"random_mask_freq_v1"},
	},
	MaskSquare: {
		name: "mask-square", family: FamilyMask,
		description: "suppress a square ring between two frequency limits",
		aliases:     []string{"random_mask_freq_v2"},
	},
	Mix: {
		name: "mix", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0, freq_alpha)",
		aliases:     []string{"mix_freq"},
		mix:         MixSpec{Reference: Paired, AlphaBound: true},
	},
	MixBand1: {
		name: "mix-band-1", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0.0, 0.2)",
		aliases:     []string{"mix_freq2_1"},
		mix:         MixSpec{Reference: Paired, Lo: 0.0, Hi: 0.2},
	},
	MixBand2: {
		name: "mix-band-2", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0.2, 0.4)",
		aliases:     []string{"mix_freq2_2"},
		mix:         MixSpec{Reference: Paired, Lo: 0.2, Hi: 0.4},
	},
	MixBand3: {
		name: "mix-band-3", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0.4, 0.6)",
		aliases:     []string{"mix_freq2_3"},
		mix:         MixSpec{Reference: Paired, Lo: 0.4, Hi: 0.6},
	},
	MixBand4: {
		name: "mix-band-4", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0.6, 0.8)",
		aliases:     []string{"mix_freq2_4"},
		mix:         MixSpec{Reference: Paired, Lo: 0.6, Hi: 0.8},
	},
	MixBand5: {
		name: "mix-band-5", family: FamilyMix,
		description: "blend amplitude with x2, coefficient ~ U(0.8, 1.0)",
		aliases:     []string{"mix_freq2_5"},
		mix:         MixSpec{Reference: Paired, Lo: 0.8, Hi: 1.0},
	},
	MixFixed: {
		name: "mix-fixed", family: FamilyMix,
		description: "blend amplitude with x2 using freq_alpha for every sample",
		mix:         MixSpec{Reference: Paired, Fixed: true, AlphaBound: true},
	},
	MixMean: {
		name: "mix-mean", family: FamilyMix,
		description: "blend amplitude with the batch-mean amplitude of x2 (0.5/0.5)",
		aliases:     []string{"mix_freq3"},
		mix:         MixSpec{Reference: BatchMean, Fixed: true, Value: 0.5},
	},
}

// Variants lists every supported variant in declaration order.
func Variants() []Variant {
	out := make([]Variant, len(registry))
	for i := range registry {
		out[i] = Variant(i)
	}
	return out
}

func (v Variant) valid() bool { return v >= 0 && int(v) < len(registry) }

func (v Variant) String() string {
	if !v.valid() {
		return "unknown"
	}
	return registry[v].name
}

// Family reports the variant's family. Unknown variants report FamilySpatial;
// use ParseVariant or Engine.Transform to get an error instead.
func (v Variant) Family() Family {
	if !v.valid() {
		return FamilySpatial
	}
	return registry[v].family
}

// Description is a one-line human summary.
func (v Variant) Description() string {
	if !v.valid() {
		return ""
	}
	return registry[v].description
}

// Aliases returns the legacy names ParseVariant also accepts.
func (v Variant) Aliases() []string {
	if !v.valid() {
		return nil
	}
	return append([]string(nil), registry[v].aliases...)
}

// MixSpec returns the mixing parameters of a mix-family variant.
func (v Variant) MixSpec() (MixSpec, bool) {
	if !v.valid() || registry[v].family != FamilyMix {
		return MixSpec{}, false
	}
	return registry[v].mix, true
}

// ParseVariant resolves a variant by name or legacy alias.
func ParseVariant(name string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, info := range registry {
		if info.name == key {
			return Variant(i), nil
		}
		for _, a := range info.aliases {
			if a == key {
				return Variant(i), nil
			}
		}
	}
	return 0, &UnsupportedVariantError{Name: name}
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.valid() {
		return nil, &UnsupportedVariantError{Name: v.String()}
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SPDX-License-Identifier: MIT
/*
Package synth implements the sample generators behind every profile:
white, pink and brown noise, the custom spectrally shaped noise, and the
tonal pulse generator.

Hot path:
- The generator variant is resolved once at construction
- Variant dispatch happens once per chunk, never per sample
- Filter and oscillator state live in fixed arrays
- AppendChunk allocates nothing when dst has capacity
*/
package synth

import (
	"errors"
	"fmt"
	"maps"
	"math/rand"

	"noisestream/internal/profile"
)

// ErrUnknownNoiseType is returned for a type or subtype outside the closed
// set of generator variants.
var ErrUnknownNoiseType = errors.New("unknown noise type")

type kind uint8

const (
	kindWhite kind = iota
	kindPink
	kindBrown
	kindCustom
	kindTonal
)

var colorKinds = map[string]kind{
	profile.SubtypeWhite:  kindWhite,
	profile.SubtypePink:   kindPink,
	profile.SubtypeBrown:  kindBrown,
	profile.SubtypeCustom: kindCustom,
}

// Option configures a Generator.
type Option func(*options)

type options struct {
	sampleRate int
}

// WithSampleRate sets the output sample rate. Non-positive values are ignored.
func WithSampleRate(sampleRate int) Option {
	return func(o *options) {
		if sampleRate > 0 {
			o.sampleRate = sampleRate
		}
	}
}

func resolve(opts []Option) options {
	o := options{sampleRate: profile.DefaultSampleRate}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Generator produces an endless sequence of samples for one profile. A
// Generator is owned by a single producer and is not safe for concurrent use.
type Generator struct {
	kind       kind
	profile    profile.Profile
	sampleRate int
	volume     float64
	rng        *rand.Rand

	brown    float64
	pink     [7]float64
	spectral spectralState
	tonal    tonalState

	scratch []float64
}

// New builds a generator from loosely typed settings. Out-of-range parameters
// are clamped; a type or subtype outside the known set fails with
// ErrUnknownNoiseType. Tonal presets ignore params.
func New(typ, subtype string, volume float64, seed profile.Seed, params profile.Parameters, opts ...Option) (*Generator, error) {
	if err := checkKind(profile.Type(typ), subtype); err != nil {
		return nil, err
	}

	merged := make(profile.Parameters, len(params)+2)
	switch {
	case typ == string(profile.ColorNoise) && subtype == profile.SubtypeCustom,
		subtype == profile.SubtypeCustomTonal:
		maps.Copy(merged, params)
	}
	merged[profile.KeyVolume] = volume
	merged[profile.KeySeed] = seed

	o := resolve(opts)
	return FromProfile(profile.NormalizeAt(profile.Raw{
		Type:       typ,
		Subtype:    subtype,
		Parameters: merged,
	}, o.sampleRate), opts...)
}

// FromProfile builds a generator for p. The profile is normalized again at the
// generator's sample rate so cutoffs stay below its Nyquist frequency.
func FromProfile(p profile.Profile, opts ...Option) (*Generator, error) {
	o := resolve(opts)
	if err := checkKind(p.Type, p.Subtype); err != nil {
		return nil, err
	}
	p = profile.NormalizeAt(p.Raw(), o.sampleRate)

	seed := rand.Int63()
	if p.Seed.IsSet() {
		seed = p.Seed.Int64()
	}

	g := &Generator{
		profile:    p,
		sampleRate: o.sampleRate,
		volume:     p.Volume,
		rng:        rand.New(rand.NewSource(seed)),
	}

	switch p.Type {
	case profile.ColorNoise:
		g.kind = colorKinds[p.Subtype]
		if g.kind == kindCustom {
			g.spectral = newSpectralState(*p.Custom, o.sampleRate)
		}
	case profile.TonalNoise:
		g.kind = kindTonal
		g.tonal = newTonalState(*p.Tonal, o.sampleRate)
	}

	return g, nil
}

func checkKind(typ profile.Type, subtype string) error {
	switch typ {
	case profile.ColorNoise:
		if _, ok := colorKinds[subtype]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNoiseType, subtype)
		}
	case profile.TonalNoise:
		if !profile.IsTonalSubtype(subtype) {
			return fmt.Errorf("%w: %q", ErrUnknownNoiseType, subtype)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNoiseType, string(typ))
	}
	return nil
}

// Profile returns the normalized profile the generator was built from.
func (g *Generator) Profile() profile.Profile {
	return g.profile
}

// SampleRate returns the output sample rate.
func (g *Generator) SampleRate() int {
	return g.sampleRate
}

// Volume returns the linear gain applied before encoding.
func (g *Generator) Volume() float64 {
	return g.volume
}

func (g *Generator) uniform() float64 {
	return g.rng.Float64()*2 - 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package profile holds the configuration model for a single noise or tone
// generator: the closed set of types and subtypes, the tonal presets, and the
// normalizer that turns loosely-typed persisted settings into bounded values.
package profile

import (
	"errors"
	"slices"
)

// Type selects the generator family.
type Type string

const (
	ColorNoise Type = "color_noise"
	TonalNoise Type = "tonal_noise"
)

// Types lists the known profile types in display order.
var Types = []Type{ColorNoise, TonalNoise}

// Valid reports whether t is one of the closed set of profile types.
func (t Type) Valid() bool {
	return t == ColorNoise || t == TonalNoise
}

// Color noise subtypes.
const (
	SubtypeWhite  = "white"
	SubtypePink   = "pink"
	SubtypeBrown  = "brown"
	SubtypeCustom = "custom"
)

// SubtypeCustomTonal is the tonal subtype whose parameters are user supplied
// rather than taken from a preset.
const SubtypeCustomTonal = "custom_tonal"

// ColorSubtypes lists the color noise subtypes in display order.
var ColorSubtypes = []string{SubtypeWhite, SubtypePink, SubtypeBrown, SubtypeCustom}

// Waveform is the oscillator shape used by tonal profiles.
type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
	Square   Waveform = "square"
	Saw      Waveform = "saw"
)

// Waveforms lists the supported oscillator shapes. The first entry is the default.
var Waveforms = []Waveform{Sine, Triangle, Square, Saw}

// Valid reports whether w is a supported waveform.
func (w Waveform) Valid() bool {
	return slices.Contains(Waveforms, w)
}

// Defaults and bounds for profile parameters.
const (
	DefaultSampleRate = 44100
	DefaultType       = ColorNoise
	DefaultSubtype    = SubtypeWhite
	DefaultVolume     = 0.5

	DefaultSlope       = 0.0
	DefaultLowCutoff   = 20.0
	DefaultHighCutoff  = 16000.0
	DefaultFilterOrder = 4

	SlopeMin       = -12.0
	SlopeMax       = 12.0
	LowCutoffMin   = 1.0
	FilterOrderMin = 1
	MaxFilterOrder = 8

	// cutoffHeadroom keeps the highest cutoff this far below Nyquist.
	cutoffHeadroom = 200.0
	// cutoffRepairGap is added to the low cutoff when a high cutoff has to be derived.
	cutoffRepairGap = 50.0

	BaseFrequencyMin  = 100.0
	BaseFrequencyMax  = 4000.0
	SecondaryRatioMin = 0.0
	SecondaryRatioMax = 5.0
	PulseDurationMin  = 50.0
	PulseDurationMax  = 4000.0
	PauseDurationMin  = 0.0
	PauseDurationMax  = 3000.0
	AttackMin         = 1.0
	AttackMax         = 1000.0
	DecayMin          = 10.0
	DecayMax          = 4000.0
)

// Canonical parameter keys.
const (
	KeyVolume         = "volume"
	KeySeed           = "seed"
	KeySlope          = "slope"
	KeyLowCutoff      = "low_cutoff"
	KeyHighCutoff     = "high_cutoff"
	KeyFilterOrder    = "filter_order"
	KeyWaveform       = "waveform"
	KeyBaseFrequency  = "base_frequency"
	KeySecondaryRatio = "secondary_ratio"
	KeyPulseDuration  = "pulse_duration_ms"
	KeyPauseDuration  = "pause_duration_ms"
	KeyAttack         = "attack_ms"
	KeyDecay          = "decay_ms"
)

// legacyKeys maps parameter names written by older configuration front-ends
// to their canonical key.
var legacyKeys = map[string]string{
	"Custom slope":          KeySlope,
	"Custom low cutoff":     KeyLowCutoff,
	"Custom high cutoff":    KeyHighCutoff,
	"tonal_waveform":        KeyWaveform,
	"tonal_base_frequency":  KeyBaseFrequency,
	"tonal_secondary_ratio": KeySecondaryRatio,
	"tonal_pulse_duration":  KeyPulseDuration,
	"tonal_pause_duration":  KeyPauseDuration,
	"tonal_attack":          KeyAttack,
	"tonal_decay":           KeyDecay,
}

// ErrInvalidParameterFormat is returned when serialized parameters cannot be
// decoded. Callers are expected to continue with an empty parameter set.
var ErrInvalidParameterFormat = errors.New("invalid parameter format")

// Parameters is the loosely-typed parameter mapping as persisted by the
// configuration layer or passed on the command line.
type Parameters map[string]any

// Raw is the persisted form of a profile.
type Raw struct {
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Type       string     `yaml:"type" json:"type"`
	Subtype    string     `yaml:"subtype" json:"subtype"`
	Parameters Parameters `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// CustomParams shapes the custom colored noise.
type CustomParams struct {
	Slope       float64
	LowCutoff   float64
	HighCutoff  float64
	FilterOrder int
}

// TonalParams describes one pulse cycle of a tonal profile.
type TonalParams struct {
	Waveform        Waveform
	BaseFrequency   float64
	SecondaryRatio  float64
	PulseDurationMS float64
	PauseDurationMS float64
	AttackMS        float64
	DecayMS         float64
}

// Profile is a normalized generator configuration. Every numeric field is
// within its declared bounds. Custom is set only for custom color noise and
// Tonal only for tonal profiles.
type Profile struct {
	Name    string
	Type    Type
	Subtype string
	Volume  float64
	Seed    Seed
	Custom  *CustomParams
	Tonal   *TonalParams
}

// Parameters renders the profile's parameters with canonical keys.
func (p Profile) Parameters() Parameters {
	params := Parameters{KeyVolume: p.Volume}
	if p.Seed.IsSet() {
		params[KeySeed] = p.Seed.Value()
	}
	if c := p.Custom; c != nil {
		params[KeySlope] = c.Slope
		params[KeyLowCutoff] = c.LowCutoff
		params[KeyHighCutoff] = c.HighCutoff
		params[KeyFilterOrder] = c.FilterOrder
	}
	if t := p.Tonal; t != nil {
		params[KeyWaveform] = string(t.Waveform)
		params[KeyBaseFrequency] = t.BaseFrequency
		params[KeySecondaryRatio] = t.SecondaryRatio
		params[KeyPulseDuration] = t.PulseDurationMS
		params[KeyPauseDuration] = t.PauseDurationMS
		params[KeyAttack] = t.AttackMS
		params[KeyDecay] = t.DecayMS
	}
	return params
}

// Raw renders the persisted mapping for the profile.
func (p Profile) Raw() Raw {
	return Raw{
		Name:       p.Name,
		Type:       string(p.Type),
		Subtype:    p.Subtype,
		Parameters: p.Parameters(),
	}
}

// HighCutoffMax is the highest cutoff accepted at the given sample rate.
func HighCutoffMax(sampleRate int) float64 {
	return float64(sampleRate)/2 - cutoffHeadroom
}

// IsColorSubtype reports whether s names a color noise subtype.
func IsColorSubtype(s string) bool {
	return slices.Contains(ColorSubtypes, s)
}

// IsTonalSubtype reports whether s names a tonal preset or custom_tonal.
func IsTonalSubtype(s string) bool {
	if s == SubtypeCustomTonal {
		return true
	}
	_, ok := presetIndex[s]
	return ok
}

package profile

import (
	"slices"
	"strings"
)

// Preset is a named tonal parameter set.
type Preset struct {
	Name   string
	Label  string
	Params TonalParams
}

var presets = []Preset{
	{"gentle_beep", "Gentle beep", TonalParams{Sine, 880, 1.5, 350, 250, 10, 120}},
	{"classic_digital", "Classic digital", TonalParams{Square, 1040, 1.0, 220, 160, 5, 60}},
	{"mellow_bell", "Mellow bell", TonalParams{Triangle, 660, 2.0, 700, 350, 5, 650}},
	{"sunrise_chime", "Sunrise chime", TonalParams{Sine, 520, 3.0, 900, 400, 30, 700}},
	{"soft_sweep", "Soft sweep", TonalParams{Saw, 450, 4.0, 1200, 420, 20, 420}},
	{"retro_buzzer", "Retro buzzer", TonalParams{Square, 640, 0.0, 250, 120, 3, 80}},
	{"duet_beeps", "Duet beeps", TonalParams{Sine, 600, 1.25, 300, 200, 8, 150}},
	{"warm_drone", "Warm drone", TonalParams{Triangle, 220, 1.01, 2200, 120, 320, 900}},
	{"sci_fi_ping", "Sci-fi ping", TonalParams{Sine, 1500, 0.5, 180, 520, 5, 260}},
	{"pop_chime", "Pop chime", TonalParams{Triangle, 784, 1.333, 650, 400, 12, 520}},
}

var presetIndex = func() map[string]int {
	idx := make(map[string]int, len(presets))
	for i, p := range presets {
		idx[p.Name] = i
	}
	return idx
}()

// DefaultTonalSubtype is the fallback for unknown tonal subtypes.
var DefaultTonalSubtype = presets[0].Name

// customTonalDefaults fills parameters missing from a custom_tonal profile.
var customTonalDefaults = TonalParams{
	Waveform:        Sine,
	BaseFrequency:   880,
	SecondaryRatio:  0,
	PulseDurationMS: 400,
	PauseDurationMS: 300,
	AttackMS:        10,
	DecayMS:         150,
}

var colorLabels = map[string]string{
	SubtypeWhite:  "White noise",
	SubtypePink:   "Pink noise",
	SubtypeBrown:  "Brown noise",
	SubtypeCustom: "Custom colored noise",
}

const customTonalLabel = "Custom tonal sound"

// Presets returns the tonal presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	i, ok := presetIndex[name]
	if !ok {
		return Preset{}, false
	}
	return presets[i], true
}

// TonalSubtypes lists every tonal subtype, presets first.
func TonalSubtypes() []string {
	out := make([]string, 0, len(presets)+1)
	for _, p := range presets {
		out = append(out, p.Name)
	}
	return append(out, SubtypeCustomTonal)
}

// Label returns the human readable name of a subtype, or the subtype itself
// when it is not known.
func Label(subtype string) string {
	if l, ok := colorLabels[subtype]; ok {
		return l
	}
	if p, ok := LookupPreset(subtype); ok {
		return p.Label
	}
	if subtype == SubtypeCustomTonal {
		return customTonalLabel
	}
	return subtype
}

// CategoryLabel returns the label shown in grouped selectors, such as
// "Colored noises · Pink noise".
func CategoryLabel(subtype string) string {
	switch {
	case IsColorSubtype(subtype):
		return "Colored noises · " + Label(subtype)
	case IsTonalSubtype(subtype):
		return "Tonal noises · " + Label(subtype)
	}
	return subtype
}

// CanonicalSubtype maps a raw subtype or a display label back to the
// canonical subtype. Unknown values are returned trimmed but otherwise as is.
func CanonicalSubtype(value string) string {
	candidate := strings.TrimSpace(value)
	if IsColorSubtype(candidate) || IsTonalSubtype(candidate) {
		return candidate
	}
	if _, after, ok := strings.Cut(candidate, "·"); ok {
		candidate = strings.TrimSpace(after)
	}
	for _, subtype := range append(slices.Clone(ColorSubtypes), TonalSubtypes()...) {
		if strings.EqualFold(candidate, Label(subtype)) {
			return subtype
		}
	}
	return candidate
}

// Builtins returns one profile per subtype, named after the subtype. The
// parameters are left empty so normalization supplies the defaults.
func Builtins() []Raw {
	out := make([]Raw, 0, len(ColorSubtypes)+len(presets)+1)
	for _, s := range ColorSubtypes {
		out = append(out, Raw{Name: s, Type: string(ColorNoise), Subtype: s})
	}
	for _, s := range TonalSubtypes() {
		out = append(out, Raw{Name: s, Type: string(TonalNoise), Subtype: s})
	}
	return out
}

// Builtin returns the built-in profile with the given name.
func Builtin(name string) (Raw, bool) {
	for _, r := range Builtins() {
		if r.Name == name {
			return r, true
		}
	}
	return Raw{}, false
}

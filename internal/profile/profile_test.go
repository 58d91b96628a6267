package profile

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestNormalizeClamping(t *testing.T) {
	p := Normalize(Raw{
		Type:    "color_noise",
		Subtype: "custom",
		Parameters: Parameters{
			"volume":       1.5,
			"slope":        99.0,
			"filter_order": 20,
			"low_cutoff":   20.0,
			"high_cutoff":  16000.0,
		},
	})

	if p.Volume != 1.0 {
		t.Errorf("Volume = %v, want 1.0", p.Volume)
	}
	if p.Custom == nil {
		t.Fatal("Custom params missing for custom subtype")
	}
	if p.Custom.Slope != 12 {
		t.Errorf("Slope = %v, want 12", p.Custom.Slope)
	}
	if p.Custom.FilterOrder != 8 {
		t.Errorf("FilterOrder = %v, want 8", p.Custom.FilterOrder)
	}
}

func TestNormalizeCutoffOrdering(t *testing.T) {
	highMax := HighCutoffMax(DefaultSampleRate)
	if highMax != 21850 {
		t.Fatalf("HighCutoffMax(44100) = %v, want 21850", highMax)
	}

	tests := []struct {
		name     string
		low      float64
		high     float64
		wantHigh float64
	}{
		{"low above high", 20000, 16000, 20050},
		{"equal cutoffs", 500, 500, 550},
		{"near the ceiling", 21840, 100, 21850},
		{"low below floor", -10, -5, 51},
		{"already ordered", 100, 8000, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(Raw{
				Type:       "color_noise",
				Subtype:    "custom",
				Parameters: Parameters{"low_cutoff": tt.low, "high_cutoff": tt.high},
			})
			c := p.Custom
			if c.HighCutoff != tt.wantHigh {
				t.Errorf("HighCutoff = %v, want %v", c.HighCutoff, tt.wantHigh)
			}
			if c.HighCutoff <= c.LowCutoff {
				t.Errorf("HighCutoff %v must exceed LowCutoff %v", c.HighCutoff, c.LowCutoff)
			}
			if tt.high <= tt.low {
				want := math.Min(math.Max(c.LowCutoff+50, 2), highMax)
				if c.HighCutoff != want {
					t.Errorf("derived HighCutoff = %v, want %v", c.HighCutoff, want)
				}
			}
		})
	}
}

func TestNormalizeLowCutoffAtCeiling(t *testing.T) {
	p := Normalize(Raw{
		Type:       "color_noise",
		Subtype:    "custom",
		Parameters: Parameters{"low_cutoff": 30000.0, "high_cutoff": 40000.0},
	})
	if p.Custom.HighCutoff <= p.Custom.LowCutoff {
		t.Errorf("cutoffs not ordered: low=%v high=%v", p.Custom.LowCutoff, p.Custom.HighCutoff)
	}
	if p.Custom.HighCutoff != 21850 {
		t.Errorf("HighCutoff = %v, want 21850", p.Custom.HighCutoff)
	}
}

func TestNormalizeLegacyType(t *testing.T) {
	tests := []struct {
		name        string
		raw         Raw
		wantType    Type
		wantSubtype string
	}{
		{"subtype stored in type", Raw{Type: "pink"}, ColorNoise, SubtypePink},
		{"unknown type", Raw{Type: "radio", Subtype: "brown"}, ColorNoise, SubtypeBrown},
		{"unknown color subtype", Raw{Type: "color_noise", Subtype: "not_a_color"}, ColorNoise, SubtypeWhite},
		{"unknown tonal subtype", Raw{Type: "tonal_noise", Subtype: "siren"}, TonalNoise, "gentle_beep"},
		{"category label", Raw{Type: "color_noise", Subtype: "Colored noises · Brown noise"}, ColorNoise, SubtypeBrown},
		{"preset label", Raw{Type: "tonal_noise", Subtype: "retro buzzer"}, TonalNoise, "retro_buzzer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.raw)
			if p.Type != tt.wantType || p.Subtype != tt.wantSubtype {
				t.Errorf("Normalize() = (%s, %s), want (%s, %s)", p.Type, p.Subtype, tt.wantType, tt.wantSubtype)
			}
		})
	}
}

func TestNormalizeDropsForeignFields(t *testing.T) {
	p := Normalize(Raw{
		Type:    "color_noise",
		Subtype: "pink",
		Parameters: Parameters{
			"slope":      4.0,
			"low_cutoff": 100.0,
			"seed":       "",
		},
	})
	if p.Custom != nil || p.Tonal != nil {
		t.Error("pink noise should not carry custom or tonal parameters")
	}
	if p.Seed.IsSet() {
		t.Error("empty seed should be dropped")
	}

	params := p.Parameters()
	for _, key := range []string{KeySlope, KeyLowCutoff, KeyHighCutoff, KeySeed} {
		if _, ok := params[key]; ok {
			t.Errorf("parameter %q should have been dropped", key)
		}
	}
	if params[KeyVolume] != DefaultVolume {
		t.Errorf("volume = %v, want default %v", params[KeyVolume], DefaultVolume)
	}
}

func TestNormalizeTonalPresetIgnoresParameters(t *testing.T) {
	for _, name := range []string{"mellow_bell", "retro_buzzer"} {
		t.Run(name, func(t *testing.T) {
			p := Normalize(Raw{
				Type:    "tonal_noise",
				Subtype: name,
				Parameters: Parameters{
					"base_frequency": 3000.0,
					"waveform":       "saw",
					"decay":          5,
				},
			})
			if p.Tonal == nil {
				t.Fatal("tonal params missing")
			}
			preset, _ := LookupPreset(name)
			if *p.Tonal != preset.Params {
				t.Errorf("Tonal = %+v, want preset %+v", *p.Tonal, preset.Params)
			}
			if got := p.Parameters()[KeyBaseFrequency]; got != preset.Params.BaseFrequency {
				t.Errorf("reported base_frequency = %v, want %v", got, preset.Params.BaseFrequency)
			}
		})
	}
}

func TestNormalizeCustomTonalUsesParameters(t *testing.T) {
	p := Normalize(Raw{
		Type:       "tonal_noise",
		Subtype:    "custom_tonal",
		Parameters: Parameters{"base_frequency": 9000.0},
	})
	if p.Tonal == nil {
		t.Fatal("tonal params missing")
	}
	if p.Tonal.BaseFrequency != BaseFrequencyMax {
		t.Errorf("BaseFrequency = %v, want clamped %v", p.Tonal.BaseFrequency, BaseFrequencyMax)
	}
	if p.Tonal.DecayMS != customTonalDefaults.DecayMS {
		t.Errorf("DecayMS = %v, want default %v", p.Tonal.DecayMS, customTonalDefaults.DecayMS)
	}
}

func TestNormalizeFilterOrderNonFinite(t *testing.T) {
	tests := []struct {
		value any
		want  int
	}{
		{"Inf", MaxFilterOrder},
		{"+Inf", MaxFilterOrder},
		{"-Inf", FilterOrderMin},
		{math.Inf(1), MaxFilterOrder},
		{1e300, MaxFilterOrder},
		{"NaN", DefaultFilterOrder},
		{7.9, 7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			p := Normalize(Raw{
				Type:       "color_noise",
				Subtype:    "custom",
				Parameters: Parameters{"filter_order": tt.value},
			})
			if p.Custom.FilterOrder != tt.want {
				t.Errorf("FilterOrder = %d, want %d", p.Custom.FilterOrder, tt.want)
			}
		})
	}
}

func TestNormalizeLegacyKeys(t *testing.T) {
	p := Normalize(Raw{
		Type:    "tonal_noise",
		Subtype: "custom_tonal",
		Parameters: Parameters{
			"tonal_waveform":       "Square",
			"tonal_pulse_duration": 300,
			"tonal_pause_duration": "0",
			"tonal_attack":         0.0,
		},
	})
	tp := p.Tonal
	if tp.Waveform != Square {
		t.Errorf("Waveform = %s, want square", tp.Waveform)
	}
	if tp.PulseDurationMS != 300 || tp.PauseDurationMS != 0 {
		t.Errorf("durations = %v/%v, want 300/0", tp.PulseDurationMS, tp.PauseDurationMS)
	}
	if tp.AttackMS != AttackMin {
		t.Errorf("AttackMS = %v, want clamped %v", tp.AttackMS, AttackMin)
	}
	if tp.BaseFrequency != customTonalDefaults.BaseFrequency {
		t.Errorf("BaseFrequency = %v, want default %v", tp.BaseFrequency, customTonalDefaults.BaseFrequency)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize(Raw{
		Name:       "bedroom",
		Type:       "color_noise",
		Subtype:    "custom",
		Parameters: Parameters{"slope": -3.5, "low_cutoff": 40, "high_cutoff": 9000, "seed": 7},
	})
	second := Normalize(first.Raw())

	if *first.Custom != *second.Custom || first.Volume != second.Volume || first.Seed != second.Seed {
		t.Errorf("re-normalizing changed the profile: %+v vs %+v", first, second)
	}
	if second.Name != "bedroom" {
		t.Errorf("Name = %q, want bedroom", second.Name)
	}
}

func TestParseParameters(t *testing.T) {
	params, err := ParseParameters(`{"slope": -6, "seed": 12345678901234}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := floatParam(params, KeySlope, 0); got != -6 {
		t.Errorf("slope = %v, want -6", got)
	}
	if seed := SeedFrom(params[KeySeed]); seed.Int64() != 12345678901234 {
		t.Errorf("seed = %v, want 12345678901234", seed)
	}

	for _, input := range []string{"{not json", "[1,2]", `"text"`} {
		params, err := ParseParameters(input)
		if !errors.Is(err, ErrInvalidParameterFormat) {
			t.Errorf("ParseParameters(%q) error = %v, want ErrInvalidParameterFormat", input, err)
		}
		if params == nil || len(params) != 0 {
			t.Errorf("ParseParameters(%q) = %v, want empty set", input, params)
		}
	}

	if params, err := ParseParameters(""); err != nil || len(params) != 0 {
		t.Errorf("empty input should yield empty parameters, got %v, %v", params, err)
	}
}

func TestSeeds(t *testing.T) {
	tests := []struct {
		input string
		set   bool
		value any
	}{
		{"", false, nil},
		{"None", false, nil},
		{"42", true, int64(42)},
		{"-7", true, int64(-7)},
		{"ocean", true, "ocean"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := ParseSeed(tt.input)
			if s.IsSet() != tt.set || s.Value() != tt.value {
				t.Errorf("ParseSeed(%q) = (%v, %v), want (%v, %v)", tt.input, s.IsSet(), s.Value(), tt.set, tt.value)
			}
		})
	}

	if StringSeed("ocean").Int64() != StringSeed("ocean").Int64() {
		t.Error("text seeds must hash deterministically")
	}
	if StringSeed("ocean").Int64() == StringSeed("forest").Int64() {
		t.Error("different text seeds should differ")
	}
	if SeedFrom(float64(3)) != IntSeed(3) {
		t.Error("integral floats should become integer seeds")
	}
}

func TestCanonicalSubtype(t *testing.T) {
	tests := []struct{ in, want string }{
		{"pink", "pink"},
		{"  brown ", "brown"},
		{"White noise", "white"},
		{"Tonal noises · Sci-fi ping", "sci_fi_ping"},
		{"Tonal noises · Custom tonal sound", "custom_tonal"},
		{"mystery", "mystery"},
	}
	for _, tt := range tests {
		if got := CanonicalSubtype(tt.in); got != tt.want {
			t.Errorf("CanonicalSubtype(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuiltins(t *testing.T) {
	builtins := Builtins()
	if len(builtins) != len(ColorSubtypes)+len(Presets())+1 {
		t.Fatalf("got %d builtins", len(builtins))
	}
	for _, raw := range builtins {
		p := Normalize(raw)
		if p.Subtype != raw.Subtype || string(p.Type) != raw.Type {
			t.Errorf("builtin %q normalized to %s/%s", raw.Name, p.Type, p.Subtype)
		}
	}
	if _, ok := Builtin("warm_drone"); !ok {
		t.Error("warm_drone should be a builtin")
	}
	if _, ok := Builtin("nope"); ok {
		t.Error("unexpected builtin")
	}
}

package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize returns the canonical, bounded form of raw at the default sample
// rate. It never fails: out-of-range values are clamped and unknown subtypes
// fall back to the family default.
func Normalize(raw Raw) Profile {
	return NormalizeAt(raw, DefaultSampleRate)
}

// NormalizeAt is Normalize for a specific sample rate. The rate bounds the
// custom noise cutoffs.
func NormalizeAt(raw Raw, sampleRate int) Profile {
	typ, subtype := resolveKind(raw.Type, raw.Subtype)
	params := canonicalParameters(raw.Parameters)

	p := Profile{
		Name:    raw.Name,
		Type:    typ,
		Subtype: subtype,
		Volume:  clamp(floatParam(params, KeyVolume, DefaultVolume), 0, 1),
		Seed:    SeedFrom(params[KeySeed]),
	}

	switch {
	case typ == ColorNoise && subtype == SubtypeCustom:
		c := normalizeCustom(params, sampleRate)
		p.Custom = &c
	case typ == TonalNoise:
		t := normalizeTonal(subtype, params)
		p.Tonal = &t
	}
	return p
}

// resolveKind maps raw type and subtype strings onto the closed enumerations.
// Older configurations stored the color subtype directly in the type field.
func resolveKind(rawType, rawSubtype string) (Type, string) {
	subtype := CanonicalSubtype(rawSubtype)
	typ := Type(strings.TrimSpace(rawType))
	if !typ.Valid() {
		if legacy := CanonicalSubtype(rawType); IsColorSubtype(legacy) {
			subtype = legacy
			typ = ColorNoise
		} else {
			typ = DefaultType
		}
	}

	switch typ {
	case ColorNoise:
		if !IsColorSubtype(subtype) {
			subtype = DefaultSubtype
		}
	case TonalNoise:
		if !IsTonalSubtype(subtype) {
			subtype = DefaultTonalSubtype
		}
	}
	return typ, subtype
}

func normalizeCustom(params Parameters, sampleRate int) CustomParams {
	highMax := HighCutoffMax(sampleRate)

	// The low cutoff keeps one hertz of room so a valid high cutoff always exists.
	low := clamp(floatParam(params, KeyLowCutoff, DefaultLowCutoff), LowCutoffMin, highMax-1)
	high := floatParam(params, KeyHighCutoff, DefaultHighCutoff)
	if high <= low {
		high = math.Min(math.Max(low+cutoffRepairGap, LowCutoffMin+1), highMax)
	}
	high = clamp(high, low+1, highMax)

	// Clamp before converting: int(±Inf) is undefined.
	order := int(clamp(floatParam(params, KeyFilterOrder, DefaultFilterOrder), FilterOrderMin, MaxFilterOrder))

	return CustomParams{
		Slope:       clamp(floatParam(params, KeySlope, DefaultSlope), SlopeMin, SlopeMax),
		LowCutoff:   low,
		HighCutoff:  high,
		FilterOrder: order,
	}
}

// normalizeTonal resolves the tone for subtype. Presets are fixed sounds and
// ignore params.
func normalizeTonal(subtype string, params Parameters) TonalParams {
	if preset, ok := LookupPreset(subtype); ok {
		return preset.Params
	}
	fallback := customTonalDefaults

	waveform := fallback.Waveform
	if v, ok := params[KeyWaveform]; ok {
		waveform = Waveform(strings.ToLower(strings.TrimSpace(fmt.Sprint(v))))
	}
	if !waveform.Valid() {
		waveform = Waveforms[0]
	}

	return TonalParams{
		Waveform:        waveform,
		BaseFrequency:   clamp(floatParam(params, KeyBaseFrequency, fallback.BaseFrequency), BaseFrequencyMin, BaseFrequencyMax),
		SecondaryRatio:  clamp(floatParam(params, KeySecondaryRatio, fallback.SecondaryRatio), SecondaryRatioMin, SecondaryRatioMax),
		PulseDurationMS: clamp(floatParam(params, KeyPulseDuration, fallback.PulseDurationMS), PulseDurationMin, PulseDurationMax),
		PauseDurationMS: clamp(floatParam(params, KeyPauseDuration, fallback.PauseDurationMS), PauseDurationMin, PauseDurationMax),
		AttackMS:        clamp(floatParam(params, KeyAttack, fallback.AttackMS), AttackMin, AttackMax),
		DecayMS:         clamp(floatParam(params, KeyDecay, fallback.DecayMS), DecayMin, DecayMax),
	}
}

// canonicalParameters copies params, rewriting legacy keys. A canonical key
// wins over its legacy alias when both are present.
func canonicalParameters(params Parameters) Parameters {
	out := make(Parameters, len(params))
	for k, v := range params {
		if canonical, ok := legacyKeys[k]; ok {
			if _, exists := params[canonical]; exists {
				continue
			}
			k = canonical
		}
		out[k] = v
	}
	return out
}

// ParseParameters decodes a JSON object of parameters. Malformed input yields
// an empty, usable parameter set together with an error wrapping
// ErrInvalidParameterFormat.
func ParseParameters(s string) (Parameters, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Parameters{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var params Parameters
	if err := dec.Decode(&params); err != nil {
		return Parameters{}, fmt.Errorf("%w: %v", ErrInvalidParameterFormat, err)
	}
	if params == nil {
		return Parameters{}, nil
	}
	return params, nil
}

// floatParam reads a numeric parameter, accepting the representations
// produced by JSON, YAML and form input. Missing or unparsable values yield def.
func floatParam(params Parameters, key string, def float64) float64 {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case uint:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) {
		return def
	}
	return f
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

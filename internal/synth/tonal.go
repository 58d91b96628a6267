// SPDX-License-Identifier: MIT
package synth

import (
	"math"

	"noisestream/internal/profile"
)

const (
	primaryMix   = 0.6
	secondaryMix = 0.4
)

type waveform uint8

const (
	waveSine waveform = iota
	waveTriangle
	waveSquare
	waveSaw
)

var waveforms = map[profile.Waveform]waveform{
	profile.Sine:     waveSine,
	profile.Triangle: waveTriangle,
	profile.Square:   waveSquare,
	profile.Saw:      waveSaw,
}

// tonalState is a repeating pulse followed by a pause. All durations are in
// samples.
type tonalState struct {
	wave  waveform
	ratio float64

	pulse  int
	pause  int
	attack int
	decay  int
	cycle  int

	pos    int
	phase  float64
	phase2 float64
	step   float64
	step2  float64
}

func newTonalState(p profile.TonalParams, sampleRate int) tonalState {
	sr := float64(sampleRate)
	samples := func(ms float64) int {
		return int(math.Floor(ms * sr / 1000))
	}

	t := tonalState{
		wave:   waveforms[p.Waveform],
		ratio:  p.SecondaryRatio,
		pulse:  max(1, samples(p.PulseDurationMS)),
		pause:  max(0, samples(p.PauseDurationMS)),
		attack: max(1, samples(p.AttackMS)),
		decay:  max(1, samples(p.DecayMS)),
		step:   p.BaseFrequency / sr,
		step2:  p.BaseFrequency * p.SecondaryRatio / sr,
	}
	t.cycle = t.pulse + t.pause
	return t
}

func (t *tonalState) osc(phase float64) float64 {
	switch t.wave {
	case waveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case waveTriangle:
		return 4*math.Abs(phase-0.5) - 1
	case waveSaw:
		return 2 * (phase - 0.5)
	}
	return math.Sin(2 * math.Pi * phase)
}

// advance returns the phase moved forward by step, wrapped into [0, 1).
func advance(phase, step float64) float64 {
	phase += step
	return phase - math.Floor(phase)
}

// fillTonal renders the pulse pattern. Oscillator phases only advance while
// the pulse sounds; the pause is exact silence.
func (g *Generator) fillTonal(out []float64) {
	t := &g.tonal
	for i := range out {
		pos := t.pos
		if t.pos++; t.pos >= t.cycle {
			t.pos = 0
		}

		if pos >= t.pulse {
			out[i] = 0
			continue
		}

		t.phase = advance(t.phase, t.step)
		v := t.osc(t.phase)
		if t.ratio > 0 {
			t.phase2 = advance(t.phase2, t.step2)
			v = primaryMix*v + secondaryMix*t.osc(t.phase2)
		}

		if pos < t.attack {
			v *= float64(pos) / float64(t.attack)
		} else if pos > t.pulse-t.decay {
			v *= float64(t.pulse-pos) / float64(t.decay)
		}
		out[i] = v
	}
}

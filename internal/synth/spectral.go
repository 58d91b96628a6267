// SPDX-License-Identifier: MIT
package synth

import (
	"math"

	"noisestream/internal/profile"
)

const (
	highPassLimit = 1.5
	slopeRange    = 12.0
)

// spectralState holds the custom noise filter cascade. Only the first order
// poles of each array are used.
type spectralState struct {
	tilt    float64
	order   int
	hpAlpha float64
	lpAlpha float64

	hpPrevY [profile.MaxFilterOrder]float64
	hpPrevX [profile.MaxFilterOrder]float64
	lpPrevY [profile.MaxFilterOrder]float64

	prevWhite float64
	brown     float64
}

func newSpectralState(c profile.CustomParams, sampleRate int) spectralState {
	return spectralState{
		tilt:    c.Slope / slopeRange,
		order:   max(1, min(c.FilterOrder, profile.MaxFilterOrder)),
		hpAlpha: highPassAlpha(c.LowCutoff, sampleRate),
		lpAlpha: lowPassAlpha(c.HighCutoff, sampleRate),
	}
}

// highPassAlpha is RC/(RC+dt) for a one-pole high-pass at cutoff.
func highPassAlpha(cutoff float64, sampleRate int) float64 {
	if cutoff <= 0 {
		return 0
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	return rc / (rc + dt)
}

// lowPassAlpha is dt/(RC+dt) for a one-pole low-pass at cutoff.
func lowPassAlpha(cutoff float64, sampleRate int) float64 {
	if cutoff <= 0 {
		return 1
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

// fillCustom blends white with blue or brown noise according to tilt, then
// band-limits the result with order high-pass and order low-pass poles.
func (g *Generator) fillCustom(out []float64) {
	s := &g.spectral
	hp := s.hpPrevY[:s.order]
	hpIn := s.hpPrevX[:s.order]
	lp := s.lpPrevY[:s.order]

	for i := range out {
		white := g.uniform()

		brown := clamp(s.brown+white*brownStep, -1, 1)
		s.brown = brown * brownDamping

		blue := clamp(white-s.prevWhite, -1, 1)
		s.prevWhite = white

		var x float64
		if s.tilt >= 0 {
			x = (1-s.tilt)*white + s.tilt*blue
		} else {
			x = (1+s.tilt)*white - s.tilt*brown
		}

		for p := range hp {
			y := s.hpAlpha * (hp[p] + x - hpIn[p])
			hp[p] = y
			hpIn[p] = x
			x = y
		}
		x = clamp(x, -highPassLimit, highPassLimit)

		for p := range lp {
			lp[p] += s.lpAlpha * (x - lp[p])
			x = lp[p]
		}
		out[i] = clamp(x, -1, 1)
	}
}

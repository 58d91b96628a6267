package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name    string
	LowHz   float64
	HighHz  float64
	Energy  float64 // Mean bin power in dB
	numBins int
}

// CenterHz is the geometric center of the band.
func (b FrequencyBand) CenterHz() float64 {
	return math.Sqrt(b.LowHz * b.HighHz)
}

// OctaveBands splits [lo, hi) into octaves starting at lo. The last band is
// cut at hi.
func OctaveBands(lo, hi float64) []FrequencyBand {
	var bands []FrequencyBand
	for f := lo; f < hi; f *= 2 {
		top := min(2*f, hi)
		bands = append(bands, FrequencyBand{
			Name:   fmt.Sprintf("%.0f-%.0f", f, top),
			LowHz:  f,
			HighHz: top,
		})
	}
	return bands
}

// BandEnergies averages the spectrum power inside each band. Bands without
// bins are left at -Inf.
func BandEnergies(spec *Spectrum, bands []FrequencyBand) []FrequencyBand {
	out := make([]FrequencyBand, len(bands))
	copy(out, bands)

	sums := make([]float64, len(out))
	for i, p := range spec.Power {
		freq := spec.FrequencyForBin(i)
		for j := range out {
			if freq >= out[j].LowHz && freq < out[j].HighHz {
				sums[j] += p
				out[j].numBins++
				break
			}
		}
	}

	for j := range out {
		if out[j].numBins == 0 {
			out[j].Energy = math.Inf(-1)
			continue
		}
		out[j].Energy = powerDB(sums[j] / float64(out[j].numBins))
	}
	return out
}

// SlopeFit is a straight line through band energies against log2 frequency.
type SlopeFit struct {
	DBPerOctave float64
	Intercept   float64
	RSquared    float64
}

// FitSlope regresses band energy (dB) on octave position. Bands without
// energy are skipped.
func FitSlope(bands []FrequencyBand) (SlopeFit, error) {
	xs := make([]float64, 0, len(bands))
	ys := make([]float64, 0, len(bands))
	for _, b := range bands {
		if math.IsInf(b.Energy, 0) || math.IsNaN(b.Energy) {
			continue
		}
		xs = append(xs, math.Log2(b.CenterHz()))
		ys = append(ys, b.Energy)
	}
	if len(xs) < 2 {
		return SlopeFit{}, fmt.Errorf("need at least 2 bands with energy, have %d", len(xs))
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return SlopeFit{
		DBPerOctave: beta,
		Intercept:   alpha,
		RSquared:    stat.RSquared(xs, ys, nil, alpha, beta),
	}, nil
}

func powerDB(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(p)
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"noisestream/internal/pcm"
)

// Collector is an io.Writer sink for a headerless PCM stream. It keeps the
// decoded samples for analysis.
type Collector struct {
	samples []int16
	pending []byte
}

// NewCollector reserves room for capacity samples.
func NewCollector(capacity int) *Collector {
	return &Collector{samples: make([]int16, 0, capacity)}
}

func (c *Collector) Write(p []byte) (int, error) {
	n := len(p)
	if len(c.pending) > 0 && len(p) > 0 {
		c.pending = append(c.pending, p[0])
		c.samples = pcm.DecodeFrames(c.samples, c.pending)
		c.pending = c.pending[:0]
		p = p[1:]
	}
	even := len(p) &^ 1
	c.samples = pcm.DecodeFrames(c.samples, p[:even])
	c.pending = append(c.pending, p[even:]...)
	return n, nil
}

// Samples returns the decoded samples.
func (c *Collector) Samples() []int16 {
	return c.samples
}

// Options selects how a signal is analyzed.
type Options struct {
	SampleRate   int
	FFTSize      int
	Window       WindowFunc
	MinFrequency float64
	MaxFrequency float64
}

// Report summarizes the spectrum of a signal.
type Report struct {
	Samples  int
	RMSDBFS  float64
	PeakHz   float64
	Segments int
	Bands    []FrequencyBand
	Slope    SlopeFit
}

// Analyze measures the spectral slope of samples over octave bands between
// the configured frequencies.
func Analyze(samples []int16, opts Options) (Report, error) {
	if opts.MinFrequency <= 0 || opts.MaxFrequency <= opts.MinFrequency {
		return Report{}, fmt.Errorf("invalid frequency range [%v, %v]", opts.MinFrequency, opts.MaxFrequency)
	}

	signal := make([]float64, len(samples))
	for i, s := range samples {
		signal[i] = float64(s) / -math.MinInt16
	}

	spec, err := Welch(signal, float64(opts.SampleRate), opts.FFTSize, opts.Window)
	if err != nil {
		return Report{}, err
	}

	bands := BandEnergies(spec, OctaveBands(opts.MinFrequency, opts.MaxFrequency))
	fit, err := FitSlope(bands)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Samples:  len(samples),
		RMSDBFS:  20 * math.Log10(math.Sqrt(floats.Dot(signal, signal)/float64(len(signal)))),
		PeakHz:   spec.PeakFrequency(opts.MinFrequency, opts.MaxFrequency),
		Segments: spec.Segments,
		Bands:    bands,
		Slope:    fit,
	}, nil
}

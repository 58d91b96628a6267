// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"noisestream/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var (
	ErrFFTSize     = errors.New("fft size must be a power of 2")
	ErrSampleRate  = errors.New("sample rate must be positive")
	ErrShortSignal = errors.New("signal shorter than one fft segment")
)

// Spectrum is an averaged power spectrum of a real signal.
type Spectrum struct {
	SampleRate float64
	FFTSize    int
	Segments   int
	// Power holds the mean squared magnitude of bins 0..FFTSize/2.
	Power []float64
}

// Welch estimates the power spectrum of signal by averaging windowed FFTs of
// fftSize samples overlapping by half.
func Welch(signal []float64, sampleRate float64, fftSize int, windowType WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrFFTSize, fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %f", ErrSampleRate, sampleRate)
	}
	if len(signal) < fftSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortSignal, len(signal), fftSize)
	}

	fft := fourier.NewFFT(fftSize)
	coeffs := make([]float64, fftSize)
	applyWindow(coeffs, windowType)

	// Workspace reused by every segment.
	input := make([]float64, fftSize)
	output := make([]complex128, fftSize/2+1)
	spec := &Spectrum{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		Power:      make([]float64, fftSize/2+1),
	}

	hop := fftSize / 2
	for start := 0; start+fftSize <= len(signal); start += hop {
		for i := range input {
			input[i] = signal[start+i] * coeffs[i]
		}
		fft.Coefficients(output, input)
		for i, c := range output {
			m := cmplx.Abs(c)
			spec.Power[i] += m * m
		}
		spec.Segments++
	}

	for i := range spec.Power {
		spec.Power[i] /= float64(spec.Segments)
	}
	return spec, nil
}

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (s *Spectrum) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(s.Power) {
		return 0.0
	}
	// Frequency resolution = sampleRate / fftSize
	return float64(binIndex) * (s.SampleRate / float64(s.FFTSize))
}

// BinForFrequency returns the bin closest to freq, clamped to the spectrum.
func (s *Spectrum) BinForFrequency(freq float64) int {
	bin := int(freq*float64(s.FFTSize)/s.SampleRate + 0.5)
	return max(0, min(bin, len(s.Power)-1))
}

// PeakFrequency returns the frequency of the strongest bin in [lo, hi] Hz.
func (s *Spectrum) PeakFrequency(lo, hi float64) float64 {
	return s.FrequencyForBin(findPeakBin(s.Power, s.BinForFrequency(lo), s.BinForFrequency(hi)))
}

// findPeakBin returns the index of the largest magnitude in [start, end].
// The range is clamped to mags.
func findPeakBin(mags []float64, start, end int) int {
	start = max(start, 0)
	end = min(end, len(mags)-1)

	peak := start
	for i := start + 1; i <= end; i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	return peak
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window function. Unknown types
// fall back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window functions scale their input in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}

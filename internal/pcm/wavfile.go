// SPDX-License-Identifier: MIT
package pcm

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a valid WAV file")

// FileWriter writes a finite mono 16-bit WAV file. The header sizes are
// patched by Close.
type FileWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	written int
}

// NewFileWriter creates path and prepares a WAV encoder at sampleRate.
func NewFileWriter(path string, sampleRate int) (*FileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return &FileWriter{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, BitsPerSample, Channels, formatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: Channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: BitsPerSample,
		},
	}, nil
}

// WriteSamples appends samples to the file. The conversion buffer is reused
// between calls.
func (w *FileWriter) WriteSamples(samples []int16) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(s)
	}

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.written += len(samples)
	return nil
}

// Written reports the number of samples written so far.
func (w *FileWriter) Written() int {
	return w.written
}

// Close finalizes the WAV header and closes the file.
func (w *FileWriter) Close() error {
	if w.encoder != nil {
		if err := w.encoder.Close(); err != nil {
			w.file.Close()
			return fmt.Errorf("failed to finalize WAV: %w", err)
		}
		w.encoder = nil
	}

	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	return nil
}

// WriteWAVFile writes samples to a new WAV file at path.
func WriteWAVFile(path string, sampleRate int, samples []int16) error {
	w, err := NewFileWriter(path, sampleRate)
	if err != nil {
		return err
	}
	if err := w.WriteSamples(samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadWAVFile decodes a mono or multi-channel PCM WAV file. Only the first
// channel is returned, rescaled to 16 bits.
func ReadWAVFile(path string) (samples []int16, sampleRate int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := max(1, int(dec.NumChans))
	shift := int(dec.BitDepth) - BitsPerSample

	samples = make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		v := buf.Data[i]
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		samples = append(samples, int16(v))
	}

	return samples, int(dec.SampleRate), nil
}

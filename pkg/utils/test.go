// SPDX-License-Identifier: MIT
//
// Package utils holds signal and transport helpers shared by tests.
package utils

import (
	"bytes"
	"math"
)

// MockTransport records every message sent through it.
type MockTransport struct {
	Packets [][]byte
	Err     error // returned by Send when set
	Closed  bool
}

// Send stores a copy of data.
func (m *MockTransport) Send(data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Packets = append(m.Packets, bytes.Clone(data))
	return nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() []byte {
	if len(m.Packets) == 0 {
		return nil
	}
	return m.Packets[len(m.Packets)-1]
}

// GenerateSineWave returns size samples of a full-scale sine at frequency.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	out := make([]int16, size)
	for i := range out {
		out[i] = int16(math.MaxInt16 * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate))
	}
	return out
}

// GenerateComplexWave returns size samples mixing 440 Hz, 880 Hz and
// 1760 Hz sines at decreasing levels.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	out := make([]int16, size)
	for i := range out {
		t := float64(i) / sampleRate
		v := 0.5*math.Sin(2*math.Pi*440*t) +
			0.3*math.Sin(2*math.Pi*880*t) +
			0.2*math.Sin(2*math.Pi*1760*t)
		out[i] = int16(math.MaxInt16 * v)
	}
	return out
}

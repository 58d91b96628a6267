// SPDX-License-Identifier: MIT

// Package pcm encodes floating point samples as 16-bit little-endian mono PCM
// and builds the WAV headers used for streaming and rendering.
package pcm

import (
	"encoding/binary"
	"math"
)

const (
	Channels       = 1
	BitsPerSample  = 16
	BytesPerSample = BitsPerSample / 8
	HeaderSize     = 44

	// streamLength marks the RIFF and data sizes of an open-ended stream.
	streamLength = 0xFFFFFFFF
	formatPCM    = 1
	fmtChunkSize = 16
)

// EncodeSample clamps x to [-1, 1] and scales it to a signed 16-bit value.
// NaN encodes as silence.
func EncodeSample(x float64) int16 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > 1:
		x = 1
	case x < -1:
		x = -1
	}
	return int16(math.Round(x * math.MaxInt16))
}

// AppendFrame appends s to dst in little-endian byte order.
func AppendFrame(dst []byte, s int16) []byte {
	return binary.LittleEndian.AppendUint16(dst, uint16(s))
}

// StreamHeader returns the 44-byte RIFF/WAVE header for an indefinite mono
// 16-bit stream at sampleRate.
func StreamHeader(sampleRate int) []byte {
	return AppendStreamHeader(make([]byte, 0, HeaderSize), sampleRate)
}

// AppendStreamHeader appends the stream header to dst.
func AppendStreamHeader(dst []byte, sampleRate int) []byte {
	le := binary.LittleEndian
	blockAlign := Channels * BytesPerSample

	dst = append(dst, "RIFF"...)
	dst = le.AppendUint32(dst, streamLength)
	dst = append(dst, "WAVE"...)
	dst = append(dst, "fmt "...)
	dst = le.AppendUint32(dst, fmtChunkSize)
	dst = le.AppendUint16(dst, formatPCM)
	dst = le.AppendUint16(dst, Channels)
	dst = le.AppendUint32(dst, uint32(sampleRate))
	dst = le.AppendUint32(dst, uint32(sampleRate*blockAlign))
	dst = le.AppendUint16(dst, uint16(blockAlign))
	dst = le.AppendUint16(dst, BitsPerSample)
	dst = append(dst, "data"...)
	return le.AppendUint32(dst, streamLength)
}

// DecodeFrames reads little-endian frames from b into dst and returns the
// extended slice. A trailing odd byte is ignored.
func DecodeFrames(dst []int16, b []byte) []int16 {
	for i := 0; i+1 < len(b); i += BytesPerSample {
		dst = append(dst, int16(binary.LittleEndian.Uint16(b[i:])))
	}
	return dst
}

// SamplesPerDuration converts a duration in seconds into a sample count at
// sampleRate. Durations below minSeconds are raised to it and at least one
// sample is always returned.
func SamplesPerDuration(sampleRate int, seconds, minSeconds float64) int {
	seconds = math.Max(seconds, minSeconds)
	return max(1, int(math.Round(float64(sampleRate)*seconds)))
}

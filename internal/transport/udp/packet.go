// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"noisestream/internal/pcm"
)

/*
PCM Packet Structure (header BigEndian, payload LittleEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Sample Count      | uint16         | 2            | Number of samples (N)   |
| Samples           | []int16 (LE)   | N * 2        | Mono 16-bit PCM         |
+-----------------------------------------------------------------------------+
*/

const (
	HeaderSize = 4 + 8 + 2

	// DefaultSamplesPerPacket keeps datagrams below a typical 1500 byte MTU.
	DefaultSamplesPerPacket = 512
)

var ErrShortPacket = errors.New("packet shorter than its header")

// PacketSender is the datagram transport used by PacketWriter.
type PacketSender interface {
	Send(data []byte) error
}

// PacketWriter splits PCM byte streams into sequenced datagrams. It is an
// io.Writer so it can sit behind the stream driver.
type PacketWriter struct {
	sender      PacketSender
	maxSamples  int
	sequenceNum uint32
	now         func() time.Time

	// Reusable buffer for constructing the binary packet.
	packetBuffer *bytes.Buffer
	// Odd byte carried over between writes.
	pending []byte
}

// NewPacketWriter returns a writer sending at most samplesPerPacket samples
// per datagram. Non-positive values select DefaultSamplesPerPacket.
func NewPacketWriter(sender PacketSender, samplesPerPacket int) *PacketWriter {
	if samplesPerPacket <= 0 || samplesPerPacket > 0xFFFF {
		samplesPerPacket = DefaultSamplesPerPacket
	}
	return &PacketWriter{
		sender:       sender,
		maxSamples:   samplesPerPacket,
		now:          time.Now,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, HeaderSize+samplesPerPacket*pcm.BytesPerSample)),
		pending:      make([]byte, 0, pcm.BytesPerSample),
	}
}

// Write sends p as one or more packets. A frame split across two writes is
// reassembled before sending.
func (w *PacketWriter) Write(p []byte) (int, error) {
	total := len(p)

	if len(w.pending) > 0 && len(p) > 0 {
		w.pending = append(w.pending, p[0])
		p = p[1:]
		if err := w.send(w.pending); err != nil {
			return 0, err
		}
		w.pending = w.pending[:0]
	}

	maxBytes := w.maxSamples * pcm.BytesPerSample
	for len(p) >= pcm.BytesPerSample {
		n := min(len(p), maxBytes) &^ 1
		if err := w.send(p[:n]); err != nil {
			return total - len(p), err
		}
		p = p[n:]
	}
	w.pending = append(w.pending, p...)

	return total, nil
}

// Sequence returns the sequence number of the last packet sent.
func (w *PacketWriter) Sequence() uint32 {
	return w.sequenceNum
}

func (w *PacketWriter) send(payload []byte) error {
	w.sequenceNum++
	w.packetBuffer.Reset()

	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], w.sequenceNum)
	binary.BigEndian.PutUint64(header[4:12], uint64(w.now().UnixNano()))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(payload)/pcm.BytesPerSample))
	w.packetBuffer.Write(header[:])
	w.packetBuffer.Write(payload)

	if err := w.sender.Send(w.packetBuffer.Bytes()); err != nil {
		return fmt.Errorf("packet %d: %w", w.sequenceNum, err)
	}
	return nil
}

// Packet is a decoded datagram.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Samples   []int16
}

// DecodePacket parses a datagram produced by PacketWriter.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	payload := b[HeaderSize:]
	if len(payload) < count*pcm.BytesPerSample {
		return Packet{}, fmt.Errorf("%w: want %d samples, have %d bytes", ErrShortPacket, count, len(payload))
	}

	return Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Samples:   pcm.DecodeFrames(make([]int16, 0, count), payload[:count*pcm.BytesPerSample]),
	}, nil
}

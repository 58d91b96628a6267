// SPDX-License-Identifier: MIT
/*
Package stream drives a sample source into a byte sink: one WAV stream header
followed by fixed-size PCM chunks until the context is cancelled or the sink
goes away.

The loop only checks for cancellation between chunks, so a chunk is never
split. A failing sink is the normal way for a consumer to hang up and ends the
stream without an error.
*/
package stream

import (
	"context"
	"io"
	"time"

	"noisestream/internal/pcm"
)

// MinChunkDuration is the shortest chunk the driver produces, in seconds.
const MinChunkDuration = 0.05

// DefaultChunkDuration is the chunk length used when none is configured.
const DefaultChunkDuration = 0.5

// Source produces encoded PCM frames.
type Source interface {
	AppendChunk(dst []byte, n int) []byte
}

// StopReason tells why Run returned.
type StopReason int

const (
	StopCancelled StopReason = iota
	StopOutputClosed
	StopChunkLimit
)

func (r StopReason) String() string {
	switch r {
	case StopCancelled:
		return "cancelled"
	case StopOutputClosed:
		return "output closed"
	case StopChunkLimit:
		return "chunk limit"
	}
	return "unknown"
}

// Result summarizes a finished stream.
type Result struct {
	Chunks int
	Bytes  int64
	Reason StopReason
	// SinkErr is the write error that ended the stream, if any.
	SinkErr error
}

// Observer is notified after every chunk written.
type Observer interface {
	ChunkWritten(bytes int, elapsed time.Duration)
}

// Driver writes a Source into a sink.
type Driver struct {
	source       Source
	sampleRate   int
	chunkSamples int
	header       bool
	pacing       bool
	maxChunks    int
	observer     Observer
}

type Option func(*Driver)

// WithPacing limits output to real time. Use it for sinks without
// back-pressure such as datagram sockets.
func WithPacing(enabled bool) Option {
	return func(d *Driver) { d.pacing = enabled }
}

// WithMaxChunks stops the stream after n chunks. Zero means unlimited.
func WithMaxChunks(n int) Option {
	return func(d *Driver) { d.maxChunks = max(n, 0) }
}

// WithoutHeader omits the WAV stream header.
func WithoutHeader() Option {
	return func(d *Driver) { d.header = false }
}

// WithObserver registers o for per-chunk notifications.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// NewDriver returns a driver emitting chunks of chunkDuration seconds of src
// at sampleRate.
func NewDriver(src Source, sampleRate int, chunkDuration float64, opts ...Option) *Driver {
	d := &Driver{
		source:       src,
		sampleRate:   sampleRate,
		chunkSamples: pcm.SamplesPerDuration(sampleRate, chunkDuration, MinChunkDuration),
		header:       true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ChunkSamples returns the number of samples per chunk.
func (d *Driver) ChunkSamples() int {
	return d.chunkSamples
}

// ChunkInterval returns the play time of one chunk.
func (d *Driver) ChunkInterval() time.Duration {
	return time.Duration(float64(d.chunkSamples) / float64(d.sampleRate) * float64(time.Second))
}

type flusher interface{ Flush() }

type errFlusher interface{ Flush() error }

// Run streams until ctx is done, the chunk limit is reached or w fails. Sink
// failures end the stream with StopOutputClosed and a nil error.
func (d *Driver) Run(ctx context.Context, w io.Writer) (Result, error) {
	var res Result

	if err := ctx.Err(); err != nil {
		res.Reason = StopCancelled
		return res, nil
	}

	if d.header {
		n, err := w.Write(pcm.StreamHeader(d.sampleRate))
		res.Bytes += int64(n)
		if err == nil {
			err = flush(w)
		}
		if err != nil {
			return outputClosed(res, err), nil
		}
	}

	buf := make([]byte, 0, d.chunkSamples*pcm.BytesPerSample)
	interval := d.ChunkInterval()
	start := time.Now()

	var timer *time.Timer
	if d.pacing {
		timer = time.NewTimer(0)
		defer timer.Stop()
		<-timer.C
	}

	for {
		if ctx.Err() != nil {
			res.Reason = StopCancelled
			return res, nil
		}
		if d.maxChunks > 0 && res.Chunks >= d.maxChunks {
			res.Reason = StopChunkLimit
			return res, nil
		}

		began := time.Now()
		buf = d.source.AppendChunk(buf[:0], d.chunkSamples)
		n, err := w.Write(buf)
		res.Bytes += int64(n)
		if err == nil {
			err = flush(w)
		}
		if err != nil {
			return outputClosed(res, err), nil
		}
		res.Chunks++

		if d.observer != nil {
			d.observer.ChunkWritten(n, time.Since(began))
		}

		if d.pacing {
			wait := time.Until(start.Add(time.Duration(res.Chunks) * interval))
			if wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					res.Reason = StopCancelled
					return res, nil
				case <-timer.C:
				}
			}
		}
	}
}

func outputClosed(res Result, err error) Result {
	res.Reason = StopOutputClosed
	res.SinkErr = err
	return res
}

func flush(w io.Writer) error {
	switch f := w.(type) {
	case errFlusher:
		return f.Flush()
	case flusher:
		f.Flush()
	}
	return nil
}

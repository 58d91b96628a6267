// SPDX-License-Identifier: MIT
/*
Package audio plays generated PCM on a local output device with:
- Callback-driven PortAudio output stream
- Optional WAV recording of exactly what is played
- Frame counting for status displays

Thread Safety:
- The sample source is only touched by the PortAudio callback
- The callback encodes straight into the host buffer without allocating
- Locks OS thread during audio processing
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"noisestream/internal/config"
	applog "noisestream/internal/log"
	"noisestream/internal/pcm"
)

var ErrAlreadyRecording = errors.New("already recording")

// SampleSource produces encoded mono samples.
type SampleSource interface {
	AppendSamples(dst []int16, n int) []int16
}

type Player struct {
	source     SampleSource
	sampleRate int
	frames     int // frames per buffer

	// Audio output handling.
	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	// Frames delivered to the device since Start.
	played atomic.Uint64

	// Recording state.
	recMu    sync.Mutex
	recorder *pcm.FileWriter
	recErr   error
}

// NewPlayer resolves the configured output device. PortAudio must be
// initialized.
func NewPlayer(cfg config.PlaybackConfig, sampleRate int, src SampleSource) (*Player, error) {
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	p := newPlayer(src, sampleRate, cfg.FramesPerBuffer)
	p.outputDevice = device
	if cfg.LowLatency {
		p.outputLatency = device.DefaultLowOutputLatency
	} else {
		p.outputLatency = device.DefaultHighOutputLatency
	}
	return p, nil
}

func newPlayer(src SampleSource, sampleRate, framesPerBuffer int) *Player {
	return &Player{
		source:     src,
		sampleRate: sampleRate,
		frames:     framesPerBuffer,
	}
}

// Device returns the output device in use.
func (p *Player) Device() *portaudio.DeviceInfo {
	return p.outputDevice
}

func (p *Player) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: pcm.Channels,
			Device:   p.outputDevice,
			Latency:  p.outputLatency,
		},
		FramesPerBuffer: p.frames,
		SampleRate:      float64(p.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, p.processOutputStream)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	p.outputStream = stream

	if err := p.outputStream.Start(); err != nil {
		p.outputStream.Close()
		p.outputStream = nil
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	applog.Infof("Player: Output started on %s at %d Hz", p.outputDevice.Name, p.sampleRate)
	return nil
}

func (p *Player) Stop() error {
	if p.outputStream != nil {
		if err := p.outputStream.Stop(); err != nil {
			return err
		}

		if err := p.outputStream.Close(); err != nil {
			return err
		}

		p.outputStream = nil
	}

	return p.StopRecording()
}

// Run plays until ctx is done.
func (p *Player) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return p.Stop()
}

// Played returns the number of frames handed to the device.
func (p *Player) Played() uint64 {
	return p.played.Load()
}

// Elapsed returns the play time of the frames handed to the device.
func (p *Player) Elapsed() time.Duration {
	return time.Duration(float64(p.Played()) / float64(p.sampleRate) * float64(time.Second))
}

// processOutputStream is the core audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - No dynamic allocations unless recording
func (p *Player) processOutputStream(out []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.source.AppendSamples(out[:0], len(out))
	p.played.Add(uint64(len(out)))

	p.recMu.Lock()
	if p.recorder != nil && p.recErr == nil {
		p.recErr = p.recorder.WriteSamples(out)
	}
	p.recMu.Unlock()
}

// StartRecording tees everything played into a WAV file at path.
func (p *Player) StartRecording(path string) error {
	p.recMu.Lock()
	defer p.recMu.Unlock()

	if p.recorder != nil {
		return ErrAlreadyRecording
	}
	w, err := pcm.NewFileWriter(path, p.sampleRate)
	if err != nil {
		return err
	}
	p.recorder = w
	p.recErr = nil
	return nil
}

// StopRecording finalizes the recording, if any. It reports the first write
// error seen by the callback.
func (p *Player) StopRecording() error {
	p.recMu.Lock()
	w, werr := p.recorder, p.recErr
	p.recorder, p.recErr = nil, nil
	p.recMu.Unlock()

	if w == nil {
		return nil
	}
	applog.Infof("Player: Recorded %d samples", w.Written())
	return errors.Join(werr, w.Close())
}

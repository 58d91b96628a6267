package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the noise engine.
const (
	// Stream defaults
	DefaultSampleRate    = 44100 // CD-quality audio
	DefaultChunkDuration = 0.5   // Seconds of audio per chunk
	DefaultMode          = "color_noise"
	DefaultSubtype       = "white"
	DefaultVolume        = 0.5
	DefaultLogLevel      = "info"

	// Playback defaults
	DefaultOutputDevice    = MinDeviceID // System default device
	DefaultFramesPerBuffer = 1024        // Balanced latency/performance
	DefaultLowLatency      = false

	// Render defaults
	DefaultRenderDuration = 30 * time.Second
	DefaultOutputDir      = "."

	// Server defaults
	DefaultListenAddr      = ":8080"
	DefaultMaxStreams      = 16
	DefaultShutdownTimeout = 5 * time.Second

	// Transport defaults
	DefaultUDPTargetAddress    = "127.0.0.1:9090"
	DefaultUDPSamplesPerPacket = 512

	// Analysis defaults
	DefaultFFTSize      = 4096
	DefaultFFTWindow    = "Hann"
	DefaultAnalysisSpan = 10.0 // Seconds of audio analyzed
	DefaultMinFrequency = 200.0
	DefaultMaxFrequency = 8000.0

	// Hardware and processing limits
	MinDeviceID      = -1     // -1 represents system default device
	MinSampleRate    = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate    = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames  = 8192   // Maximum frames per buffer (power of 2)
	MinFFTSize       = 256
	MaxFFTSize       = 65536
	MaxChunkDuration = 10.0 // Seconds
)

// NewConfig returns a Config populated with defaults. It is the base onto
// which a configuration file and environment overrides are applied.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Stream: StreamConfig{
			SampleRate:    DefaultSampleRate,
			ChunkDuration: DefaultChunkDuration,
		},
		Playback: PlaybackConfig{
			OutputDevice:    DefaultOutputDevice,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Render: RenderConfig{
			OutputDir: DefaultOutputDir,
			Duration:  DefaultRenderDuration,
		},
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			MaxStreams:      DefaultMaxStreams,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Transport: TransportConfig{
			UDPTargetAddress:    DefaultUDPTargetAddress,
			UDPSamplesPerPacket: DefaultUDPSamplesPerPacket,
		},
		Analysis: AnalysisConfig{
			FFTSize:      DefaultFFTSize,
			FFTWindow:    DefaultFFTWindow,
			Seconds:      DefaultAnalysisSpan,
			MinFrequency: DefaultMinFrequency,
			MaxFrequency: DefaultMaxFrequency,
		},
	}
}

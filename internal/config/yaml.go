// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "noisestream/internal/log"
	"noisestream/internal/profile"
	"noisestream/pkg/bitint"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Stream    StreamConfig    `yaml:"stream"`    // PCM stream format.
	Playback  PlaybackConfig  `yaml:"playback"`  // Local playback through PortAudio.
	Render    RenderConfig    `yaml:"render"`    // Finite WAV rendering.
	Server    ServerConfig    `yaml:"server"`    // HTTP and WebSocket streaming.
	Transport TransportConfig `yaml:"transport"` // Datagram streaming.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectral verification.
	Profiles  []profile.Raw   `yaml:"profiles"`  // Named generator profiles.
}

// StreamConfig holds the shape of every PCM stream produced.
type StreamConfig struct {
	SampleRate    int     `yaml:"sample_rate"`    // Sample rate in Hz (e.g., 44100, 48000).
	ChunkDuration float64 `yaml:"chunk_duration"` // Seconds of audio per chunk.
}

// PlaybackConfig holds settings for the play command.
type PlaybackConfig struct {
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per PortAudio buffer.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from the device.
}

// RenderConfig holds settings for the render command.
type RenderConfig struct {
	OutputDir string        `yaml:"output_dir"` // Directory for rendered files without an explicit path.
	Duration  time.Duration `yaml:"duration"`   // Default render length.
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`      // Address to listen on (e.g., ":8080").
	MaxStreams      int           `yaml:"max_streams"`      // Concurrent stream limit (0 for unlimited).
	AllowedOrigins  []string      `yaml:"allowed_origins"`  // CORS and WebSocket origins; empty allows all.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for open streams on shutdown.
}

// TransportConfig holds settings for streaming PCM over UDP.
type TransportConfig struct {
	UDPTargetAddress    string `yaml:"udp_target_address"`     // Target for UDP packets (e.g., "127.0.0.1:9090").
	UDPSamplesPerPacket int    `yaml:"udp_samples_per_packet"` // Samples carried by one datagram.
}

// AnalysisConfig holds settings for the analyze command.
type AnalysisConfig struct {
	FFTSize      int     `yaml:"fft_size"`      // Samples per FFT segment (power of 2).
	FFTWindow    string  `yaml:"fft_window"`    // Window function (e.g., "Hann", "Hamming").
	Seconds      float64 `yaml:"seconds"`       // Seconds of audio to analyze.
	MinFrequency float64 `yaml:"min_frequency"` // Lower edge of the slope fit in Hz.
	MaxFrequency float64 `yaml:"max_frequency"` // Upper edge of the slope fit in Hz.
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("noisestream.yaml", "config.yaml"). If no file is
// found, it uses built-in defaults. After loading defaults or from file, it applies
// environment variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"noisestream.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applog.Debugf("configuration: Loaded %s (%d profiles)", path, len(cfg.Profiles))

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the bounds of every section and the profile list.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		fail("log_level %q is not a known level", c.LogLevel)
	}

	if c.Stream.SampleRate < MinSampleRate || c.Stream.SampleRate > MaxSampleRate {
		fail("stream.sample_rate %d outside [%d, %d]", c.Stream.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Stream.ChunkDuration <= 0 || c.Stream.ChunkDuration > MaxChunkDuration {
		fail("stream.chunk_duration %v outside (0, %v]", c.Stream.ChunkDuration, MaxChunkDuration)
	}

	if c.Playback.OutputDevice < MinDeviceID {
		fail("playback.output_device %d below %d", c.Playback.OutputDevice, MinDeviceID)
	}
	if !bitint.IsPowerOfTwo(c.Playback.FramesPerBuffer) || c.Playback.FramesPerBuffer > MaxBufferFrames {
		fail("playback.frames_per_buffer %d must be a power of two up to %d", c.Playback.FramesPerBuffer, MaxBufferFrames)
	}

	if c.Render.Duration < 0 {
		fail("render.duration must not be negative")
	}

	if c.Server.MaxStreams < 0 {
		fail("server.max_streams must not be negative")
	}
	if c.Server.ListenAddr == "" {
		fail("server.listen_addr must be set")
	}

	if c.Transport.UDPTargetAddress != "" && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		fail("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}
	if c.Transport.UDPSamplesPerPacket < 0 || c.Transport.UDPSamplesPerPacket > 0xFFFF {
		fail("transport.udp_samples_per_packet %d out of range", c.Transport.UDPSamplesPerPacket)
	}

	a := c.Analysis
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		fail("analysis.fft_size %d must be a power of two in [%d, %d]", a.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if a.Seconds <= 0 {
		fail("analysis.seconds must be positive")
	}
	if a.MinFrequency <= 0 || a.MaxFrequency <= a.MinFrequency {
		fail("analysis frequency range [%v, %v] is empty", a.MinFrequency, a.MaxFrequency)
	}

	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		name := strings.TrimSpace(p.Name)
		switch {
		case name == "":
			fail("profiles[%d]: name must be set", i)
		case seen[name]:
			fail("profiles[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
	}

	return errors.Join(errs...)
}

// Profile resolves a named profile. Profiles declared in the configuration
// file shadow the built-in profiles of the same name.
func (c *Config) Profile(name string) (profile.Raw, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c.Profiles {
		if strings.TrimSpace(p.Name) == name {
			return p, true
		}
	}
	return profile.Builtin(name)
}

// AllProfiles lists the configured profiles followed by every built-in
// profile that is not shadowed.
func (c *Config) AllProfiles() []profile.Raw {
	out := make([]profile.Raw, 0, len(c.Profiles))
	seen := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		out = append(out, p)
		seen[strings.TrimSpace(p.Name)] = true
	}
	for _, p := range profile.Builtins() {
		if !seen[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Malformed values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Debugf("configuration: Overriding log_level from env: %s", val)
	}
	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Stream.SampleRate = n
			applog.Debugf("configuration: Overriding stream.sample_rate from env: %d", n)
		}
	}

	// ENV_{LISTEN_ADDR,MAX_STREAMS}
	// These are specific to the HTTP server.
	if val, ok := os.LookupEnv("ENV_LISTEN_ADDR"); ok {
		cfg.Server.ListenAddr = val
		applog.Debugf("configuration: Overriding server.listen_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_MAX_STREAMS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxStreams = n
			applog.Debugf("configuration: Overriding server.max_streams from env: %d", n)
		}
	}

	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
}

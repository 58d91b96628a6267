// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Stream.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want %d", cfg.Stream.SampleRate, DefaultSampleRate)
	}
	if cfg.Analysis.FFTSize != DefaultFFTSize {
		t.Errorf("fft size = %d, want %d", cfg.Analysis.FFTSize, DefaultFFTSize)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
stream:
  sample_rate: 48000
render:
  duration: 90s
server:
  allowed_origins: ["https://example.com"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Stream.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", cfg.Stream.SampleRate)
	}
	if cfg.Stream.ChunkDuration != DefaultChunkDuration {
		t.Errorf("chunk duration = %v, want default %v", cfg.Stream.ChunkDuration, DefaultChunkDuration)
	}
	if cfg.Render.Duration != 90*time.Second {
		t.Errorf("render duration = %v, want 90s", cfg.Render.Duration)
	}
	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("listen addr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("allowed origins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"sample rate", "stream:\n  sample_rate: 100\n", "stream.sample_rate"},
		{"chunk duration", "stream:\n  chunk_duration: 0\n", "stream.chunk_duration"},
		{"frames per buffer", "playback:\n  frames_per_buffer: 1000\n", "playback.frames_per_buffer"},
		{"fft size", "analysis:\n  fft_size: 3000\n", "analysis.fft_size"},
		{"frequency range", "analysis:\n  min_frequency: 500\n  max_frequency: 400\n", "frequency range"},
		{"log level", "log_level: loud\n", "log_level"},
		{"udp address", "transport:\n  udp_target_address: localhost\n", "udp_target_address"},
		{"max streams", "server:\n  max_streams: -1\n", "max_streams"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	cfg.Stream.SampleRate = 1
	cfg.Analysis.FFTSize = 100
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"stream.sample_rate", "analysis.fft_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
profiles:
  - name: focus
    type: color_noise
    subtype: custom
    parameters:
      slope: -4.5
      filter_order: 6
  - name: pink
    type: color_noise
    subtype: brown
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	focus, ok := cfg.Profile("focus")
	if !ok {
		t.Fatal("focus profile not found")
	}
	if focus.Subtype != "custom" || focus.Parameters["slope"] != -4.5 {
		t.Errorf("focus = %+v", focus)
	}

	// A file profile shadows the built-in of the same name.
	pink, ok := cfg.Profile("pink")
	if !ok || pink.Subtype != "brown" {
		t.Errorf("pink = %+v, %v; want the file profile", pink, ok)
	}

	beep, ok := cfg.Profile("gentle_beep")
	if !ok || beep.Type != "tonal_noise" {
		t.Errorf("gentle_beep = %+v, %v; want the built-in", beep, ok)
	}

	if _, ok := cfg.Profile("nope"); ok {
		t.Error("unknown profile resolved")
	}

	all := cfg.AllProfiles()
	count := 0
	for _, p := range all {
		if p.Name == "pink" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pink listed %d times, want 1", count)
	}
	if all[0].Name != "focus" {
		t.Errorf("first profile = %q, want file profiles first", all[0].Name)
	}
}

func TestProfiles_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "profiles:\n  - type: color_noise\n    subtype: white\n"},
		{"duplicate", "profiles:\n  - name: a\n    type: color_noise\n  - name: a\n    type: color_noise\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadConfig(writeTempConfig(t, tt.content)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_SAMPLE_RATE", "22050")
	t.Setenv("ENV_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("ENV_MAX_STREAMS", "not-a-number")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.1:7000")

	cfg, err := LoadConfig(writeTempConfig(t, "stream:\n  sample_rate: 48000\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not overridden")
	}
	if cfg.Stream.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want env value 22050", cfg.Stream.SampleRate)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.MaxStreams != DefaultMaxStreams {
		t.Errorf("max streams = %d, malformed env value should be ignored", cfg.Server.MaxStreams)
	}
	if cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("udp target = %q", cfg.Transport.UDPTargetAddress)
	}
}

func TestEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("ENV_LOG_LEVEL", "verbose")
	if _, err := LoadConfig(writeTempConfig(t, "debug: false\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"noisestream/internal/pcm"
	"noisestream/internal/profile"
	"noisestream/internal/synth"
)

// execute runs the command line in args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStreamWritesHeaderThenChunks(t *testing.T) {
	out, err := execute(t, "--subtype", "pink", "--seed", "7", "--chunk-duration", "0.05", "--max-chunks", "2")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	gen, err := synth.New("color_noise", "pink", profile.DefaultVolume, profile.IntSeed(7), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := pcm.StreamHeader(44100)
	want = gen.AppendChunk(want, 2205)
	want = gen.AppendChunk(want, 2205)

	if !bytes.Equal([]byte(out), want) {
		t.Errorf("stdout has %d bytes, want %d identical bytes", len(out), len(want))
	}
}

func TestStreamProfileOverrides(t *testing.T) {
	out, err := execute(t, "--profile", "gentle_beep", "--volume", "0", "--max-chunks", "1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	pcmBytes := out[pcm.HeaderSize:]
	if len(pcmBytes) != 22050*pcm.BytesPerSample {
		t.Fatalf("got %d PCM bytes", len(pcmBytes))
	}
	if strings.Trim(pcmBytes, "\x00") != "" {
		t.Error("volume 0 produced non-silent output")
	}
}

func TestStreamRejectsUnknownSound(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"type", []string{"--mode", "not_a_color"}, synth.ErrUnknownNoiseType},
		{"subtype", []string{"--subtype", "purple"}, synth.ErrUnknownNoiseType},
		{"profile", []string{"--profile", "nope"}, ErrUnknownProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if out != "" {
				t.Errorf("wrote %d bytes before failing", len(out))
			}
		})
	}
}

func TestStreamIgnoresMalformedParameters(t *testing.T) {
	out, err := execute(t, "--subtype", "custom", "--parameters", "{slope:", "--chunk-duration", "0.05", "--max-chunks", "1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(out) != pcm.HeaderSize+2205*pcm.BytesPerSample {
		t.Errorf("got %d bytes", len(out))
	}
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"--log-level", "verbose", "presets"}},
		{"sample rate", []string{"--sample-rate", "100", "presets"}},
		{"missing config", []string{"--config", "does-not-exist.yaml", "presets"}},
		{"positional", []string{"pink"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brown.wav")
	if _, err := execute(t, "render", "--subtype", "brown", "--seed", "1", "--duration", "250ms", "--output", path); err != nil {
		t.Fatalf("render: %v", err)
	}

	samples, rate, err := pcm.ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}
	if rate != 44100 || len(samples) != 11025 {
		t.Errorf("got %d samples at %d Hz, want 11025 at 44100", len(samples), rate)
	}

	gen, err := synth.New("color_noise", "brown", profile.DefaultVolume, profile.IntSeed(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := gen.NextSamples(len(samples))
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestRenderStopsOnCancel(t *testing.T) {
	gen, err := synth.New("color_noise", "white", 0.5, profile.IntSeed(3), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "white.wav")
	written, err := render(ctx, gen, path, time.Minute, 1024)
	if err != nil || written != 1024 {
		t.Errorf("render = %d, %v; want 1024, nil", written, err)
	}
	samples, _, err := pcm.ReadWAVFile(path)
	if err != nil {
		t.Fatalf("cancelled render left an unreadable file: %v", err)
	}
	if len(samples) != 1024 {
		t.Errorf("file holds %d samples, want 1024", len(samples))
	}
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	tests := []struct {
		p    profile.Profile
		want string
	}{
		{profile.Profile{Name: "focus", Subtype: "custom"}, "focus-04-03-2025-050607.wav"},
		{profile.Profile{Subtype: "pink"}, "pink-04-03-2025-050607.wav"},
	}
	for _, tt := range tests {
		if got := defaultFileName(tt.p, now); got != tt.want {
			t.Errorf("defaultFileName(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	out, err := execute(t, "analyze", "--subtype", "white", "--seed", "5", "--seconds", "2", "--fft-size", "2000")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"White noise", "dB/octave", "Segments:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pink.wav")
	if _, err := execute(t, "render", "--subtype", "pink", "--duration", "1s", "--output", path); err != nil {
		t.Fatalf("render: %v", err)
	}
	out, err := execute(t, "analyze", "--input", path, "--window", "blackman")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "Samples:   44100 ") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestPresets(t *testing.T) {
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	for _, raw := range profile.Builtins() {
		if !strings.Contains(out, raw.Name) {
			t.Errorf("presets output is missing %q", raw.Name)
		}
	}
}

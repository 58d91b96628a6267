// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"noisestream/internal/analysis"
	"noisestream/internal/audio"
	"noisestream/internal/config"
	applog "noisestream/internal/log"
	"noisestream/internal/pcm"
	"noisestream/internal/profile"
	"noisestream/internal/stream"
	"noisestream/internal/synth"
	"noisestream/internal/transport"
	"noisestream/internal/tui"
	"noisestream/pkg/bitint"
)

func (a *app) newRenderCommand() *cobra.Command {
	var (
		duration time.Duration
		output   string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write a fixed length of noise to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("duration") {
				duration = a.cfg.Render.Duration
			}
			if duration <= 0 {
				return fmt.Errorf("duration must be positive, got %s", duration)
			}

			gen, err := a.generator(cmd.Flags())
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(a.cfg.Render.OutputDir, defaultFileName(gen.Profile(), time.Now()))
			}

			chunk := pcm.SamplesPerDuration(gen.SampleRate(), a.cfg.Stream.ChunkDuration, stream.MinChunkDuration)
			written, err := render(cmd.Context(), gen, output, duration, chunk)
			if err != nil {
				return err
			}
			applog.Infof("Rendered %.2fs to %s", float64(written)/float64(gen.SampleRate()), output)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", config.DefaultRenderDuration,
		"Length of audio to render")
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Output file name. Default is <profile>-DD-MM-YYYY-HHMMSS.wav in the render directory")
	return cmd
}

// defaultFileName names a rendering after its profile and the current time.
func defaultFileName(p profile.Profile, now time.Time) string {
	name := p.Name
	if name == "" {
		name = p.Subtype
	}
	return name + "-" + now.UTC().Format("02-01-2006-150405") + ".wav"
}

// render writes duration of gen to a WAV file at path, chunk samples at a
// time. Cancelling ctx finalizes the file after the current chunk; at least
// one chunk is always written. It returns the number of samples written.
func render(ctx context.Context, gen *synth.Generator, path string, duration time.Duration, chunk int) (int, error) {
	total := max(1, int(math.Round(duration.Seconds()*float64(gen.SampleRate()))))

	w, err := pcm.NewFileWriter(path, gen.SampleRate())
	if err != nil {
		return 0, err
	}

	buf := make([]int16, 0, chunk)
	for {
		buf = gen.AppendSamples(buf[:0], min(chunk, total-w.Written()))
		if err := w.WriteSamples(buf); err != nil {
			w.Close()
			return w.Written(), err
		}
		if w.Written() >= total || ctx.Err() != nil {
			break
		}
	}
	return w.Written(), w.Close()
}

func (a *app) newPlayCommand() *cobra.Command {
	var (
		device          int
		framesPerBuffer int
		lowLatency      bool
		devicePicker    bool
		showTUI         bool
		record          string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play noise on an audio output device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pb := a.cfg.Playback
			flags := cmd.Flags()
			if flags.Changed("device") {
				pb.OutputDevice = device
			}
			if flags.Changed("frames-per-buffer") {
				pb.FramesPerBuffer = bitint.NextPowerOfTwo(framesPerBuffer)
			}
			if flags.Changed("low-latency") {
				pb.LowLatency = lowLatency
			}

			gen, err := a.generator(flags)
			if err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if devicePicker {
				id, ok, err := tui.SelectDevice(audio.HostDevices)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				pb.OutputDevice = id
			}

			player, err := audio.NewPlayer(pb, gen.SampleRate(), gen)
			if err != nil {
				return err
			}
			if record != "" {
				if err := player.StartRecording(record); err != nil {
					return err
				}
				defer player.StopRecording()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return player.Run(gctx)
			})
			if showTUI {
				g.Go(func() error {
					// Quitting the view stops playback.
					defer cancel()
					m := tui.NewPlayerModel(gen.Profile(), player.Device().Name, gen.SampleRate(), player)
					return tui.RunPlayer(gctx, m)
				})
			}

			err = g.Wait()
			applog.Infof("Played %s (%d frames)", player.Elapsed().Round(time.Millisecond), player.Played())
			if record != "" && err == nil {
				applog.Infof("Recording saved to: %s", record)
			}
			return err
		},
	}

	// Audio Device Configuration
	cmd.Flags().IntVarP(&device, "device", "d", config.DefaultOutputDevice,
		"Specify output device ID. Use 'devices' command to see available devices.")
	cmd.Flags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer, rounded up to a power of 2 (affects latency)")
	cmd.Flags().BoolVarP(&lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time playback")
	cmd.Flags().BoolVar(&devicePicker, "device-picker", false,
		"Choose the output device interactively")
	cmd.Flags().BoolVar(&showTUI, "tui", false,
		"Show a playback status view")

	// Recording Configuration
	cmd.Flags().StringVarP(&record, "record", "r", "",
		"Also record the played audio to this WAV file")
	return cmd
}

func (a *app) newServeCommand() *cobra.Command {
	var (
		listen     string
		maxStreams int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve noise streams over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("listen") {
				a.cfg.Server.ListenAddr = listen
			}
			if flags.Changed("max-streams") {
				a.cfg.Server.MaxStreams = maxStreams
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			srv := transport.NewServer(a.cfg, applog.L())
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "a", config.DefaultListenAddr,
		"Address to listen on")
	cmd.Flags().IntVar(&maxStreams, "max-streams", config.DefaultMaxStreams,
		"Concurrent stream limit (0 for unlimited)")
	return cmd
}

func (a *app) newAnalyzeCommand() *cobra.Command {
	var (
		input      string
		seconds    float64
		fftSize    int
		windowName string
		minFreq    float64
		maxFreq    float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Measure the spectral slope of generated noise or a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := a.cfg.Analysis
			flags := cmd.Flags()
			if flags.Changed("seconds") {
				ac.Seconds = seconds
			}
			if flags.Changed("fft-size") {
				ac.FFTSize = fftSize
			}
			if flags.Changed("window") {
				ac.FFTWindow = windowName
			}
			if flags.Changed("min-freq") {
				ac.MinFrequency = minFreq
			}
			if flags.Changed("max-freq") {
				ac.MaxFrequency = maxFreq
			}

			window, err := analysis.ParseWindowFunc(ac.FFTWindow)
			if err != nil {
				return err
			}
			if size := bitint.NextPowerOfTwo(ac.FFTSize); size != ac.FFTSize {
				applog.Warnf("Rounding FFT size %d up to %d", ac.FFTSize, size)
				ac.FFTSize = size
			}

			var (
				samples    []int16
				sampleRate int
				source     string
			)
			if input != "" {
				samples, sampleRate, err = pcm.ReadWAVFile(input)
				if err != nil {
					return err
				}
				source = input
			} else {
				gen, err := a.generator(flags)
				if err != nil {
					return err
				}
				samples, err = capture(cmd.Context(), gen, a.cfg.Stream.ChunkDuration, ac.Seconds)
				if err != nil {
					return err
				}
				sampleRate = gen.SampleRate()
				source = profile.CategoryLabel(gen.Profile().Subtype)
			}

			report, err := analysis.Analyze(samples, analysis.Options{
				SampleRate:   sampleRate,
				FFTSize:      ac.FFTSize,
				Window:       window,
				MinFrequency: ac.MinFrequency,
				MaxFrequency: ac.MaxFrequency,
			})
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), source, sampleRate, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "",
		"Analyze this WAV file instead of generating audio")
	cmd.Flags().Float64Var(&seconds, "seconds", config.DefaultAnalysisSpan,
		"Seconds of audio to generate")
	cmd.Flags().IntVar(&fftSize, "fft-size", config.DefaultFFTSize,
		"Samples per FFT segment, rounded up to a power of 2")
	cmd.Flags().StringVar(&windowName, "window", config.DefaultFFTWindow,
		"FFT window function (Hann, Hamming, Blackman, BlackmanNuttall, BartlettHann, Lanczos, Nuttall)")
	cmd.Flags().Float64Var(&minFreq, "min-freq", config.DefaultMinFrequency,
		"Lower edge of the slope fit in Hz")
	cmd.Flags().Float64Var(&maxFreq, "max-freq", config.DefaultMaxFrequency,
		"Upper edge of the slope fit in Hz")
	return cmd
}

// capture runs gen through a headerless stream into memory for seconds of
// audio, rounded up to whole chunks.
func capture(ctx context.Context, gen *synth.Generator, chunkDuration, seconds float64) ([]int16, error) {
	chunk := pcm.SamplesPerDuration(gen.SampleRate(), chunkDuration, stream.MinChunkDuration)
	chunks := max(1, int(math.Ceil(seconds*float64(gen.SampleRate())/float64(chunk))))

	d := stream.NewDriver(gen, gen.SampleRate(), chunkDuration, stream.WithoutHeader(), stream.WithMaxChunks(chunks))
	c := analysis.NewCollector(chunks * d.ChunkSamples())
	if _, err := d.Run(ctx, c); err != nil {
		return nil, err
	}
	return c.Samples(), nil
}

func printReport(w io.Writer, source string, sampleRate int, r analysis.Report) {
	fmt.Fprintf(w, "Source:    %s\n", source)
	fmt.Fprintf(w, "Samples:   %d (%.2f s at %d Hz)\n", r.Samples, float64(r.Samples)/float64(sampleRate), sampleRate)
	fmt.Fprintf(w, "Segments:  %d\n", r.Segments)
	fmt.Fprintf(w, "RMS:       %.2f dBFS\n", r.RMSDBFS)
	fmt.Fprintf(w, "Peak:      %.1f Hz\n", r.PeakHz)
	fmt.Fprintf(w, "Slope:     %.2f dB/octave (R² %.3f)\n\n", r.Slope.DBPerOctave, r.Slope.RSquared)

	for _, b := range r.Bands {
		fmt.Fprintf(w, "  %-16s %8.2f dB\n", b.Name, b.Energy)
	}
}

func (a *app) newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List configured and built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, raw := range a.cfg.AllProfiles() {
				p := profile.NormalizeAt(raw, a.cfg.Stream.SampleRate)
				rows = append(rows, []string{raw.Name, string(p.Type), profile.CategoryLabel(p.Subtype)})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("NAME", "TYPE", "SOUND").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func (a *app) newDevicesCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pick {
				id, ok, err := tui.SelectDevice(audio.GetDevices)
				if err != nil || !ok {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected device %d. Use 'play --device %d' to play on it.\n", id, id)
				return nil
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&pick, "tui", false, "Browse devices interactively")
	return cmd
}

// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"noisestream/internal/config"
	applog "noisestream/internal/log"
	"noisestream/internal/metrics"
	"noisestream/internal/profile"
	"noisestream/internal/stream"
	"noisestream/internal/synth"
	"noisestream/internal/transport/udp"
	"noisestream/pkg/build"
)

var ErrUnknownProfile = errors.New("unknown profile")

// app carries the flag values and the loaded configuration shared by every
// command.
type app struct {
	cfg *config.Config

	configPath  string
	profileName string
	logLevel    string
	verbose     bool

	// Sound selection.
	mode          string
	subtype       string
	volume        float64
	seed          string
	sampleRate    int
	chunkDuration float64
	parameters    string

	// Root stream sink.
	udp       bool
	udpTarget string
	maxChunks int
}

// Execute runs the command line in os.Args until ctx is cancelled.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. The root command streams a WAV
// header followed by PCM chunks to stdout.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Colored and tonal noise PCM generator",
		Long:          "Streams 16-bit mono PCM noise to stdout, UDP, a sound card, WAV files or HTTP clients.",
		Version:       build.VersionString(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: a.setup,
		RunE:              a.runStream,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// General Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "f", "",
		"Path to a YAML configuration file (default: ./noisestream.yaml or ./config.yaml)")
	pf.StringVarP(&a.profileName, "profile", "p", "",
		"Named profile from the configuration file or a built-in subtype. Use 'presets' to see them.")
	pf.StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from configuration)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false,
		"Show verbose output")

	// Sound Configuration
	pf.StringVarP(&a.mode, "mode", "m", config.DefaultMode,
		"Noise family: color_noise or tonal_noise")
	pf.StringVarP(&a.subtype, "subtype", "t", config.DefaultSubtype,
		"white, pink, brown, custom, custom_tonal or a tonal preset name")
	pf.Float64Var(&a.volume, "volume", config.DefaultVolume,
		"Output volume between 0 and 1")
	pf.StringVar(&a.seed, "seed", "",
		"Seed for a reproducible stream; integers and text are accepted")
	pf.IntVarP(&a.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.Float64Var(&a.chunkDuration, "chunk-duration", config.DefaultChunkDuration,
		"Seconds of audio per chunk")
	pf.StringVar(&a.parameters, "parameters", "",
		`Generator parameters as JSON, e.g. '{"slope": -3, "filter_order": 4}'`)

	// Stream Configuration
	f := rootCmd.Flags()
	f.BoolVar(&a.udp, "udp", false,
		"Send datagrams to the configured UDP target instead of writing stdout")
	f.StringVar(&a.udpTarget, "udp-target", "",
		"Send datagrams to host:port instead of writing stdout")
	f.IntVar(&a.maxChunks, "max-chunks", 0,
		"Stop after this many chunks (0 streams until interrupted)")

	rootCmd.AddCommand(
		a.newRenderCommand(),
		a.newPlayCommand(),
		a.newServeCommand(),
		a.newAnalyzeCommand(),
		a.newPresetsCommand(),
		a.newDevicesCommand(),
	)

	return rootCmd
}

// setup loads the configuration, applies flag overrides and sets the log
// level. It runs before every command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("sample-rate") {
		cfg.Stream.SampleRate = a.sampleRate
	}
	if flags.Changed("chunk-duration") {
		cfg.Stream.ChunkDuration = a.chunkDuration
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug || a.verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	a.cfg = cfg
	return nil
}

// generatorParameters decodes --parameters. Malformed input is counted,
// logged and replaced by an empty set.
func (a *app) generatorParameters() profile.Parameters {
	if a.parameters == "" {
		return nil
	}
	params, err := profile.ParseParameters(a.parameters)
	if err != nil {
		metrics.ParameterErrorsTotal.Inc()
		applog.Warnf("Ignoring --parameters: %v", err)
		return nil
	}
	return params
}

// generator builds the generator selected by --profile or by the sound flags.
// Sound flags given alongside --profile override the profile's values.
func (a *app) generator(flags *pflag.FlagSet) (*synth.Generator, error) {
	sr := a.cfg.Stream.SampleRate
	params := a.generatorParameters()

	if a.profileName == "" {
		return synth.New(a.mode, a.subtype, a.volume, profile.ParseSeed(a.seed), params,
			synth.WithSampleRate(sr))
	}

	raw, ok := a.cfg.Profile(a.profileName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, a.profileName)
	}
	if flags.Changed("mode") || flags.Changed("subtype") {
		applog.Warnf("--profile %s selects the sound; ignoring --mode and --subtype", a.profileName)
	}

	merged := make(profile.Parameters, len(raw.Parameters)+len(params)+2)
	maps.Copy(merged, raw.Parameters)
	maps.Copy(merged, params)
	if flags.Changed("volume") {
		merged[profile.KeyVolume] = a.volume
	}
	if flags.Changed("seed") {
		merged[profile.KeySeed] = profile.ParseSeed(a.seed).Value()
	}
	raw.Parameters = merged

	return synth.FromProfile(profile.NormalizeAt(raw, sr), synth.WithSampleRate(sr))
}

// runStream is the root command: header and chunks to stdout, or headerless
// paced chunks to a UDP target.
func (a *app) runStream(cmd *cobra.Command, _ []string) error {
	gen, err := a.generator(cmd.Flags())
	if err != nil {
		return err
	}

	sink := "stdout"
	var out io.Writer = cmd.OutOrStdout()
	opts := []stream.Option{stream.WithMaxChunks(a.maxChunks)}

	if a.udp || a.udpTarget != "" {
		target := a.cfg.Transport.UDPTargetAddress
		if a.udpTarget != "" {
			target = a.udpTarget
		}
		sender, err := udp.NewSender(target)
		if err != nil {
			return err
		}
		defer sender.Close()

		sink = "udp"
		out = udp.NewPacketWriter(sender, a.cfg.Transport.UDPSamplesPerPacket)
		opts = append(opts, stream.WithoutHeader(), stream.WithPacing(true))
		applog.Infof("Streaming to udp://%s", sender.Target())
	}
	opts = append(opts, stream.WithObserver(metrics.ForSink(sink)))

	p := gen.Profile()
	d := stream.NewDriver(gen, gen.SampleRate(), a.cfg.Stream.ChunkDuration, opts...)
	applog.Debugf("Stream: %s at %d Hz, %d samples per chunk, seed %s",
		profile.CategoryLabel(p.Subtype), gen.SampleRate(), d.ChunkSamples(), p.Seed)

	metrics.StreamsStartedTotal.WithLabelValues(sink, p.Subtype).Inc()
	res, err := d.Run(cmd.Context(), out)
	metrics.StreamsStoppedTotal.WithLabelValues(res.Reason.String()).Inc()

	if res.SinkErr != nil && !stream.IsDisconnect(res.SinkErr) {
		applog.Warnf("Stream: %s after %d chunks: %v", res.Reason, res.Chunks, res.SinkErr)
	} else {
		applog.Debugf("Stream: %s after %d chunks (%d bytes)", res.Reason, res.Chunks, res.Bytes)
	}
	return err
}

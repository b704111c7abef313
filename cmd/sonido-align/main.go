// Command sonido-align aligns two MIDI files and writes the alignment as
// JSON.
//
//	sonido-align [flags] a.mid b.mid
//
// Exit status is 0 on success, 1 on error and 2 when no monotonic
// alignment exists.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-align/algorithms/alignment"
	"github.com/RyanBlaney/sonido-align/config"
	"github.com/RyanBlaney/sonido-align/logging"
	"github.com/RyanBlaney/sonido-align/pipeline"
)

const version = "0.1.0"

const (
	exitOK = iota
	exitError
	exitNoAlignment
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configFile   string
	out          string
	mode         string
	subsequence  bool
	hop          int
	shift        string
	maxShift     int
	timePerChunk float64
	dropSilent   bool
	verbose      bool
	noColor      bool
	version      bool
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	opts := &options{}
	fs := flag.NewFlagSet("sonido-align", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configFile, "config", "", "Path to JSON config file")
	fs.StringVar(&opts.out, "out", "", "Write the result here instead of stdout")
	fs.StringVar(&opts.mode, "mode", "", "Alignment mode (self_similarity, cross_similarity)")
	fs.BoolVar(&opts.subsequence, "subsequence", false, "Search for the first file inside the second")
	fs.IntVar(&opts.hop, "hop", 0, "Similarity window size in frames")
	fs.StringVar(&opts.shift, "shift", "", "Transposition search (none, exhaustive, profile)")
	fs.IntVar(&opts.maxShift, "max-shift", 0, "Largest transposition tried, in semitones")
	fs.Float64Var(&opts.timePerChunk, "time-per-chunk", 0, "Frame length in seconds")
	fs.BoolVar(&opts.dropSilent, "drop-silent", false, "Drop frames without onsets before aligning")
	fs.BoolVar(&opts.verbose, "v", false, "Debug logging")
	fs.BoolVar(&opts.noColor, "no-color", false, "Never color log output")
	fs.BoolVar(&opts.version, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: sonido-align [flags] a.mid b.mid\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs, nil
}

// buildConfig loads the config file (or the mode defaults) and applies the
// flags that were set explicitly.
func buildConfig(opts *options, fs *flag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case opts.configFile != "":
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case opts.mode != "":
		cfg = config.ConfigForMode(config.Mode(opts.mode))
	default:
		cfg = config.DefaultConfig()
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Alignment.Mode = config.Mode(opts.mode)
		case "subsequence":
			cfg.Alignment.Subsequence = opts.subsequence
		case "hop":
			cfg.Similarity.HopSize = opts.hop
		case "shift":
			cfg.Similarity.ShiftSearch = config.ShiftSearch(opts.shift)
		case "max-shift":
			cfg.Similarity.MaxPitchShift = opts.maxShift
		case "time-per-chunk":
			cfg.PianoRoll.TimePerChunk = opts.timePerChunk
		case "drop-silent":
			cfg.Similarity.DropSilentFrames = opts.dropSilent
		}
	})
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	if opts.version {
		fmt.Fprintf(stdout, "sonido-align version %s\n", version)
		return exitOK
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitError
	}

	cfg, err := buildConfig(opts, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logger := logging.NewDefaultLoggerTo(stderr)
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
	if f, ok := stderr.(*os.File); ok && !opts.noColor && logging.IsTerminal(f) {
		logging.EnableColors()
	} else {
		logging.DisableColors()
	}

	aligner, err := pipeline.NewAligner(cfg)
	if err != nil {
		logger.Error(err, "Invalid configuration")
		return exitError
	}

	result, err := aligner.AlignFiles(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		logger.Error(err, "Alignment failed")
		return exitError
	}

	if err := writeResult(result, opts.out, stdout); err != nil {
		logger.Error(err, "Failed to write result")
		return exitError
	}

	if !result.Found {
		logger.Warn("No alignment found", logging.Fields{"error": alignment.ErrNoAlignment.Error()})
		return exitNoAlignment
	}
	logger.Info("Alignment written", logging.Fields{
		"cost":        result.Cost,
		"path_length": len(result.PathRows),
		"pitch_shift": result.PitchShift,
	})
	return exitOK
}

func writeResult(result *pipeline.Result, path string, stdout io.Writer) error {
	if path == "" {
		return encodeResult(stdout, result)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return writeAndClose(f, result)
}

// writeAndClose reports a failed close when the encode itself succeeded.
func writeAndClose(wc io.WriteCloser, result *pipeline.Result) (err error) {
	defer func() {
		if cerr := wc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	return encodeResult(wc, result)
}

func encodeResult(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

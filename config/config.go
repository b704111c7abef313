// Package config holds the user-facing settings for building piano rolls,
// similarity matrices and alignments, and loads them from JSON files.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/sonido-align/algorithms/alignment"
	"github.com/RyanBlaney/sonido-align/algorithms/similarity"
	"github.com/RyanBlaney/sonido-align/logging"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"github.com/RyanBlaney/sonido-align/transcode"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Mode string

const (
	// ModeSelfSimilarity aligns the two self-similarity matrices.
	ModeSelfSimilarity Mode = "self_similarity"
	// ModeCrossSimilarity runs plain DTW on 1 - cross-similarity.
	ModeCrossSimilarity Mode = "cross_similarity"
)

type ShiftSearch string

const (
	ShiftNone       ShiftSearch = "none"
	ShiftExhaustive ShiftSearch = "exhaustive" // one similarity matrix per candidate
	ShiftProfile    ShiftSearch = "profile"    // FFT pitch-profile estimate, one matrix
)

type SimilarityConfig struct {
	HopSize          int    `json:"hop_size"`
	SilentPolicy     string `json:"silent_policy"` // "match", "mismatch"
	DropSilentFrames bool   `json:"drop_silent_frames"`
	// CompactPitches builds rolls over only the pitches either piece uses.
	CompactPitches bool `json:"compact_pitches"`

	// Transposition search, cross-similarity mode only.
	ShiftSearch   ShiftSearch `json:"shift_search"`
	MaxPitchShift int         `json:"max_pitch_shift"`
}

type AlignmentConfig struct {
	Mode        Mode             `json:"mode"`
	Subsequence bool             `json:"subsequence"`
	Steps       []alignment.Step `json:"steps"`
}

type Config struct {
	PianoRoll  pianoroll.Config        `json:"piano_roll"`
	Similarity SimilarityConfig        `json:"similarity"`
	Alignment  AlignmentConfig         `json:"alignment"`
	MIDI       transcode.DecoderConfig `json:"midi"`
	LogLevel   string                  `json:"log_level"`
}

func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		HopSize:       1,
		SilentPolicy:  "match",
		ShiftSearch:   ShiftNone,
		MaxPitchShift: 6,
	}
}

func DefaultAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		Mode:        ModeSelfSimilarity,
		Subsequence: false,
		Steps:       alignment.DefaultSteps().Steps(),
	}
}

// DefaultConfig returns self-similarity alignment over 100ms onset frames.
func DefaultConfig() *Config {
	return &Config{
		PianoRoll:  pianoroll.DefaultConfig(),
		Similarity: DefaultSimilarityConfig(),
		Alignment:  DefaultAlignmentConfig(),
		MIDI:       *transcode.DefaultDecoderConfig(),
		LogLevel:   "info",
	}
}

// ConfigForMode returns defaults tuned for mode.
func ConfigForMode(mode Mode) *Config {
	cfg := DefaultConfig()
	cfg.Alignment.Mode = mode

	switch mode {
	case ModeCrossSimilarity:
		// Transpositions only matter when comparing the two pieces directly.
		cfg.Similarity.ShiftSearch = ShiftExhaustive
		cfg.Similarity.DropSilentFrames = true
		cfg.Alignment.Steps = alignment.ClassicSteps().Steps()
	case ModeSelfSimilarity:
		cfg.Similarity.HopSize = 2
	}

	return cfg
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	if err := c.PianoRoll.Validate(); err != nil {
		return fmt.Errorf("%w: piano_roll: %w", ErrInvalidConfig, err)
	}

	if c.Similarity.HopSize < 1 {
		return fmt.Errorf("%w: similarity.hop_size must be >= 1, got %d", ErrInvalidConfig, c.Similarity.HopSize)
	}
	if _, err := similarity.ParseSilentPolicy(c.Similarity.SilentPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Similarity.ShiftSearch {
	case "", ShiftNone, ShiftExhaustive, ShiftProfile:
	default:
		return fmt.Errorf("%w: unknown similarity.shift_search %q", ErrInvalidConfig, c.Similarity.ShiftSearch)
	}
	if c.Similarity.CompactPitches && c.Alignment.Mode == ModeCrossSimilarity &&
		c.Similarity.ShiftSearch != "" && c.Similarity.ShiftSearch != ShiftNone {
		return fmt.Errorf("%w: similarity.compact_pitches cannot be combined with a shift search", ErrInvalidConfig)
	}
	if c.Similarity.MaxPitchShift < 0 || c.Similarity.MaxPitchShift >= c.PianoRoll.PitchCount {
		return fmt.Errorf("%w: similarity.max_pitch_shift %d out of range", ErrInvalidConfig, c.Similarity.MaxPitchShift)
	}

	switch c.Alignment.Mode {
	case ModeSelfSimilarity, ModeCrossSimilarity:
	default:
		return fmt.Errorf("%w: unknown alignment.mode %q", ErrInvalidConfig, c.Alignment.Mode)
	}
	if _, err := c.StepSet(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SimilarityParams returns the builder parameters. Alignment always uses
// natural row order.
func (c *Config) SimilarityParams() (similarity.Params, error) {
	policy, err := similarity.ParseSilentPolicy(c.Similarity.SilentPolicy)
	if err != nil {
		return similarity.Params{}, err
	}
	return similarity.Params{
		HopSize:     c.Similarity.HopSize,
		Silent:      policy,
		Orientation: similarity.Natural,
	}, nil
}

// StepSet returns the configured steps, or the defaults when none are set.
func (c *Config) StepSet() (alignment.StepSet, error) {
	if len(c.Alignment.Steps) == 0 {
		return alignment.DefaultSteps(), nil
	}
	return alignment.NewStepSet(c.Alignment.Steps...)
}

// Load decodes JSON from r over the defaults and validates the result.
// Unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a JSON config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Save writes c as indented JSON.
func (c *Config) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

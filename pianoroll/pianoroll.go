// Package pianoroll turns note events into fixed-frame piano-roll grids and
// the boolean onset matrices consumed by the similarity builder.
package pianoroll

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultPitchCount is the MIDI key range.
	DefaultPitchCount = 128
	// DefaultTimePerChunk is the frame duration in seconds.
	DefaultTimePerChunk = 0.1
)

var (
	ErrInvalidConfig   = errors.New("pianoroll: invalid config")
	ErrPitchOutOfRange = errors.New("pianoroll: pitch out of range")
	ErrNoEvents        = errors.New("pianoroll: no note events")
	ErrInvalidEvent    = errors.New("pianoroll: invalid note event")
	ErrRaggedRows      = errors.New("pianoroll: rows have different lengths")
)

// NoteEvent is one sounding note as produced by a MIDI/CSV extractor.
type NoteEvent struct {
	Pitch    int     `json:"pitch"`
	Onset    float64 `json:"onset"`    // seconds
	Velocity int     `json:"velocity"` // 1..127
	Duration float64 `json:"duration"` // seconds
}

// Cell is a piano-roll entry. A zero Cell means no note.
type Cell struct {
	Duration float64 `json:"duration"`
	Velocity int     `json:"velocity"`
}

// Active reports whether the cell holds a note.
func (c Cell) Active() bool {
	return c.Velocity > 0
}

// Config controls quantization.
type Config struct {
	PitchCount   int     `json:"pitch_count"`
	TimePerChunk float64 `json:"time_per_chunk"`
	// OnsetOnly marks only the onset frame; otherwise every frame the note
	// is held is marked.
	OnsetOnly bool `json:"onset_only"`
}

// DefaultConfig returns 128 pitches, 100ms frames, onsets only.
func DefaultConfig() Config {
	return Config{
		PitchCount:   DefaultPitchCount,
		TimePerChunk: DefaultTimePerChunk,
		OnsetOnly:    true,
	}
}

// Validate checks the quantization parameters.
func (c Config) Validate() error {
	if c.PitchCount < 1 {
		return fmt.Errorf("%w: pitch count %d", ErrInvalidConfig, c.PitchCount)
	}
	if !(c.TimePerChunk > 0) || math.IsInf(c.TimePerChunk, 0) {
		return fmt.Errorf("%w: time per chunk %v", ErrInvalidConfig, c.TimePerChunk)
	}
	return nil
}

// FramesPerSecond converts frame indices back to seconds.
func (c Config) FramesPerSecond() float64 {
	return 1 / c.TimePerChunk
}

// PianoRoll is a pitch x frame grid of (duration, velocity) cells.
type PianoRoll struct {
	pitches int
	frames  int
	cells   []Cell
	config  Config
}

// Build quantizes events into a piano roll. The number of frames is
// ceil(maxOnset / TimePerChunk), extended so the frame holding the last
// onset exists. Later events overwrite earlier ones in the same cell.
func Build(events []NoteEvent, cfg Config) (*PianoRoll, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	maxOnset := 0.0
	for i, ev := range events {
		if ev.Pitch < 0 || ev.Pitch >= cfg.PitchCount {
			return nil, fmt.Errorf("%w: event %d has pitch %d (pitch count %d)", ErrPitchOutOfRange, i, ev.Pitch, cfg.PitchCount)
		}
		if ev.Onset < 0 || ev.Duration < 0 || math.IsNaN(ev.Onset) || math.IsNaN(ev.Duration) ||
			math.IsInf(ev.Onset, 0) || math.IsInf(ev.Duration, 0) {
			return nil, fmt.Errorf("%w: event %d onset=%v duration=%v", ErrInvalidEvent, i, ev.Onset, ev.Duration)
		}
		if ev.Velocity <= 0 {
			return nil, fmt.Errorf("%w: event %d velocity %d", ErrInvalidEvent, i, ev.Velocity)
		}
		maxOnset = math.Max(maxOnset, ev.Onset)
	}

	frames := int(math.Ceil(maxOnset / cfg.TimePerChunk))
	if last := frameOf(maxOnset, cfg.TimePerChunk); last >= frames {
		frames = last + 1
	}

	roll := &PianoRoll{
		pitches: cfg.PitchCount,
		frames:  frames,
		cells:   make([]Cell, cfg.PitchCount*frames),
		config:  cfg,
	}

	for _, ev := range events {
		cell := Cell{Duration: ev.Duration, Velocity: ev.Velocity}
		start := frameOf(ev.Onset, cfg.TimePerChunk)
		end := start
		if !cfg.OnsetOnly {
			end = min(frameOf(ev.Onset+ev.Duration, cfg.TimePerChunk), frames-1)
		}
		for f := start; f <= end; f++ {
			roll.cells[ev.Pitch*frames+f] = cell
		}
	}

	return roll, nil
}

func frameOf(t, chunk float64) int {
	return int(math.Floor(t / chunk))
}

// Dims returns (pitches, frames).
func (p *PianoRoll) Dims() (pitches, frames int) {
	return p.pitches, p.frames
}

// Config returns the quantization used to build the roll.
func (p *PianoRoll) Config() Config {
	return p.config
}

// At returns the cell at (pitch, frame); out-of-range reads return a zero Cell.
func (p *PianoRoll) At(pitch, frame int) Cell {
	if pitch < 0 || pitch >= p.pitches || frame < 0 || frame >= p.frames {
		return Cell{}
	}
	return p.cells[pitch*p.frames+frame]
}

// Onsets returns the boolean matrix of active cells.
func (p *PianoRoll) Onsets() *OnsetMatrix {
	m := newOnsetMatrix(p.pitches, p.frames)
	for i, c := range p.cells {
		m.cells[i] = c.Active()
	}
	return m
}

// Package pipeline turns two note-event lists into an alignment: piano
// rolls, onset matrices, similarity matrices, the DTW sweep and finally a
// path in frames and seconds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-align/algorithms/alignment"
	"github.com/RyanBlaney/sonido-align/algorithms/similarity"
	"github.com/RyanBlaney/sonido-align/config"
	"github.com/RyanBlaney/sonido-align/logging"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"github.com/RyanBlaney/sonido-align/transcode"
	"gonum.org/v1/gonum/mat"
)

var ErrNilInput = errors.New("pipeline: nil input")

// Result is an alignment of piece A (lattice rows) against piece B
// (lattice columns). Frame indices refer to the original piano-roll frames
// even when silent frames were dropped.
type Result struct {
	Mode  config.Mode `json:"mode"`
	Found bool        `json:"found"`
	Cost  float64     `json:"cost"` // 0 when not found

	PathRows []int     `json:"path_rows"`
	PathCols []int     `json:"path_cols"`
	TimesA   []float64 `json:"times_a"`
	TimesB   []float64 `json:"times_b"`

	Rows int `json:"rows"` // lattice size
	Cols int `json:"cols"`

	PitchShift int     `json:"pitch_shift"` // applied to A, cross-similarity only
	ShiftScore float64 `json:"shift_score,omitempty"`

	Quality        alignment.QualityMetrics `json:"quality"`
	ProcessingTime float64                  `json:"processing_time"` // ms
}

// Aligner runs the full alignment pipeline for one configuration. It holds
// no per-call state and may be shared between goroutines.
type Aligner struct {
	config  *config.Config
	params  similarity.Params
	engine  *alignment.Engine
	decoder *transcode.Decoder
	logger  logging.Logger
}

// NewAligner validates cfg (nil means defaults) and prepares an Aligner.
func NewAligner(cfg *config.Config) (*Aligner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := cfg.SimilarityParams()
	if err != nil {
		return nil, err
	}
	steps, err := cfg.StepSet()
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "aligner",
		"mode":      string(cfg.Alignment.Mode),
	})

	midi := cfg.MIDI
	return &Aligner{
		config: cfg,
		params: params,
		engine: alignment.NewEngine(steps, alignment.Options{
			Subsequence: cfg.Alignment.Subsequence,
			Logger:      logger,
		}),
		decoder: transcode.NewDecoder(&midi),
		logger:  logger,
	}, nil
}

func (a *Aligner) Config() *config.Config {
	return a.config
}

// AlignFiles decodes two Standard MIDI Files and aligns them.
func (a *Aligner) AlignFiles(ctx context.Context, pathA, pathB string) (*Result, error) {
	scoreA, err := a.decoder.DecodeFile(pathA)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", pathA, err)
	}
	scoreB, err := a.decoder.DecodeFile(pathB)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", pathB, err)
	}
	return a.AlignEvents(ctx, scoreA.Events, scoreB.Events)
}

// AlignEvents aligns note events a (rows) against b (columns). In
// subsequence mode a is searched for inside b.
func (a *Aligner) AlignEvents(ctx context.Context, eventsA, eventsB []pianoroll.NoteEvent) (*Result, error) {
	start := time.Now()
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "AlignEvents",
		"events_a": len(eventsA),
		"events_b": len(eventsB),
	})

	if eventsA == nil || eventsB == nil {
		return nil, ErrNilInput
	}

	rollCfg := a.config.PianoRoll
	if a.config.Similarity.CompactPitches {
		pm := pianoroll.NewPitchMap(eventsA, eventsB)
		var err error
		if eventsA, err = pm.Remap(eventsA); err != nil {
			return nil, err
		}
		if eventsB, err = pm.Remap(eventsB); err != nil {
			return nil, err
		}
		rollCfg.PitchCount = max(pm.Len(), 1)
		logger.Debug("Compacted pitch range", logging.Fields{"pitches": pm.Len()})
	}

	onsetsA, framesA, err := a.onsets(eventsA, rollCfg)
	if err != nil {
		return nil, fmt.Errorf("piece A: %w", err)
	}
	onsetsB, framesB, err := a.onsets(eventsB, rollCfg)
	if err != nil {
		return nil, fmt.Errorf("piece B: %w", err)
	}

	result := &Result{Mode: a.config.Alignment.Mode}

	var table *alignment.Table
	switch a.config.Alignment.Mode {
	case config.ModeCrossSimilarity:
		cost, shift, err := a.crossCost(onsetsA, onsetsB)
		if err != nil {
			return nil, err
		}
		result.PitchShift = shift.Shift
		result.ShiftScore = shift.Score
		table, err = a.engine.AlignCost(ctx, cost)
		if err != nil {
			return nil, err
		}

	default:
		ssA, err := similarity.SelfSimilarity(onsetsA, a.params)
		if err != nil {
			return nil, fmt.Errorf("self-similarity A: %w", err)
		}
		ssB, err := similarity.SelfSimilarity(onsetsB, a.params)
		if err != nil {
			return nil, fmt.Errorf("self-similarity B: %w", err)
		}
		table, err = a.engine.AlignSelfSimilarity(ctx, ssA, ssB)
		if err != nil {
			return nil, err
		}
	}

	result.Rows, result.Cols = table.Dims()
	best := table.Best()
	result.Found = best.Found
	result.Quality = alignment.Quality(best, result.Rows, result.Cols)

	if best.Found {
		path := best.Path.Remap(framesA, framesB)
		fps := a.config.PianoRoll.FramesPerSecond()
		result.Cost = best.Cost
		result.PathRows = path.Rows()
		result.PathCols = path.Cols()
		result.TimesA, result.TimesB = path.Times(fps, fps)
	}
	result.ProcessingTime = float64(time.Since(start).Microseconds()) / 1000

	logger.Debug("Alignment completed", logging.Fields{
		"found":       result.Found,
		"cost":        result.Cost,
		"rows":        result.Rows,
		"cols":        result.Cols,
		"path_length": len(result.PathRows),
		"pitch_shift": result.PitchShift,
	})
	return result, nil
}

// onsets builds the onset matrix for events. The returned frame list maps
// compacted frames back to roll frames and is nil when nothing was dropped.
func (a *Aligner) onsets(events []pianoroll.NoteEvent, cfg pianoroll.Config) (*pianoroll.OnsetMatrix, []int, error) {
	roll, err := pianoroll.Build(events, cfg)
	if err != nil {
		return nil, nil, err
	}
	onsets := roll.Onsets()
	if !a.config.Similarity.DropSilentFrames {
		return onsets, nil, nil
	}
	compact, frames := onsets.DropSilentFrames()
	return compact, frames, nil
}

// crossCost returns 1 - similarity with rows following A and columns B.
// The transposition search shifts A onto B.
func (a *Aligner) crossCost(onsetsA, onsetsB *pianoroll.OnsetMatrix) (*mat.Dense, *similarity.ShiftResult, error) {
	var (
		shift *similarity.ShiftResult
		err   error
	)
	switch a.config.Similarity.ShiftSearch {
	case config.ShiftExhaustive:
		shift, err = similarity.BestPitchShift(onsetsB, onsetsA, a.config.Similarity.MaxPitchShift, a.params)
	case config.ShiftProfile:
		var s int
		s, err = similarity.EstimateShift(onsetsB, onsetsA, a.config.Similarity.MaxPitchShift)
		if err == nil {
			shift, err = similarity.BuildShifted(onsetsB, onsetsA, s, a.params)
		}
	default:
		shift, err = similarity.BuildShifted(onsetsB, onsetsA, 0, a.params)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cross-similarity: %w", err)
	}

	r, c := shift.Matrix.Dims()
	cost := mat.NewDense(r, c, nil)
	cost.Apply(func(_, _ int, v float64) float64 { return 1 - v }, shift.Matrix)
	return cost, shift, nil
}

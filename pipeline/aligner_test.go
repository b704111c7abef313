package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-align/config"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"github.com/RyanBlaney/sonido-align/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const frame = 0.25

// melody places one note every two frames.
func melody(pitches ...int) []pianoroll.NoteEvent {
	events := make([]pianoroll.NoteEvent, len(pitches))
	for i, p := range pitches {
		events[i] = pianoroll.NoteEvent{
			Pitch:    p,
			Onset:    float64(2*i) * frame,
			Velocity: 100,
			Duration: frame,
		}
	}
	return events
}

func newAligner(t *testing.T, cfg *config.Config) *pipeline.Aligner {
	t.Helper()
	cfg.PianoRoll.TimePerChunk = frame
	cfg.LogLevel = "error"
	a, err := pipeline.NewAligner(cfg)
	require.NoError(t, err)
	return a
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestAlignEvents_SelfSimilarityIdentical(t *testing.T) {
	a := newAligner(t, config.DefaultConfig())
	tune := melody(60, 62, 64, 65, 67)

	res, err := a.AlignEvents(context.Background(), tune, tune)
	require.NoError(t, err)
	require.True(t, res.Found)

	assert.Equal(t, config.ModeSelfSimilarity, res.Mode)
	assert.Equal(t, 9, res.Rows)
	assert.Equal(t, 9, res.Cols)
	assert.InDelta(t, 0, res.Cost, 1e-12)
	assert.Equal(t, seq(9), res.PathRows)
	assert.Equal(t, res.PathRows, res.PathCols)
	assert.Equal(t, 2.0, res.TimesA[8])
	assert.Equal(t, 1.0, res.Quality.DiagonalRatio)
}

func TestAlignEvents_CrossSimilarityFindsTransposition(t *testing.T) {
	a := newAligner(t, config.ConfigForMode(config.ModeCrossSimilarity))

	reference := melody(60, 62, 64, 65, 67)
	transposed := melody(62, 64, 66, 67, 69)

	res, err := a.AlignEvents(context.Background(), transposed, reference)
	require.NoError(t, err)
	require.True(t, res.Found)

	assert.Equal(t, 2, res.PitchShift)
	assert.Equal(t, 5, res.Rows, "silent frames are dropped")
	assert.InDelta(t, 0, res.Cost, 1e-12)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, res.PathRows)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, res.PathCols)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2}, res.TimesB)
}

func TestAlignEvents_ProfileShiftSearch(t *testing.T) {
	cfg := config.ConfigForMode(config.ModeCrossSimilarity)
	cfg.Similarity.ShiftSearch = config.ShiftProfile
	a := newAligner(t, cfg)

	res, err := a.AlignEvents(context.Background(), melody(57, 59, 61, 62, 64), melody(60, 62, 64, 65, 67))
	require.NoError(t, err)
	assert.Equal(t, -3, res.PitchShift)
	assert.InDelta(t, 0, res.Cost, 1e-12)
}

func TestAlignEvents_SubsequenceLocatesExcerpt(t *testing.T) {
	cfg := config.ConfigForMode(config.ModeCrossSimilarity)
	cfg.Similarity.ShiftSearch = config.ShiftNone
	cfg.Alignment.Subsequence = true
	a := newAligner(t, cfg)

	piece := melody(60, 62, 64, 65, 67, 69, 71, 72)
	excerpt := melody(65, 67, 69)

	res, err := a.AlignEvents(context.Background(), excerpt, piece)
	require.NoError(t, err)
	require.True(t, res.Found)

	assert.InDelta(t, 0, res.Cost, 1e-12)
	assert.Equal(t, []int{0, 2, 4}, res.PathRows)
	assert.Equal(t, []int{6, 8, 10}, res.PathCols)
	assert.Equal(t, []float64{1.5, 2, 2.5}, res.TimesB)
}

func TestAlignEvents_Errors(t *testing.T) {
	a := newAligner(t, config.DefaultConfig())

	_, err := a.AlignEvents(context.Background(), nil, melody(60))
	assert.ErrorIs(t, err, pipeline.ErrNilInput)

	_, err = a.AlignEvents(context.Background(), melody(200), melody(60))
	assert.ErrorIs(t, err, pianoroll.ErrPitchOutOfRange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.AlignEvents(ctx, melody(60, 62), melody(60, 62))
	assert.ErrorIs(t, err, context.Canceled)

	bad := config.DefaultConfig()
	bad.Alignment.Mode = "sideways"
	_, err = pipeline.NewAligner(bad)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestResultJSON(t *testing.T) {
	a := newAligner(t, config.DefaultConfig())
	res, err := a.AlignEvents(context.Background(), melody(60, 64), melody(60, 64))
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"mode", "found", "cost", "path_rows", "path_cols", "times_a", "times_b", "pitch_shift", "quality"} {
		assert.Contains(t, decoded, key)
	}
}

func TestAlignFiles(t *testing.T) {
	write := func(name string, pitches ...uint8) string {
		s := smf.New()
		s.TimeFormat = smf.MetricTicks(480)
		var tr smf.Track
		tr.Add(0, smf.MetaTempo(120))
		for _, p := range pitches {
			tr.Add(0, midi.NoteOn(0, p, 90))
			tr.Add(480, midi.NoteOff(0, p))
		}
		tr.Close(0)
		require.NoError(t, s.Add(tr))

		var buf bytes.Buffer
		_, err := s.WriteTo(&buf)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		return path
	}

	a := newAligner(t, config.DefaultConfig())
	res, err := a.AlignFiles(context.Background(), write("a.mid", 60, 62, 64), write("b.mid", 60, 62, 64))
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, res.PathRows, res.PathCols)

	_, err = a.AlignFiles(context.Background(), filepath.Join(t.TempDir(), "missing.mid"), write("c.mid", 60))
	assert.Error(t, err)
}

func TestAlignEvents_CompactPitchesKeepsResult(t *testing.T) {
	build := func(compact bool) *pipeline.Aligner {
		cfg := config.ConfigForMode(config.ModeCrossSimilarity)
		cfg.Similarity.ShiftSearch = config.ShiftNone
		cfg.Similarity.CompactPitches = compact
		return newAligner(t, cfg)
	}

	a := melody(60, 64, 67, 72, 67, 64)
	b := melody(60, 64, 65, 67, 72, 64)

	full, err := build(false).AlignEvents(context.Background(), a, b)
	require.NoError(t, err)
	compact, err := build(true).AlignEvents(context.Background(), a, b)
	require.NoError(t, err)

	assert.Equal(t, full.PathRows, compact.PathRows)
	assert.Equal(t, full.PathCols, compact.PathCols)
	assert.InDelta(t, full.Cost, compact.Cost, 1e-12)
}

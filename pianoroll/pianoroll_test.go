package pianoroll_test

import (
	"testing"

	"github.com/RyanBlaney/sonido-align/pianoroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(onsetOnly bool) pianoroll.Config {
	return pianoroll.Config{PitchCount: 4, TimePerChunk: 0.1, OnsetOnly: onsetOnly}
}

func TestBuild_OnsetOnly(t *testing.T) {
	events := []pianoroll.NoteEvent{
		{Pitch: 1, Onset: 0.0, Velocity: 64, Duration: 0.25},
		{Pitch: 3, Onset: 0.25, Velocity: 80, Duration: 0.1},
	}

	roll, err := pianoroll.Build(events, smallConfig(true))
	require.NoError(t, err)

	pitches, frames := roll.Dims()
	assert.Equal(t, 4, pitches)
	assert.Equal(t, 3, frames, "ceil(0.25/0.1) frames")

	assert.Equal(t, pianoroll.Cell{Duration: 0.25, Velocity: 64}, roll.At(1, 0))
	assert.False(t, roll.At(1, 1).Active(), "onset-only leaves held frames empty")
	assert.Equal(t, 80, roll.At(3, 2).Velocity)
	assert.Equal(t, pianoroll.Cell{}, roll.At(9, 9), "out of range reads are empty")
}

func TestBuild_HeldNotesAreClipped(t *testing.T) {
	events := []pianoroll.NoteEvent{
		{Pitch: 0, Onset: 0.0, Velocity: 10, Duration: 5},
		{Pitch: 2, Onset: 0.35, Velocity: 20, Duration: 0.1},
	}

	roll, err := pianoroll.Build(events, smallConfig(false))
	require.NoError(t, err)

	_, frames := roll.Dims()
	require.Equal(t, 4, frames)
	for f := 0; f < frames; f++ {
		assert.True(t, roll.At(0, f).Active(), "held through frame %d", f)
	}
	assert.True(t, roll.At(2, 3).Active())
}

func TestBuild_LastOnsetOnFrameBoundary(t *testing.T) {
	roll, err := pianoroll.Build([]pianoroll.NoteEvent{{Pitch: 0, Onset: 0, Velocity: 1}}, smallConfig(true))
	require.NoError(t, err)

	_, frames := roll.Dims()
	assert.Equal(t, 1, frames, "a single onset at t=0 still needs one frame")
	assert.True(t, roll.Onsets().At(0, 0))
}

func TestBuild_Errors(t *testing.T) {
	_, err := pianoroll.Build(nil, smallConfig(true))
	assert.ErrorIs(t, err, pianoroll.ErrNoEvents)

	_, err = pianoroll.Build([]pianoroll.NoteEvent{{Pitch: 4, Velocity: 1}}, smallConfig(true))
	assert.ErrorIs(t, err, pianoroll.ErrPitchOutOfRange)

	_, err = pianoroll.Build([]pianoroll.NoteEvent{{Pitch: 1, Onset: -1, Velocity: 1}}, smallConfig(true))
	assert.ErrorIs(t, err, pianoroll.ErrInvalidEvent)

	_, err = pianoroll.Build([]pianoroll.NoteEvent{{Pitch: 1}}, smallConfig(true))
	assert.ErrorIs(t, err, pianoroll.ErrInvalidEvent, "zero velocity is not a note")

	_, err = pianoroll.Build([]pianoroll.NoteEvent{{Pitch: 1, Velocity: 1}}, pianoroll.Config{PitchCount: 4})
	assert.ErrorIs(t, err, pianoroll.ErrInvalidConfig)
}

func TestConfig_FramesPerSecond(t *testing.T) {
	assert.InDelta(t, 10.0, pianoroll.DefaultConfig().FramesPerSecond(), 1e-12)
}

func TestOnsetMatrix_ShiftedAndCounts(t *testing.T) {
	m, err := pianoroll.FromInts([][]int{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	require.NoError(t, err)

	up := m.Shifted(1)
	assert.Equal(t, [][]bool{
		{false, true, false},
		{false, false, true},
		{false, false, false},
	}, up.Rows())

	down := m.Shifted(-1)
	assert.Equal(t, [][]bool{
		{false, false, false},
		{true, false, false},
		{false, true, false},
	}, down.Rows())

	assert.Equal(t, 1, m.FrameCount(2))
	assert.Equal(t, 1, m.PitchCount(0))
	assert.Equal(t, [][]bool{{true, false, false}, {false, true, false}, {false, false, true}}, m.Rows(), "source untouched")
}

func TestOnsetMatrix_DropSilentFrames(t *testing.T) {
	m, err := pianoroll.FromInts([][]int{
		{0, 1, 0, 0},
		{0, 0, 0, 1},
	})
	require.NoError(t, err)

	compact, kept := m.DropSilentFrames()
	assert.Equal(t, []int{1, 3}, kept)
	assert.Equal(t, [][]bool{{true, false}, {false, true}}, compact.Rows())
}

func TestNewOnsetMatrix_Ragged(t *testing.T) {
	_, err := pianoroll.NewOnsetMatrix([][]bool{{true}, {true, false}})
	assert.ErrorIs(t, err, pianoroll.ErrRaggedRows)
}

func TestPitchMap(t *testing.T) {
	a := []pianoroll.NoteEvent{{Pitch: 64}, {Pitch: 60}}
	b := []pianoroll.NoteEvent{{Pitch: 67}, {Pitch: 60}}

	pm := pianoroll.NewPitchMap(a, b)
	require.Equal(t, 3, pm.Len())
	assert.Equal(t, 60, pm.Pitch(0))

	row, ok := pm.Row(67)
	assert.True(t, ok)
	assert.Equal(t, 2, row)

	remapped, err := pm.Remap(b)
	require.NoError(t, err)
	assert.Equal(t, 2, remapped[0].Pitch)
	assert.Equal(t, 67, b[0].Pitch, "input not mutated")

	_, err = pm.Remap([]pianoroll.NoteEvent{{Pitch: 1}})
	assert.ErrorIs(t, err, pianoroll.ErrPitchOutOfRange)
}

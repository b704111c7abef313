package pianoroll

import (
	"fmt"
	"slices"
)

// PitchMap maps the distinct pitches used by a set of events onto dense
// row indices. It is built once and never mutated.
type PitchMap struct {
	pitches []int
	rows    map[int]int
}

// NewPitchMap collects the distinct pitches of events in ascending order.
func NewPitchMap(events ...[]NoteEvent) *PitchMap {
	seen := make(map[int]struct{})
	for _, evs := range events {
		for _, ev := range evs {
			seen[ev.Pitch] = struct{}{}
		}
	}

	pitches := make([]int, 0, len(seen))
	for p := range seen {
		pitches = append(pitches, p)
	}
	slices.Sort(pitches)

	rows := make(map[int]int, len(pitches))
	for i, p := range pitches {
		rows[p] = i
	}
	return &PitchMap{pitches: pitches, rows: rows}
}

// Len is the number of rows.
func (m *PitchMap) Len() int {
	return len(m.pitches)
}

// Row returns the row of pitch.
func (m *PitchMap) Row(pitch int) (int, bool) {
	r, ok := m.rows[pitch]
	return r, ok
}

// Pitch returns the pitch stored at row.
func (m *PitchMap) Pitch(row int) int {
	return m.pitches[row]
}

// Remap rewrites event pitches to dense rows so a roll can be built with
// PitchCount = m.Len().
func (m *PitchMap) Remap(events []NoteEvent) ([]NoteEvent, error) {
	out := make([]NoteEvent, len(events))
	for i, ev := range events {
		r, ok := m.rows[ev.Pitch]
		if !ok {
			return nil, fmt.Errorf("%w: pitch %d not in map", ErrPitchOutOfRange, ev.Pitch)
		}
		ev.Pitch = r
		out[i] = ev
	}
	return out, nil
}

package pianoroll

import "fmt"

// OnsetMatrix is an immutable pitch x frame boolean matrix.
type OnsetMatrix struct {
	pitches int
	frames  int
	cells   []bool
}

func newOnsetMatrix(pitches, frames int) *OnsetMatrix {
	return &OnsetMatrix{
		pitches: pitches,
		frames:  frames,
		cells:   make([]bool, pitches*frames),
	}
}

// NewOnsetMatrix copies rows (one per pitch) into a new matrix.
func NewOnsetMatrix(rows [][]bool) (*OnsetMatrix, error) {
	if len(rows) == 0 {
		return newOnsetMatrix(0, 0), nil
	}
	frames := len(rows[0])
	m := newOnsetMatrix(len(rows), frames)
	for p, row := range rows {
		if len(row) != frames {
			return nil, fmt.Errorf("%w: row %d has %d frames, want %d", ErrRaggedRows, p, len(row), frames)
		}
		copy(m.cells[p*frames:(p+1)*frames], row)
	}
	return m, nil
}

// FromInts builds a matrix from 0/1 rows; any non-zero value is active.
func FromInts(rows [][]int) (*OnsetMatrix, error) {
	bools := make([][]bool, len(rows))
	for p, row := range rows {
		bools[p] = make([]bool, len(row))
		for f, v := range row {
			bools[p][f] = v != 0
		}
	}
	return NewOnsetMatrix(bools)
}

// Dims returns (pitches, frames).
func (m *OnsetMatrix) Dims() (pitches, frames int) {
	return m.pitches, m.frames
}

// At reports whether pitch is active at frame. Out-of-range reads are false.
func (m *OnsetMatrix) At(pitch, frame int) bool {
	if pitch < 0 || pitch >= m.pitches || frame < 0 || frame >= m.frames {
		return false
	}
	return m.cells[pitch*m.frames+frame]
}

// FrameCount returns the number of active pitches at frame.
func (m *OnsetMatrix) FrameCount(frame int) int {
	n := 0
	for p := 0; p < m.pitches; p++ {
		if m.cells[p*m.frames+frame] {
			n++
		}
	}
	return n
}

// PitchCount returns the number of frames in which pitch is active.
func (m *OnsetMatrix) PitchCount(pitch int) int {
	n := 0
	for _, on := range m.cells[pitch*m.frames : (pitch+1)*m.frames] {
		if on {
			n++
		}
	}
	return n
}

// Shifted moves the pitch axis so that row p of the result holds row p+shift
// of m. Rows falling outside the matrix become silent.
func (m *OnsetMatrix) Shifted(shift int) *OnsetMatrix {
	out := newOnsetMatrix(m.pitches, m.frames)
	for p := 0; p < m.pitches; p++ {
		src := p + shift
		if src < 0 || src >= m.pitches {
			continue
		}
		copy(out.cells[p*m.frames:(p+1)*m.frames], m.cells[src*m.frames:(src+1)*m.frames])
	}
	return out
}

// DropSilentFrames removes frames in which no pitch is active. It returns
// the compacted matrix and, for each kept frame, its index in m.
func (m *OnsetMatrix) DropSilentFrames() (*OnsetMatrix, []int) {
	kept := make([]int, 0, m.frames)
	for f := 0; f < m.frames; f++ {
		if m.FrameCount(f) > 0 {
			kept = append(kept, f)
		}
	}

	out := newOnsetMatrix(m.pitches, len(kept))
	for p := 0; p < m.pitches; p++ {
		for i, f := range kept {
			out.cells[p*out.frames+i] = m.cells[p*m.frames+f]
		}
	}
	return out, kept
}

// Rows returns a copy of the matrix as pitch rows.
func (m *OnsetMatrix) Rows() [][]bool {
	rows := make([][]bool, m.pitches)
	for p := range rows {
		rows[p] = make([]bool, m.frames)
		copy(rows[p], m.cells[p*m.frames:(p+1)*m.frames])
	}
	return rows
}

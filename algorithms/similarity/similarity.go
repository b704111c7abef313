// Package similarity builds self- and cross-similarity matrices from piano-roll
// onset matrices using a sliding-window Dice overlap.
//
// For window start i in the second input and j in the first input,
//
//	sim(i, j) = 2·|A ∧ B| / (|A| + |B|)
//
// where A and B are the hop-wide windows and |·| counts active cells. When
// both windows are silent the value is set by SilentPolicy instead of NaN.
package similarity

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-align/algorithms/common"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyMatrix       = errors.New("similarity: empty onset matrix")
	ErrDimensionMismatch = errors.New("similarity: dimension mismatch")
	ErrInvalidHopSize    = errors.New("similarity: hop size must be >= 1")
	ErrInvalidShift      = errors.New("similarity: invalid pitch shift range")
)

// SilentPolicy decides the value of a window pair with no active cells.
type SilentPolicy int

const (
	// SilentAsMatch treats two silent windows as identical (1.0).
	SilentAsMatch SilentPolicy = iota
	// SilentAsMismatch treats two silent windows as unrelated (0.0).
	SilentAsMismatch
)

func (s SilentPolicy) value() float64 {
	if s == SilentAsMismatch {
		return 0.0
	}
	return 1.0
}

func (s SilentPolicy) String() string {
	switch s {
	case SilentAsMatch:
		return "match"
	case SilentAsMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// ParseSilentPolicy accepts "match" (or "") and "mismatch".
func ParseSilentPolicy(s string) (SilentPolicy, error) {
	switch s {
	case "", "match":
		return SilentAsMatch, nil
	case "mismatch":
		return SilentAsMismatch, nil
	default:
		return SilentAsMatch, fmt.Errorf("similarity: unknown silent policy %q", s)
	}
}

// Orientation controls the row order of the output.
type Orientation int

const (
	// Flipped stores window i of the second input at row rows-1-i. This is
	// the historical layout of plotted similarity matrices.
	Flipped Orientation = iota
	// Natural stores window i at row i. Alignment cost models expect this.
	Natural
)

func (o Orientation) String() string {
	switch o {
	case Flipped:
		return "flipped"
	case Natural:
		return "natural"
	default:
		return "unknown"
	}
}

// ParseOrientation accepts "flipped" (or "") and "natural".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "", "flipped":
		return Flipped, nil
	case "natural":
		return Natural, nil
	default:
		return Flipped, fmt.Errorf("similarity: unknown orientation %q", s)
	}
}

// Params configures Build.
type Params struct {
	HopSize     int          `json:"hop_size"`
	Silent      SilentPolicy `json:"silent"`
	Orientation Orientation  `json:"orientation"`
}

// DefaultParams returns hop size 1, silent windows as matches, flipped rows.
func DefaultParams() Params {
	return Params{
		HopSize:     1,
		Silent:      SilentAsMatch,
		Orientation: Flipped,
	}
}

// Build returns the (lenB-h+1) x (lenA-h+1) similarity matrix: rows follow
// the windows of b, columns the windows of a. Neither input is modified.
func Build(a, b *pianoroll.OnsetMatrix, p Params) (*mat.Dense, error) {
	if err := validate(a, b, p.HopSize); err != nil {
		return nil, err
	}

	_, lenA := a.Dims()
	_, lenB := b.Dims()
	h := p.HopSize
	rows, cols := lenB-h+1, lenA-h+1

	overlap := frameOverlap(a, b)
	onA := windowCounts(b, h) // windows of b, one per output row
	onB := windowCounts(a, h) // windows of a, one per output column

	out := mat.NewDense(rows, cols, nil)
	silent := p.Silent.value()
	for i := 0; i < rows; i++ {
		dst := i
		if p.Orientation == Flipped {
			dst = rows - 1 - i
		}
		for j := 0; j < cols; j++ {
			shared := 0
			for k := 0; k < h; k++ {
				shared += overlap[(i+k)*lenA+j+k]
			}

			total := onA[i] + onB[j]
			if total == 0 {
				out.Set(dst, j, silent)
				continue
			}
			out.Set(dst, j, common.Clamp(2*float64(shared)/float64(total), 0, 1))
		}
	}

	return out, nil
}

// SelfSimilarity compares m with itself.
func SelfSimilarity(m *pianoroll.OnsetMatrix, p Params) (*mat.Dense, error) {
	return Build(m, m, p)
}

func validate(a, b *pianoroll.OnsetMatrix, hop int) error {
	if a == nil || b == nil {
		return ErrEmptyMatrix
	}
	pa, lenA := a.Dims()
	pb, lenB := b.Dims()
	if pa == 0 || lenA == 0 || pb == 0 || lenB == 0 {
		return ErrEmptyMatrix
	}
	if pa != pb {
		return fmt.Errorf("%w: pitch axes %d and %d", ErrDimensionMismatch, pa, pb)
	}
	if hop < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidHopSize, hop)
	}
	if hop > lenA || hop > lenB {
		return fmt.Errorf("%w: hop size %d exceeds sequence lengths %d, %d", ErrDimensionMismatch, hop, lenA, lenB)
	}
	return nil
}

// frameOverlap returns a lenB x lenA row-major table of shared active
// pitches between frame i of b and frame j of a.
func frameOverlap(a, b *pianoroll.OnsetMatrix) []int {
	pitches, lenA := a.Dims()
	_, lenB := b.Dims()

	activeB := make([][]int, lenB)
	for f := range activeB {
		for p := 0; p < pitches; p++ {
			if b.At(p, f) {
				activeB[f] = append(activeB[f], p)
			}
		}
	}

	overlap := make([]int, lenB*lenA)
	for i, pitchesOn := range activeB {
		if len(pitchesOn) == 0 {
			continue
		}
		for j := 0; j < lenA; j++ {
			n := 0
			for _, p := range pitchesOn {
				if a.At(p, j) {
					n++
				}
			}
			overlap[i*lenA+j] = n
		}
	}
	return overlap
}

// windowCounts returns the number of active cells in every hop-wide window.
func windowCounts(m *pianoroll.OnsetMatrix, hop int) []int {
	_, frames := m.Dims()
	counts := make([]int, frames-hop+1)
	running := 0
	for f := 0; f < frames; f++ {
		running += m.FrameCount(f)
		if f >= hop {
			running -= m.FrameCount(f - hop)
		}
		if f >= hop-1 {
			counts[f-hop+1] = running
		}
	}
	return counts
}

package similarity

import (
	"fmt"

	"github.com/RyanBlaney/sonido-align/algorithms/common"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"gonum.org/v1/gonum/mat"
)

// ShiftScore is the mean similarity obtained for one pitch shift.
type ShiftScore struct {
	Shift int     `json:"shift"`
	Score float64 `json:"score"`
}

// ShiftResult is the outcome of a transposition search.
type ShiftResult struct {
	Matrix *mat.Dense   `json:"-"`
	Shift  int          `json:"shift"`
	Score  float64      `json:"score"`
	Tried  []ShiftScore `json:"tried"`
}

// ShiftOrder lists the candidate shifts 0, +1, -1, +2, -2, ... ±maxShift.
func ShiftOrder(maxShift int) []int {
	order := make([]int, 0, 2*maxShift+1)
	order = append(order, 0)
	for s := 1; s <= maxShift; s++ {
		order = append(order, s, -s)
	}
	return order
}

// BestPitchShift builds the similarity of a against every pitch-shifted
// variant of b (see OnsetMatrix.Shifted) and keeps the one with the highest
// mean similarity. Candidates are visited in ShiftOrder and only a strictly
// better score replaces the incumbent, so ties go to the smallest magnitude
// and then to the upward shift.
func BestPitchShift(a, b *pianoroll.OnsetMatrix, maxShift int, p Params) (*ShiftResult, error) {
	if err := validate(a, b, p.HopSize); err != nil {
		return nil, err
	}
	pitches, _ := b.Dims()
	if maxShift < 0 || maxShift >= pitches {
		return nil, fmt.Errorf("%w: max shift %d for %d pitches", ErrInvalidShift, maxShift, pitches)
	}

	var best *ShiftResult
	tried := make([]ShiftScore, 0, 2*maxShift+1)
	for _, s := range ShiftOrder(maxShift) {
		m, err := Build(a, b.Shifted(s), p)
		if err != nil {
			return nil, fmt.Errorf("shift %d: %w", s, err)
		}
		score := common.MatrixMean(m)
		tried = append(tried, ShiftScore{Shift: s, Score: score})

		if best == nil || score > best.Score {
			best = &ShiftResult{Matrix: m, Shift: s, Score: score}
		}
	}

	best.Tried = tried
	return best, nil
}

// BuildShifted builds the similarity of a against b shifted by shift.
func BuildShifted(a, b *pianoroll.OnsetMatrix, shift int, p Params) (*ShiftResult, error) {
	if err := validate(a, b, p.HopSize); err != nil {
		return nil, err
	}
	pitches, _ := b.Dims()
	if shift <= -pitches || shift >= pitches {
		return nil, fmt.Errorf("%w: shift %d for %d pitches", ErrInvalidShift, shift, pitches)
	}

	m, err := Build(a, b.Shifted(shift), p)
	if err != nil {
		return nil, err
	}
	score := common.MatrixMean(m)
	return &ShiftResult{
		Matrix: m,
		Shift:  shift,
		Score:  score,
		Tried:  []ShiftScore{{Shift: shift, Score: score}},
	}, nil
}

package alignment

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidStepSet is returned for empty step sets, negative or all-zero
	// deltas, duplicate deltas and bad weights.
	ErrInvalidStepSet = errors.New("alignment: invalid step set")
)

// Step is one legal DP transition: from (r-Rows, c-Cols) to (r, c), with the
// entered cell's marginal cost multiplied by Weight.
type Step struct {
	Rows   int     `json:"rows"`
	Cols   int     `json:"cols"`
	Weight float64 `json:"weight"`
}

// StepSet is an ordered, validated, immutable list of steps. Order matters:
// when two steps give the same cost the earlier one wins.
type StepSet struct {
	steps []Step
}

// NewStepSet validates steps and returns them as a StepSet.
func NewStepSet(steps ...Step) (StepSet, error) {
	if len(steps) == 0 {
		return StepSet{}, fmt.Errorf("%w: no steps", ErrInvalidStepSet)
	}
	if len(steps) > math.MaxInt16 {
		return StepSet{}, fmt.Errorf("%w: %d steps", ErrInvalidStepSet, len(steps))
	}

	seen := make(map[[2]int]int, len(steps))
	for i, s := range steps {
		if s.Rows < 0 || s.Cols < 0 {
			return StepSet{}, fmt.Errorf("%w: step %d has negative delta (%d,%d)", ErrInvalidStepSet, i, s.Rows, s.Cols)
		}
		if s.Rows == 0 && s.Cols == 0 {
			return StepSet{}, fmt.Errorf("%w: step %d does not move", ErrInvalidStepSet, i)
		}
		if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) || s.Weight < 0 {
			return StepSet{}, fmt.Errorf("%w: step %d has weight %v", ErrInvalidStepSet, i, s.Weight)
		}
		key := [2]int{s.Rows, s.Cols}
		if j, dup := seen[key]; dup {
			return StepSet{}, fmt.Errorf("%w: steps %d and %d both move (%d,%d)", ErrInvalidStepSet, j, i, s.Rows, s.Cols)
		}
		seen[key] = i
	}

	out := make([]Step, len(steps))
	copy(out, steps)
	return StepSet{steps: out}, nil
}

// StepsFromDeltas builds a StepSet from parallel row-delta, col-delta and
// weight slices.
func StepsFromDeltas(rows, cols []int, weights []float64) (StepSet, error) {
	if len(rows) != len(cols) || len(rows) != len(weights) {
		return StepSet{}, fmt.Errorf("%w: %d row deltas, %d col deltas, %d weights", ErrInvalidStepSet, len(rows), len(cols), len(weights))
	}
	steps := make([]Step, len(rows))
	for i := range rows {
		steps[i] = Step{Rows: rows[i], Cols: cols[i], Weight: weights[i]}
	}
	return NewStepSet(steps...)
}

// DefaultSteps is the diagonal plus the two 1:2 slopes, all with weight 1.
func DefaultSteps() StepSet {
	return StepSet{steps: []Step{
		{Rows: 1, Cols: 1, Weight: 1},
		{Rows: 1, Cols: 2, Weight: 1},
		{Rows: 2, Cols: 1, Weight: 1},
	}}
}

// ClassicSteps is the textbook DTW neighbourhood: down, right and diagonal.
func ClassicSteps() StepSet {
	return StepSet{steps: []Step{
		{Rows: 1, Cols: 1, Weight: 1},
		{Rows: 1, Cols: 0, Weight: 1},
		{Rows: 0, Cols: 1, Weight: 1},
	}}
}

// Len returns the number of steps.
func (s StepSet) Len() int {
	return len(s.steps)
}

// At returns step i.
func (s StepSet) At(i int) Step {
	return s.steps[i]
}

// Steps returns a copy of the steps in order.
func (s StepSet) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// MaxDelta returns the largest row and column deltas.
func (s StepSet) MaxDelta() (rows, cols int) {
	for _, st := range s.steps {
		rows = max(rows, st.Rows)
		cols = max(cols, st.Cols)
	}
	return rows, cols
}

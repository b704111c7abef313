package alignment

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNoAlignment is returned by Result.Err when no path reaches the end.
var ErrNoAlignment = errors.New("alignment: no monotonic path reaches the terminal cell")

// CellState tags every lattice cell after a sweep.
type CellState uint8

const (
	Uninitialized CellState = iota
	Unreachable
	Origin
	Reached
)

func (s CellState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Unreachable:
		return "unreachable"
	case Origin:
		return "origin"
	case Reached:
		return "reached"
	default:
		return "unknown"
	}
}

const noStep int16 = -1

// Table is the finished DP lattice: accumulated costs, cell states and one
// backpointer (the index of the winning step) per cell.
type Table struct {
	rows, cols  int
	subsequence bool
	steps       StepSet

	cost  []float64
	state []CellState
	back  []int16
}

func newTable(rows, cols int, steps StepSet, subsequence bool) *Table {
	n := rows * cols
	t := &Table{
		rows:        rows,
		cols:        cols,
		subsequence: subsequence,
		steps:       steps,
		cost:        make([]float64, n),
		state:       make([]CellState, n),
		back:        make([]int16, n),
	}
	inf := math.Inf(1)
	for i := range t.cost {
		t.cost[i] = inf
		t.back[i] = noStep
	}
	return t
}

// Dims returns the lattice size.
func (t *Table) Dims() (rows, cols int) {
	return t.rows, t.cols
}

// Subsequence reports whether the table was swept in subsequence mode.
func (t *Table) Subsequence() bool {
	return t.subsequence
}

// Cost returns the accumulated cost at (r, c); +Inf when unreachable.
func (t *Table) Cost(r, c int) float64 {
	return t.cost[r*t.cols+c]
}

// State returns the state of (r, c).
func (t *Table) State(r, c int) CellState {
	return t.state[r*t.cols+c]
}

// StepAt returns the step that reached (r, c). ok is false for origins and
// unreachable cells.
func (t *Table) StepAt(r, c int) (Step, bool) {
	k := t.back[r*t.cols+c]
	if k == noStep {
		return Step{}, false
	}
	return t.steps.At(int(k)), true
}

// Reachable reports whether (r, c) is an origin or was reached.
func (t *Table) Reachable(r, c int) bool {
	s := t.state[r*t.cols+c]
	return s == Origin || s == Reached
}

// PathTo rebuilds the optimal path ending at (r, c), origin first.
func (t *Table) PathTo(r, c int) (Path, bool) {
	if r < 0 || r >= t.rows || c < 0 || c >= t.cols || !t.Reachable(r, c) {
		return nil, false
	}
	return t.appendPath(nil, r, c), true
}

// appendPath walks backpointers from (r, c) into buf and returns it in
// forward order. (r, c) must be reachable.
func (t *Table) appendPath(buf Path, r, c int) Path {
	start := len(buf)
	for {
		buf = append(buf, Point{Row: r, Col: c})
		k := t.back[r*t.cols+c]
		if k == noStep {
			break
		}
		st := t.steps.steps[k]
		r -= st.Rows
		c -= st.Cols
	}
	reversePath(buf[start:])
	return buf
}

// CostMatrix returns the accumulated costs as a dense matrix.
func (t *Table) CostMatrix() *mat.Dense {
	data := make([]float64, len(t.cost))
	copy(data, t.cost)
	return mat.NewDense(t.rows, t.cols, data)
}

// Result is the optimal alignment read off a Table.
type Result struct {
	Path   Path    `json:"path"`
	Cost   float64 `json:"cost"`
	EndCol int     `json:"end_col"`
	Found  bool    `json:"found"`
}

// Err returns ErrNoAlignment when no path was found.
func (r Result) Err() error {
	if !r.Found {
		return ErrNoAlignment
	}
	return nil
}

// Best returns the optimal path. Without subsequence the path ends at the
// bottom-right cell; with it, the path ends at the lowest-cost cell of the
// last row, the leftmost one on ties. When nothing is reachable the result
// has Found false, Cost +Inf and EndCol -1.
func (t *Table) Best() Result {
	last := t.rows - 1
	end := -1
	if t.subsequence {
		best := math.Inf(1)
		for c := 0; c < t.cols; c++ {
			if t.Reachable(last, c) && t.Cost(last, c) < best {
				best = t.Cost(last, c)
				end = c
			}
		}
	} else if t.Reachable(last, t.cols-1) {
		end = t.cols - 1
	}

	if end < 0 {
		return Result{Cost: math.Inf(1), EndCol: -1}
	}
	path, _ := t.PathTo(last, end)
	return Result{
		Path:   path,
		Cost:   t.Cost(last, end),
		EndCol: end,
		Found:  true,
	}
}

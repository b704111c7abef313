package alignment

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-align/algorithms/common"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyInput is returned for zero-sized lattices and nil models.
	ErrEmptyInput = errors.New("alignment: empty input")

	// ErrNonSquare is returned when a self-similarity matrix is not square.
	ErrNonSquare = errors.New("alignment: self-similarity matrix is not square")

	// ErrNonFinite is returned when an input matrix holds NaN or Inf.
	ErrNonFinite = errors.New("alignment: matrix contains non-finite values")
)

// CostModel supplies the marginal cost of entering a lattice cell.
//
// history is the path from its origin up to and including the predecessor
// cell. It is only populated when UsesHistory reports true and is only valid
// for the duration of the call.
type CostModel interface {
	Size() (rows, cols int)
	UsesHistory() bool
	StepCost(history Path, r, c int) float64
}

// LocalCost is classic DTW: the cost of a cell is a fixed matrix entry.
type LocalCost struct {
	rows, cols int
	data       []float64
}

// NewLocalCost snapshots m as a local cost model.
func NewLocalCost(m mat.Matrix) (*LocalCost, error) {
	if m == nil {
		return nil, ErrEmptyInput
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, ErrEmptyInput
	}
	if !common.AllFinite(m) {
		return nil, ErrNonFinite
	}
	return &LocalCost{rows: r, cols: c, data: flatten(m)}, nil
}

func (l *LocalCost) Size() (rows, cols int) { return l.rows, l.cols }

func (l *LocalCost) UsesHistory() bool { return false }

func (l *LocalCost) StepCost(_ Path, r, c int) float64 {
	return l.data[r*l.cols+c]
}

// PathCost is the sum of the local costs along p, without step weights.
func (l *LocalCost) PathCost(p Path) float64 {
	var sum float64
	for _, pt := range p {
		sum += l.data[pt.Row*l.cols+pt.Col]
	}
	return sum
}

// SelfSimilarityCost aligns two self-similarity matrices. Rows of the
// lattice index SS1, columns index SS2.
//
// Entering (r, c) after history h costs the growth of
// Σ_{k,l} (SS1[r_k, r_l] - SS2[c_k, c_l])² when (r, c) is appended to h, so
// the accumulated cost of a path is exactly that sum over the path.
type SelfSimilarityCost struct {
	n1, n2   int
	ss1, ss2 []float64
}

// NewSelfSimilarityCost snapshots ss1 and ss2. Both must be square, non-empty
// and finite; they need not be symmetric.
func NewSelfSimilarityCost(ss1, ss2 mat.Matrix) (*SelfSimilarityCost, error) {
	n1, err := squareSize(ss1, "SS1")
	if err != nil {
		return nil, err
	}
	n2, err := squareSize(ss2, "SS2")
	if err != nil {
		return nil, err
	}
	return &SelfSimilarityCost{n1: n1, n2: n2, ss1: flatten(ss1), ss2: flatten(ss2)}, nil
}

func squareSize(m mat.Matrix, name string) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: %s is nil", ErrEmptyInput, name)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0, fmt.Errorf("%w: %s is %dx%d", ErrEmptyInput, name, r, c)
	}
	if r != c {
		return 0, fmt.Errorf("%w: %s is %dx%d", ErrNonSquare, name, r, c)
	}
	if !common.AllFinite(m) {
		return 0, fmt.Errorf("%w: %s", ErrNonFinite, name)
	}
	return r, nil
}

func (s *SelfSimilarityCost) Size() (rows, cols int) { return s.n1, s.n2 }

func (s *SelfSimilarityCost) UsesHistory() bool { return true }

func (s *SelfSimilarityCost) StepCost(history Path, r, c int) float64 {
	row1 := s.ss1[r*s.n1 : (r+1)*s.n1]
	row2 := s.ss2[c*s.n2 : (c+1)*s.n2]

	d := row1[r] - row2[c]
	cost := d * d
	for _, p := range history {
		d = row1[p.Row] - row2[p.Col]
		cost += d * d
		d = s.ss1[p.Row*s.n1+r] - s.ss2[p.Col*s.n2+c]
		cost += d * d
	}
	return cost
}

// FullCost evaluates Σ_{k,l} (SS1[r_k, r_l] - SS2[c_k, c_l])² over every
// ordered pair of points on p.
func (s *SelfSimilarityCost) FullCost(p Path) float64 {
	var sum float64
	for _, a := range p {
		for _, b := range p {
			d := s.ss1[a.Row*s.n1+b.Row] - s.ss2[a.Col*s.n2+b.Col]
			sum += d * d
		}
	}
	return sum
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = m.At(i, j)
		}
	}
	return out
}

package alignment

// Point is one lattice cell on a warping path.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Path is an ordered warping path, start first.
type Path []Point

// Rows returns the row index of every point.
func (p Path) Rows() []int {
	out := make([]int, len(p))
	for i, pt := range p {
		out[i] = pt.Row
	}
	return out
}

// Cols returns the column index of every point.
func (p Path) Cols() []int {
	out := make([]int, len(p))
	for i, pt := range p {
		out[i] = pt.Col
	}
	return out
}

// Times converts the path to seconds on both axes, given each axis' frame
// rate in frames per second.
func (p Path) Times(rowFPS, colFPS float64) (rowTimes, colTimes []float64) {
	rowTimes = make([]float64, len(p))
	colTimes = make([]float64, len(p))
	for i, pt := range p {
		rowTimes[i] = float64(pt.Row) / rowFPS
		colTimes[i] = float64(pt.Col) / colFPS
	}
	return rowTimes, colTimes
}

// Monotonic reports whether both coordinates never decrease and every
// consecutive pair of points is distinct.
func (p Path) Monotonic() bool {
	for i := 1; i < len(p); i++ {
		dr := p[i].Row - p[i-1].Row
		dc := p[i].Col - p[i-1].Col
		if dr < 0 || dc < 0 || (dr == 0 && dc == 0) {
			return false
		}
	}
	return true
}

// Remap translates compacted indices back to original frame numbers using
// the keep-lists returned when silent frames were dropped. A nil list leaves
// that axis unchanged.
func (p Path) Remap(rowFrames, colFrames []int) Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[i] = pt
		if rowFrames != nil {
			out[i].Row = rowFrames[pt.Row]
		}
		if colFrames != nil {
			out[i].Col = colFrames[pt.Col]
		}
	}
	return out
}

func reversePath(p Path) {
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
}

package alignment

import "math"

// QualityMetrics summarizes the shape of an alignment path.
type QualityMetrics struct {
	PathEfficiency float64 `json:"path_efficiency"` // max(rows, cols) / path length
	DiagonalRatio  float64 `json:"diagonal_ratio"`  // moves advancing both axes / total moves
	RowCoverage    float64 `json:"row_coverage"`    // rows spanned / rows
	ColCoverage    float64 `json:"col_coverage"`    // cols spanned / cols
	AverageCost    float64 `json:"average_cost"`    // accumulated cost / path length
}

// Quality computes QualityMetrics for res on a rows x cols lattice. A result
// with no path yields the zero value.
func Quality(res Result, rows, cols int) QualityMetrics {
	if !res.Found || len(res.Path) == 0 || rows <= 0 || cols <= 0 {
		return QualityMetrics{}
	}

	p := res.Path
	n := float64(len(p))
	q := QualityMetrics{
		PathEfficiency: math.Max(float64(rows), float64(cols)) / n,
		RowCoverage:    float64(p[len(p)-1].Row-p[0].Row+1) / float64(rows),
		ColCoverage:    float64(p[len(p)-1].Col-p[0].Col+1) / float64(cols),
		AverageCost:    res.Cost / n,
	}

	if len(p) > 1 {
		diagonal := 0
		for i := 1; i < len(p); i++ {
			if p[i].Row > p[i-1].Row && p[i].Col > p[i-1].Col {
				diagonal++
			}
		}
		q.DiagonalRatio = float64(diagonal) / float64(len(p)-1)
	}
	return q
}

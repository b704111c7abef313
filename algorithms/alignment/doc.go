// Package alignment implements a generalized, weighted Dynamic Time Warping
// engine over an R x C lattice.
//
// Legal moves are given by a StepSet of (rows, cols, weight) triples. The
// cost of entering a cell comes from a CostModel: either a plain local cost
// matrix (classic DTW) or SelfSimilarityCost, whose marginal cost depends on
// the whole path taken so far.
//
// The sweep is row-major and single-threaded. Each cell stores its
// accumulated cost, a tagged state and the index of the step that reached
// it; full paths are rebuilt from those backpointers on demand.
//
// Usage:
//
//	steps, _ := alignment.NewStepSet(
//		alignment.Step{Rows: 1, Cols: 1, Weight: 1},
//		alignment.Step{Rows: 1, Cols: 2, Weight: 1},
//		alignment.Step{Rows: 2, Cols: 1, Weight: 1},
//	)
//	engine := alignment.NewEngine(steps, alignment.Options{})
//	table, err := engine.AlignSelfSimilarity(ctx, ss1, ss2)
//	res := table.Best()
//	if !res.Found {
//		// no monotonic path reaches the terminal cell
//	}
//
// Complexity: O(R·C·|steps|) cost evaluations; SelfSimilarityCost adds a
// factor of the path length per evaluation. Memory is O(R·C).
package alignment

package alignment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-align/logging"
	"gonum.org/v1/gonum/mat"
)

// Options controls a sweep.
type Options struct {
	// Subsequence lets the path start at any column of row 0 and end at
	// any column of the last row.
	Subsequence bool `json:"subsequence"`

	// Logger receives debug progress; nil falls back to the global logger.
	Logger logging.Logger `json:"-"`
}

// Engine runs weighted DTW sweeps with a fixed step set.
type Engine struct {
	steps  StepSet
	opts   Options
	logger logging.Logger
}

// NewEngine creates an engine. A zero StepSet is replaced by DefaultSteps.
func NewEngine(steps StepSet, opts Options) *Engine {
	if steps.Len() == 0 {
		steps = DefaultSteps()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Engine{
		steps: steps,
		opts:  opts,
		logger: logger.WithFields(logging.Fields{
			"component":   "alignment_engine",
			"steps":       steps.Len(),
			"subsequence": opts.Subsequence,
		}),
	}
}

// Steps returns the engine's step set.
func (e *Engine) Steps() StepSet {
	return e.steps
}

// AlignCost runs classic DTW over a local cost matrix.
func (e *Engine) AlignCost(ctx context.Context, cost mat.Matrix) (*Table, error) {
	model, err := NewLocalCost(cost)
	if err != nil {
		return nil, err
	}
	return e.Align(ctx, model)
}

// AlignSelfSimilarity aligns two self-similarity matrices.
func (e *Engine) AlignSelfSimilarity(ctx context.Context, ss1, ss2 mat.Matrix) (*Table, error) {
	model, err := NewSelfSimilarityCost(ss1, ss2)
	if err != nil {
		return nil, err
	}
	return e.Align(ctx, model)
}

// Align sweeps the lattice of model in row-major order. The context is
// checked once per row.
//
// Every cell ends up Origin, Reached or Unreachable. A reached cell holds
// min over legal steps of cost(pred) + weight·StepCost(path(pred), r, c);
// the earliest step in the set wins ties.
func (e *Engine) Align(ctx context.Context, model CostModel) (*Table, error) {
	if model == nil {
		return nil, ErrEmptyInput
	}
	rows, cols := model.Size()
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: lattice is %dx%d", ErrEmptyInput, rows, cols)
	}

	start := time.Now()
	t := newTable(rows, cols, e.steps, e.opts.Subsequence)
	history := model.UsesHistory()

	e.logger.Debug("Starting alignment sweep", logging.Fields{
		"rows":         rows,
		"cols":         cols,
		"uses_history": history,
	})

	if e.opts.Subsequence {
		for c := 0; c < cols; c++ {
			t.state[c] = Origin
			t.cost[c] = model.StepCost(nil, 0, c)
		}
	} else {
		t.state[0] = Origin
		t.cost[0] = 0
	}

	var scratch Path
	reached := 0
	for r := 0; r < rows; r++ {
		if err := ctx.Err(); err != nil {
			e.logger.Debug("Alignment sweep cancelled", logging.Fields{"row": r})
			return nil, err
		}

		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if t.state[idx] == Origin {
				continue
			}

			best := math.Inf(1)
			bestStep := noStep
			for k, st := range e.steps.steps {
				pr, pc := r-st.Rows, c-st.Cols
				if pr < 0 || pc < 0 || !t.Reachable(pr, pc) {
					continue
				}
				if history {
					scratch = t.appendPath(scratch[:0], pr, pc)
				}
				cand := t.cost[pr*cols+pc] + st.Weight*model.StepCost(scratch, r, c)
				if cand < best {
					best = cand
					bestStep = int16(k)
				}
			}

			if bestStep == noStep {
				t.state[idx] = Unreachable
				continue
			}
			t.state[idx] = Reached
			t.cost[idx] = best
			t.back[idx] = bestStep
			reached++
		}
	}

	e.logger.Debug("Alignment sweep complete", logging.Fields{
		"reached":     reached,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return t, nil
}

// Align runs a single sweep of model with steps. Unlike NewEngine, an empty
// step set is an error.
func Align(ctx context.Context, model CostModel, steps StepSet, opts Options) (*Table, error) {
	if steps.Len() == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidStepSet)
	}
	return NewEngine(steps, opts).Align(ctx, model)
}

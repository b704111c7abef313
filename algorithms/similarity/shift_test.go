package similarity_test

import (
	"math/rand"
	"testing"

	"github.com/RyanBlaney/sonido-align/algorithms/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftOrder(t *testing.T) {
	assert.Equal(t, []int{0}, similarity.ShiftOrder(0))
	assert.Equal(t, []int{0, 1, -1, 2, -2}, similarity.ShiftOrder(2))
}

func TestBestPitchShift_FindsTransposition(t *testing.T) {
	a := onsets(t, [][]int{
		{0, 0},
		{1, 0},
		{0, 1},
		{0, 0},
	})
	// a moved up one row
	b := onsets(t, [][]int{
		{0, 0},
		{0, 0},
		{1, 0},
		{0, 1},
	})

	res, err := similarity.BestPitchShift(a, b, 2, natural(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Shift)
	assert.InDelta(t, 0.5, res.Score, 1e-12)
	assertMatrix(t, [][]float64{{1, 0}, {0, 1}}, res.Matrix)

	require.Len(t, res.Tried, 5)
	want := []similarity.ShiftScore{
		{Shift: 0, Score: 0.25},
		{Shift: 1, Score: 0.5},
		{Shift: -1, Score: 0},
		{Shift: 2, Score: 0.25},
		{Shift: -2, Score: 0},
	}
	for i, w := range want {
		assert.Equal(t, w.Shift, res.Tried[i].Shift)
		assert.InDelta(t, w.Score, res.Tried[i].Score, 1e-12, "shift %d", w.Shift)
	}
}

func TestBestPitchShift_TiesPreferUpwardSmallestShift(t *testing.T) {
	a := onsets(t, [][]int{{0}, {1}, {0}})
	b := onsets(t, [][]int{{1}, {0}, {1}})

	res, err := similarity.BestPitchShift(a, b, 1, natural(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Shift, "+1 and -1 tie, +1 is visited first")
	assert.InDelta(t, 1.0, res.Score, 1e-12)

	silent := onsets(t, [][]int{{0, 0}, {0, 0}, {0, 0}})
	res, err = similarity.BestPitchShift(silent, silent, 2, natural(1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Shift, "all candidates equal, keep the unshifted one")
}

func TestBestPitchShift_OrientationDoesNotChangeChoice(t *testing.T) {
	a := onsets(t, [][]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0}})
	b := onsets(t, [][]int{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}})

	nat, err := similarity.BestPitchShift(a, b, 1, natural(1))
	require.NoError(t, err)
	flipped, err := similarity.BestPitchShift(a, b, 1, similarity.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, nat.Shift, flipped.Shift)
	assert.InDelta(t, nat.Score, flipped.Score, 1e-12)
}

func TestBestPitchShift_InvalidRange(t *testing.T) {
	a := onsets(t, [][]int{{1}, {0}})
	_, err := similarity.BestPitchShift(a, a, 2, natural(1))
	assert.ErrorIs(t, err, similarity.ErrInvalidShift)

	_, err = similarity.BestPitchShift(a, a, -1, natural(1))
	assert.ErrorIs(t, err, similarity.ErrInvalidShift)
}

func TestBuildShifted(t *testing.T) {
	a := onsets(t, [][]int{{0, 0}, {1, 0}, {0, 1}, {0, 0}})
	b := onsets(t, [][]int{{0, 0}, {0, 0}, {1, 0}, {0, 1}})

	res, err := similarity.BuildShifted(a, b, 1, natural(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Shift)
	assert.InDelta(t, 0.5, res.Score, 1e-12)

	_, err = similarity.BuildShifted(a, b, 4, natural(1))
	assert.ErrorIs(t, err, similarity.ErrInvalidShift)
}

func TestEstimateShift(t *testing.T) {
	a := onsets(t, [][]int{{0, 0}, {1, 0}, {0, 1}, {0, 0}})
	b := onsets(t, [][]int{{0, 0}, {0, 0}, {1, 0}, {0, 1}})

	s, err := similarity.EstimateShift(a, b, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, s)

	_, err = similarity.EstimateShift(a, b, 4)
	assert.ErrorIs(t, err, similarity.ErrInvalidShift)
}

func TestProfileCorrelation_MatchesDirectSum(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const n = 24
	pa := make([]float64, n)
	pb := make([]float64, n)
	for i := 0; i < n; i++ {
		pa[i] = float64(rng.Intn(10))
		pb[i] = float64(rng.Intn(10))
	}

	corr, err := similarity.ProfileCorrelation(pa, pb, 6)
	require.NoError(t, err)
	require.Len(t, corr, 13)

	for _, s := range similarity.ShiftOrder(6) {
		direct := 0.0
		for p := 0; p < n; p++ {
			if q := p + s; q >= 0 && q < n {
				direct += pa[p] * pb[q]
			}
		}
		assert.InDelta(t, direct, corr[s], 1e-9, "shift %d", s)
	}

	_, err = similarity.ProfileCorrelation(pa, pb[:3], 1)
	assert.ErrorIs(t, err, similarity.ErrDimensionMismatch)
}

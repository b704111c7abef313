package similarity

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-align/algorithms/common"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"github.com/mjibson/go-dsp/fft"
)

// PitchProfile counts, for every pitch row, the frames in which it is active.
func PitchProfile(m *pianoroll.OnsetMatrix) []float64 {
	pitches, _ := m.Dims()
	profile := make([]float64, pitches)
	for p := range profile {
		profile[p] = float64(m.PitchCount(p))
	}
	return profile
}

// ProfileCorrelation returns corr[s] = Σ_p profA[p]·profB[p+s] for every s in
// ShiftOrder(maxShift), computed with a zero-padded FFT.
func ProfileCorrelation(profA, profB []float64, maxShift int) (map[int]float64, error) {
	if len(profA) == 0 || len(profA) != len(profB) {
		return nil, fmt.Errorf("%w: profiles of length %d and %d", ErrDimensionMismatch, len(profA), len(profB))
	}
	if maxShift < 0 || maxShift >= len(profA) {
		return nil, fmt.Errorf("%w: max shift %d for %d pitches", ErrInvalidShift, maxShift, len(profA))
	}

	// padding to >= 2n keeps the circular correlation free of wrap-around
	n := common.NextPowerOfTwo(2 * len(profA))
	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, profA)
	copy(pb, profB)

	fa := fft.FFTReal(pa)
	fb := fft.FFTReal(pb)
	prod := make([]complex128, n)
	for k := range prod {
		prod[k] = cmplx.Conj(fa[k]) * fb[k]
	}
	circ := fft.IFFT(prod)

	corr := make(map[int]float64, 2*maxShift+1)
	for _, s := range ShiftOrder(maxShift) {
		idx := s
		if idx < 0 {
			idx += n
		}
		corr[s] = real(circ[idx])
	}
	return corr, nil
}

// EstimateShift picks the pitch shift of b that best lines up the pitch
// profiles of a and b. It is a one-build alternative to BestPitchShift and
// uses the same candidate order and tie rule.
func EstimateShift(a, b *pianoroll.OnsetMatrix, maxShift int) (int, error) {
	if a == nil || b == nil {
		return 0, ErrEmptyMatrix
	}
	corr, err := ProfileCorrelation(PitchProfile(a), PitchProfile(b), maxShift)
	if err != nil {
		return 0, err
	}

	best, bestScore := 0, corr[0]
	for _, s := range ShiftOrder(maxShift)[1:] {
		score := corr[s]
		// FFT round-off must not break ties between equal integer scores
		if score > bestScore+1e-9*math.Max(1, math.Abs(bestScore)) {
			best, bestScore = s, score
		}
	}
	return best, nil
}

package pipeline_test

import (
	"context"
	"testing"

	"github.com/RyanBlaney/sonido-align/config"
	"github.com/RyanBlaney/sonido-align/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBestMatches(t *testing.T) {
	cfg := config.ConfigForMode(config.ModeCrossSimilarity)
	cfg.Similarity.ShiftSearch = config.ShiftNone
	cfg.Alignment.Subsequence = true
	a := newAligner(t, cfg)

	query := pipeline.Piece{ID: "hook", Events: melody(65, 67, 69)}
	candidates := []pipeline.Piece{
		{ID: "unrelated", Events: melody(40, 42, 44, 45, 47)},
		{ID: "song", Events: melody(60, 62, 64, 65, 67, 69, 71, 72)},
		{ID: "hook", Events: melody(65, 67, 69)},
		{ID: "broken", Events: melody(300)},
	}

	matches, err := a.FindBestMatches(context.Background(), query, candidates, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "song", matches[0].ID)
	assert.Equal(t, 1, matches[0].Rank)
	assert.InDelta(t, 0, matches[0].Score, 1e-12)
	assert.Equal(t, "unrelated", matches[1].ID)
	assert.Equal(t, 2, matches[1].Rank)
	assert.Greater(t, matches[1].Score, matches[0].Score)

	top, err := a.FindBestMatches(context.Background(), query, candidates, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "song", top[0].ID)

	_, err = a.FindBestMatches(context.Background(), pipeline.Piece{ID: "empty"}, candidates, 0)
	assert.ErrorIs(t, err, pipeline.ErrNilInput)
}

package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/RyanBlaney/sonido-align/logging"
	"github.com/RyanBlaney/sonido-align/pianoroll"
)

// Piece is a named note-event list.
type Piece struct {
	ID     string                `json:"id"`
	Events []pianoroll.NoteEvent `json:"-"`
}

// Match is one candidate that the query aligned against.
type Match struct {
	ID     string  `json:"id"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"` // average cost per path point, lower is better
	Result *Result `json:"result"`
}

// FindBestMatches aligns query against every candidate and ranks those with
// an alignment by average path cost. Candidates that fail to align are
// logged and skipped. maxResults <= 0 keeps every match.
func (a *Aligner) FindBestMatches(ctx context.Context, query Piece, candidates []Piece, maxResults int) ([]*Match, error) {
	if query.Events == nil {
		return nil, fmt.Errorf("query %q: %w", query.ID, ErrNilInput)
	}

	logger := a.logger.WithFields(logging.Fields{
		"function":   "FindBestMatches",
		"query_id":   query.ID,
		"candidates": len(candidates),
	})
	logger.Debug("Finding best matches")

	var matches []*Match
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if candidate.ID == query.ID {
			continue
		}

		res, err := a.AlignEvents(ctx, query.Events, candidate.Events)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Failed to align with candidate", logging.Fields{
				"candidate_id": candidate.ID,
				"error":        err.Error(),
			})
			continue
		}
		if !res.Found {
			continue
		}
		matches = append(matches, &Match{
			ID:     candidate.ID,
			Score:  res.Quality.AverageCost,
			Result: res,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	for i, m := range matches {
		m.Rank = i + 1
	}

	logger.Debug("Best matches found", logging.Fields{"total_matches": len(matches)})
	return matches, nil
}

package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// buildRerankPairs extracts the passage text for cross-encoder scoring.
// Body text is preferred, title is the fallback, and a candidate with
// neither still gets an empty string rather than an error.
func buildRerankPairs(candidates []domain.Candidate) []string {
	passages := make([]string, len(candidates))
	for i, c := range candidates {
		switch {
		case c.Payload.Text != "":
			passages[i] = c.Payload.Text
		case c.Payload.Title != "":
			passages[i] = c.Payload.Title
		default:
			passages[i] = ""
		}
	}
	return passages
}

// applyRerankScores attaches model scores to candidates, normalizes them
// to [0,1] and fully re-sorts by the new score. The re-sort is
// authoritative over fusion order. Stable sort keeps the boosted order on
// equal scores.
func applyRerankScores(candidates []domain.Candidate, scores []float64, topN int) ([]domain.Candidate, error) {
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank: got %d scores for %d candidates", len(scores), len(candidates))
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	span := maxScore - minScore
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		if span <= 0 {
			out[i].RerankScore = 1
			continue
		}
		out[i].RerankScore = (scores[i] - minScore) / span
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	return trimCandidates(out, topN), nil
}

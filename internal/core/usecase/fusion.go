package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// fuseCandidatesRRF merges the dense and sparse hit lists with weighted
// Reciprocal Rank Fusion. Each list contributes weight/(k+rank) per item,
// rank starting at 1 in list order; contributions for the same point id
// are summed. The dense list is folded in first, so on id collisions the
// dense payload wins while scores still accumulate from both channels.
func fuseCandidatesRRF(dense, sparse []domain.Candidate, rrfK int, denseWeight, sparseWeight float64) []domain.Candidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	order := make([]string, 0, len(dense)+len(sparse))
	byID := make(map[string]*domain.Candidate, len(dense)+len(sparse))

	addList := func(hits []domain.Candidate, weight float64) {
		for rank, hit := range hits {
			contribution := weight * (1.0 / float64(rrfK+rank+1))
			if existing, ok := byID[hit.ID]; ok {
				existing.RRFScore += contribution
				continue
			}
			fused := hit
			fused.RRFScore = contribution
			byID[hit.ID] = &fused
			order = append(order, hit.ID)
		}
	}

	addList(dense, denseWeight)
	addList(sparse, sparseWeight)

	out := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	// Stable sort keeps first-seen order on equal scores.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RRFScore > out[j].RRFScore
	})
	return out
}

// applyMetadataBoosts multiplies each candidate's fused score by the
// boost factor configured for its page type, then re-sorts. Boosting is
// deliberately a second pass over the finished fusion so that fusion
// fairness does not depend on the boost configuration.
func applyMetadataBoosts(fused []domain.Candidate, boosts map[string]float64) []domain.Candidate {
	for i := range fused {
		fused[i].BoostedScore = fused[i].RRFScore
		if len(boosts) == 0 {
			continue
		}
		pageType := strings.ToLower(fused[i].Payload.PageType)
		if pageType == "" {
			continue
		}
		if factor, ok := boosts[pageType]; ok {
			fused[i].BoostedScore = fused[i].RRFScore * factor
		}
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].BoostedScore > fused[j].BoostedScore
	})
	return fused
}

func trimCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

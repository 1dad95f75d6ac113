// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"sort"

	"github.com/danielhkuo/roompick/models"
)

// Aggregate sums vote scores per candidate and ranks them.
// Votes for candidates not in the list are ignored. Equal totals keep the
// candidate list's order. Aggregate does not modify its inputs.
func Aggregate(candidates []models.Candidate, votes []models.Vote) models.RankedResult {
	ranked := make(models.RankedResult, len(candidates))
	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		ranked[i] = models.CandidateResult{
			CandidateID: c.ID,
			Title:       c.Title,
			Votes:       []models.VoteDetail{},
		}
		index[c.ID] = i
	}

	for _, v := range votes {
		i, ok := index[v.CandidateID]
		if !ok {
			continue
		}
		ranked[i].TotalScore += v.Score
		ranked[i].Votes = append(ranked[i].Votes, models.VoteDetail{
			UserID: v.UserID,
			Score:  v.Score,
		})
	}

	// Stable: ties rank by original candidate order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1 // 1-indexed ranking
	}

	return ranked
}

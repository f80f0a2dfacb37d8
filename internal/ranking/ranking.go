// Package ranking orders candidate results for presentation: prefer
// destinations that are both similar in character and currently less
// saturated.
package ranking

import (
	"sort"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

// Dedupe drops repeated zone identifiers, keeping the first occurrence of
// each (the closest one, given neighbor lists arrive in distance order).
func Dedupe(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c.Zone]; ok {
			continue
		}
		seen[c.Zone] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Sort orders candidates by descending similarity score, then ascending
// mean occupancy. Candidates whose occupancy is entirely unknown sort after
// every candidate with a defined mean at the same similarity. The sort is
// stable, so ties preserve the distance order produced by the index. No
// candidate is added or removed.
func Sort(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		mi, oki := candidates[i].MeanOccupancy()
		mj, okj := candidates[j].MeanOccupancy()
		switch {
		case oki && okj:
			return mi < mj
		case oki:
			return true // defined mean before undefined
		default:
			return false
		}
	})
}

// Rank is the full presentation ordering: dedupe then sort.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	out := Dedupe(candidates)
	Sort(out)
	return out
}

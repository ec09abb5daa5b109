// Package rank provides top-K selection over predicted scores and the
// ranking metrics used to evaluate recommendation quality.
package rank

import "sort"

// TopK returns the indices of the k highest scores in descending score
// order. Ties break toward the lower index, so results are deterministic.
// Indices for which exclude returns true are never returned; exclude may be
// nil.
func TopK(scores []float64, k int, exclude func(i int) bool) []int {
	candidates := make([]int, 0, len(scores))
	for i := range scores {
		if exclude != nil && exclude(i) {
			continue
		}
		candidates = append(candidates, i)
	}

	sort.Slice(candidates, func(a, b int) bool {
		if scores[candidates[a]] != scores[candidates[b]] {
			return scores[candidates[a]] > scores[candidates[b]]
		}
		return candidates[a] < candidates[b]
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}

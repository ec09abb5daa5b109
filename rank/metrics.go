package rank

// PrecisionAtK is the fraction of the first k predicted items that are
// relevant. With fewer than k predictions the denominator is still k.
func PrecisionAtK(predicted []int, relevant map[int]bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	if len(predicted) > k {
		predicted = predicted[:k]
	}
	hits := 0
	for _, p := range predicted {
		if relevant[p] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// AveragePrecisionAtK is the rank-weighted precision of the first k
// predictions against the relevant set, normalized by min(|relevant|, k).
func AveragePrecisionAtK(predicted []int, relevant map[int]bool, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	if len(predicted) > k {
		predicted = predicted[:k]
	}

	hits := 0
	sum := 0.0
	for rank, p := range predicted {
		if relevant[p] {
			hits++
			sum += float64(hits) / float64(rank+1)
		}
	}

	denom := len(relevant)
	if k < denom {
		denom = k
	}
	return sum / float64(denom)
}

// MeanAveragePrecisionAtK averages AveragePrecisionAtK over subjects. Subjects
// with an empty relevant set are skipped, matching the usual competition
// scoring.
func MeanAveragePrecisionAtK(predicted [][]int, relevant []map[int]bool, k int) float64 {
	if len(predicted) != len(relevant) {
		return 0
	}
	sum := 0.0
	counted := 0
	for i := range predicted {
		if len(relevant[i]) == 0 {
			continue
		}
		sum += AveragePrecisionAtK(predicted[i], relevant[i], k)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

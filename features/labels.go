package features

import "recommender/models"

// AdditionLabels returns, per product, whether the customer acquired it this
// month: max(curr - prev, 0). A drop never produces a label, so every value
// is 0 or 1.
func AdditionLabels(curr, prev models.ProductVector) models.ProductVector {
	var labels models.ProductVector
	for i := range curr {
		if curr[i] == 1 && prev[i] == 0 {
			labels[i] = 1
		}
	}
	return labels
}

// Added lists the product indices a customer acquired between prev and curr.
func Added(curr, prev models.ProductVector) []int {
	var added []int
	for i := range curr {
		if curr[i] == 1 && prev[i] == 0 {
			added = append(added, i)
		}
	}
	return added
}

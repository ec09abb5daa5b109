package boost

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree fit to the boosting gradients.
// Internal nodes route on feature < threshold; leaves carry the Newton step
// value sum(grad) / (sum(hess) + eps).
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

type treeParams struct {
	maxDepth        int
	minLeaf         int
	featureFraction float64
	rng             *rand.Rand
}

const hessEps = 1e-12

// fitTree grows a depth-limited regression tree over the samples in idx.
func fitTree(X [][]float64, grad, hess []float64, idx []int, depth int, p treeParams) *treeNode {
	sumG, sumH := sums(grad, hess, idx)

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf {
		return leafNode(sumG, sumH)
	}

	feature, threshold, gain := bestSplit(X, grad, hess, idx, sumG, sumH, p)
	if gain <= 0 {
		return leafNode(sumG, sumH)
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][feature] < threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < p.minLeaf || len(rightIdx) < p.minLeaf {
		return leafNode(sumG, sumH)
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      fitTree(X, grad, hess, leftIdx, depth+1, p),
		right:     fitTree(X, grad, hess, rightIdx, depth+1, p),
	}
}

func leafNode(sumG, sumH float64) *treeNode {
	return &treeNode{leaf: true, value: sumG / (sumH + hessEps)}
}

func sums(grad, hess []float64, idx []int) (float64, float64) {
	var g, h float64
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	return g, h
}

// bestSplit scans every candidate feature with an exact greedy search over
// sorted sample values, scoring splits with the second-order gain
// GL^2/HL + GR^2/HR - G^2/H.
func bestSplit(X [][]float64, grad, hess []float64, idx []int, sumG, sumH float64, p treeParams) (int, float64, float64) {
	nFeatures := len(X[idx[0]])
	parentScore := sumG * sumG / (sumH + hessEps)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	order := make([]int, len(idx))
	for f := 0; f < nFeatures; f++ {
		if p.featureFraction < 1 && p.rng.Float64() > p.featureFraction {
			continue
		}

		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftG, leftH float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftG += grad[i]
			leftH += hess[i]

			lo, hi := X[i][f], X[order[pos+1]][f]
			if lo == hi {
				continue
			}
			if pos+1 < p.minLeaf || len(order)-pos-1 < p.minLeaf {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			gain := leftG*leftG/(leftH+hessEps) + rightG*rightG/(rightH+hessEps) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (lo + hi) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

// predict routes x to a leaf and returns its value.
func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

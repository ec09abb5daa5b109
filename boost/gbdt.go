// Package boost implements binary gradient boosting over regression trees
// with logistic loss: an additive ensemble where each stage fits the negative
// gradient of the log-loss of the ensemble so far, damped by a learning rate.
package boost

import (
	"fmt"
	"math"
	"math/rand"
)

// Params are the classifier hyperparameters.
type Params struct {
	Rounds          int
	MaxDepth        int
	MinLeaf         int
	LearningRate    float64
	FeatureFraction float64
	Seed            int64
}

// Classifier is a gradient-boosted binary classifier.
type Classifier struct {
	params    Params
	baseScore float64
	trees     []*treeNode
}

// NewClassifier creates an unfit classifier with the given hyperparameters.
func NewClassifier(params Params) *Classifier {
	if params.FeatureFraction <= 0 || params.FeatureFraction > 1 {
		params.FeatureFraction = 1
	}
	if params.MinLeaf < 1 {
		params.MinLeaf = 1
	}
	return &Classifier{params: params}
}

// Fit trains the ensemble on X with binary labels y.
func (c *Classifier) Fit(X [][]float64, y []uint8) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("feature/label length mismatch: %d vs %d", len(X), len(y))
	}
	width := len(X[0])
	for i, x := range X {
		if len(x) != width {
			return fmt.Errorf("ragged feature row %d: %d vs %d", i, len(x), width)
		}
	}

	// Base score is the log-odds of the positive prior, clipped so a
	// single-class label vector stays finite.
	positives := 0
	for _, label := range y {
		if label == 1 {
			positives++
		}
	}
	prior := clamp(float64(positives)/float64(len(y)), 1e-6, 1-1e-6)
	c.baseScore = math.Log(prior / (1 - prior))
	c.trees = c.trees[:0]

	rng := rand.New(rand.NewSource(c.params.Seed))
	tp := treeParams{
		maxDepth:        c.params.MaxDepth,
		minLeaf:         c.params.MinLeaf,
		featureFraction: c.params.FeatureFraction,
		rng:             rng,
	}

	raw := make([]float64, len(X))
	for i := range raw {
		raw[i] = c.baseScore
	}
	grad := make([]float64, len(X))
	hess := make([]float64, len(X))
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	for round := 0; round < c.params.Rounds; round++ {
		for i := range X {
			p := sigmoid(raw[i])
			grad[i] = float64(y[i]) - p
			hess[i] = p * (1 - p)
		}

		tree := fitTree(X, grad, hess, idx, 0, tp)
		c.trees = append(c.trees, tree)
		for i := range X {
			raw[i] += c.params.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// PredictRaw returns the ensemble margin before the sigmoid.
func (c *Classifier) PredictRaw(x []float64) float64 {
	score := c.baseScore
	for _, tree := range c.trees {
		score += c.params.LearningRate * tree.predict(x)
	}
	return score
}

// PredictProb returns the predicted probability of the positive class.
func (c *Classifier) PredictProb(x []float64) float64 {
	return sigmoid(c.PredictRaw(x))
}

// Rounds returns the number of fitted boosting stages.
func (c *Classifier) Rounds() int {
	return len(c.trees)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

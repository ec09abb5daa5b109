// Package mf implements a biased matrix factorization rating model: two
// embedding tables whose dot product, plus user/item biases and the global
// mean, predicts a normalized rating. Training is plain SGD with an L2
// penalty on factors and biases.
package mf

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sample is one (user, item, rating) training triple with dense indices and
// a rating already normalized into [0, 1].
type Sample struct {
	User   int
	Item   int
	Rating float64
}

// Params are the model hyperparameters.
type Params struct {
	Factors      int
	Epochs       int
	LearningRate float64
	Penalty      float64
	Seed         int64
}

// Model holds the learned embeddings and biases.
type Model struct {
	factors     int
	userFactors *mat.Dense
	itemFactors *mat.Dense
	userBias    []float64
	itemBias    []float64
	globalMean  float64
}

// Train fits a model on the given samples. nUsers and nItems bound the dense
// index space of the samples.
func Train(params Params, samples []Sample, nUsers, nItems int) (*Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty training set")
	}
	if params.Factors < 1 {
		return nil, fmt.Errorf("factors must be at least 1, got %d", params.Factors)
	}
	if nUsers < 1 || nItems < 1 {
		return nil, fmt.Errorf("need at least one user and one item, have %d users and %d items", nUsers, nItems)
	}
	for _, s := range samples {
		if s.User < 0 || s.User >= nUsers || s.Item < 0 || s.Item >= nItems {
			return nil, fmt.Errorf("sample index out of range: user %d item %d", s.User, s.Item)
		}
	}

	var mean float64
	for _, s := range samples {
		mean += s.Rating
	}
	mean /= float64(len(samples))

	m := &Model{
		factors:     params.Factors,
		userFactors: mat.NewDense(nUsers, params.Factors, nil),
		itemFactors: mat.NewDense(nItems, params.Factors, nil),
		userBias:    make([]float64, nUsers),
		itemBias:    make([]float64, nItems),
		globalMean:  mean,
	}

	rng := rand.New(rand.NewSource(params.Seed))
	scale := 0.1 / math.Sqrt(float64(params.Factors))
	initDense(m.userFactors, rng, scale)
	initDense(m.itemFactors, rng, scale)

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	lr := params.LearningRate
	reg := params.Penalty
	for epoch := 0; epoch < params.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, si := range order {
			s := samples[si]
			pu := m.userFactors.RawRowView(s.User)
			qi := m.itemFactors.RawRowView(s.Item)

			pred := m.globalMean + m.userBias[s.User] + m.itemBias[s.Item] + floats.Dot(pu, qi)
			err := s.Rating - pred

			m.userBias[s.User] += lr * (err - reg*m.userBias[s.User])
			m.itemBias[s.Item] += lr * (err - reg*m.itemBias[s.Item])
			for f := 0; f < m.factors; f++ {
				puf := pu[f]
				pu[f] += lr * (err*qi[f] - reg*puf)
				qi[f] += lr * (err*puf - reg*qi[f])
			}
		}
	}
	return m, nil
}

func initDense(d *mat.Dense, rng *rand.Rand, scale float64) {
	rows, _ := d.Dims()
	for r := 0; r < rows; r++ {
		row := d.RawRowView(r)
		for c := range row {
			row[c] = rng.NormFloat64() * scale
		}
	}
}

// Predict returns the model score for a (user, item) pair, clamped into the
// normalized rating range.
func (m *Model) Predict(user, item int) float64 {
	pu := m.userFactors.RawRowView(user)
	qi := m.itemFactors.RawRowView(item)
	pred := m.globalMean + m.userBias[user] + m.itemBias[item] + floats.Dot(pu, qi)
	if pred < 0 {
		return 0
	}
	if pred > 1 {
		return 1
	}
	return pred
}

// Evaluate computes RMSE and MAE over the given samples.
func (m *Model) Evaluate(samples []Sample) (rmse, mae float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sq, abs float64
	for _, s := range samples {
		diff := s.Rating - m.Predict(s.User, s.Item)
		sq += diff * diff
		abs += math.Abs(diff)
	}
	n := float64(len(samples))
	return math.Sqrt(sq / n), abs / n
}

// Users returns the number of user embeddings in the model.
func (m *Model) Users() int {
	n, _ := m.userFactors.Dims()
	return n
}

// Items returns the number of item embeddings in the model.
func (m *Model) Items() int {
	n, _ := m.itemFactors.Dims()
	return n
}

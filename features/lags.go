package features

import (
	"fmt"

	"recommender/models"
)

// OwnershipIndex maps month -> customer id -> product ownership flags.
type OwnershipIndex map[string]map[int]models.ProductVector

// BuildOwnershipIndex indexes encoded rows for the per-month lag joins.
func BuildOwnershipIndex(rows []*models.CustomerMonth) OwnershipIndex {
	owners := make(OwnershipIndex)
	for _, row := range rows {
		byCustomer, ok := owners[row.Month]
		if !ok {
			byCustomer = make(map[int]models.ProductVector)
			owners[row.Month] = byCustomer
		}
		byCustomer[row.CustomerID] = row.Products
	}
	return owners
}

// LagNames returns the lag feature column names, lag 1 first.
func LagNames(lags int) []string {
	names := make([]string, 0, lags*models.NumProducts)
	for lag := 1; lag <= lags; lag++ {
		for _, code := range models.ProductCodes {
			names = append(names, fmt.Sprintf("%s_lag%d", code, lag))
		}
	}
	return names
}

// LagVector left-joins the ownership flags of the `lags` months preceding
// months[ref] for one customer. A month where the customer has no record
// contributes all zeros, as does a month before the start of the window.
func LagVector(owners OwnershipIndex, months []string, ref int, customerID int, lags int) []float64 {
	out := make([]float64, 0, lags*models.NumProducts)
	for lag := 1; lag <= lags; lag++ {
		idx := ref - lag
		if idx < 0 {
			out = append(out, make([]float64, models.NumProducts)...)
			continue
		}
		products := owners[months[idx]][customerID] // zero vector when absent
		for _, flag := range products {
			out = append(out, float64(flag))
		}
	}
	return out
}

// Set is an assembled design matrix with per-row label vectors.
type Set struct {
	FeatureNames []string
	X            [][]float64
	Labels       []models.ProductVector
	Customers    []int
}

// BuildTrainingSet assembles one training example per customer-month that has
// a preceding month in the window. The label for each product is the clipped
// ownership delta against the previous month.
func BuildTrainingSet(rows []*models.CustomerMonth, owners OwnershipIndex, months []string, lags int, featureNames []string) (*Set, error) {
	if len(months) < 2 {
		return nil, fmt.Errorf("need at least 2 months to build labels, have %d", len(months))
	}
	monthIdx := make(map[string]int, len(months))
	for i, m := range months {
		monthIdx[m] = i
	}

	set := &Set{
		FeatureNames: append(append([]string{}, featureNames...), LagNames(lags)...),
	}
	for _, row := range rows {
		ref, ok := monthIdx[row.Month]
		if !ok || ref == 0 {
			continue
		}
		prev := owners[months[ref-1]][row.CustomerID]

		x := append(append([]float64{}, row.Features...), LagVector(owners, months, ref, row.CustomerID, lags)...)
		set.X = append(set.X, x)
		set.Labels = append(set.Labels, AdditionLabels(row.Products, prev))
		set.Customers = append(set.Customers, row.CustomerID)
	}
	if len(set.X) == 0 {
		return nil, fmt.Errorf("no training examples after lag construction")
	}
	return set, nil
}

// ScoringSet holds feature vectors for the prediction month plus the products
// each customer already owned in the reference month, for exclusion at
// ranking time.
type ScoringSet struct {
	FeatureNames []string
	X            [][]float64
	Customers    []int
	Owned        []models.ProductVector
}

// BuildScoringSet assembles one scoring example per customer for the month
// following the last training month. Ownership lags are joined from the
// training window; customers unseen in the window lag to all zeros.
func BuildScoringSet(rows []*models.CustomerMonth, owners OwnershipIndex, months []string, lags int, featureNames []string) (*ScoringSet, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("no training months to lag against")
	}
	// The scoring month sits one past the end of the window
	ref := len(months)
	last := months[len(months)-1]

	set := &ScoringSet{
		FeatureNames: append(append([]string{}, featureNames...), LagNames(lags)...),
	}
	for _, row := range rows {
		x := append(append([]float64{}, row.Features...), LagVector(owners, months, ref, row.CustomerID, lags)...)
		set.X = append(set.X, x)
		set.Customers = append(set.Customers, row.CustomerID)
		set.Owned = append(set.Owned, owners[last][row.CustomerID])
	}
	if len(set.X) == 0 {
		return nil, fmt.Errorf("no customers to score")
	}
	return set, nil
}

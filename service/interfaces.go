package service

import (
	"context"

	"recommender/models"
)

// RunStore persists a completed training run together with the
// recommendations it produced. A nil RunStore means file-only runs.
type RunStore interface {
	// RecordRun persists the run row and its recommendations atomically
	RecordRun(ctx context.Context, run *models.TrainingRun, recs []*models.Recommendation) error
}

// ProductService runs the banking-product recommendation pipeline
type ProductService interface {
	// Run executes the full pipeline: ingest, encode, train one classifier
	// per product, score the test customers, and write top-K CSV output
	Run(ctx context.Context) (*models.TrainingRun, error)
}

// MovieService runs the movie-rating matrix factorization pipeline
type MovieService interface {
	// Run executes the full pipeline: ingest, remap, train, evaluate the
	// holdout split, and report top-K unseen titles for the sampled user
	Run(ctx context.Context) (*models.TrainingRun, error)
}

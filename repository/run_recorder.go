package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"recommender/database"
	"recommender/models"
)

// RunRecorder writes a training run and its recommendations atomically.
// A failed bulk insert rolls back the run row as well.
type RunRecorder struct {
	db   *database.DB
	runs *TrainingRunRepository
	recs *RecommendationRepository
}

// NewRunRecorder creates a run recorder over the shared pool
func NewRunRecorder(db *database.DB) *RunRecorder {
	return &RunRecorder{
		db:   db,
		runs: NewTrainingRunRepository(db),
		recs: NewRecommendationRepository(db),
	}
}

// RecordRun persists the run row and bulk-inserts its recommendations in a
// single transaction.
func (r *RunRecorder) RecordRun(ctx context.Context, run *models.TrainingRun, recs []*models.Recommendation) error {
	for _, rec := range recs {
		rec.RunID = run.ID
	}
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.runs.WithTx(tx).Create(ctx, run); err != nil {
			return fmt.Errorf("failed to record training run: %w", err)
		}
		if _, err := r.recs.WithTx(tx).CreateBatch(ctx, recs); err != nil {
			return fmt.Errorf("failed to record recommendations: %w", err)
		}
		return nil
	})
}

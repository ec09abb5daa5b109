package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"recommender/database"
	"recommender/models"
)

// RecommendationRepository persists the ranked item lists produced by a run
type RecommendationRepository struct {
	db querier
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *database.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *RecommendationRepository) WithTx(tx pgx.Tx) *RecommendationRepository {
	return &RecommendationRepository{db: tx}
}

// CreateBatch bulk-inserts recommendations via the COPY protocol. All rows
// must carry the same run id as recorded by the caller.
func (r *RecommendationRepository) CreateBatch(ctx context.Context, recs []*models.Recommendation) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	inserted, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"recommendations"},
		[]string{"run_id", "subject", "items", "scores"},
		pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
			rec := recs[i]
			if len(rec.Items) != len(rec.Scores) {
				return nil, fmt.Errorf("recommendation for %s has %d items but %d scores",
					rec.Subject, len(rec.Items), len(rec.Scores))
			}
			return []any{rec.RunID, rec.Subject, rec.Items, rec.Scores}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert recommendations: %w", err)
	}

	return inserted, nil
}

// GetByRun returns all recommendations recorded for a run, ordered by subject
func (r *RecommendationRepository) GetByRun(ctx context.Context, runID uuid.UUID) ([]*models.Recommendation, error) {
	query := `
		SELECT id, run_id, subject, items, scores, created_at
		FROM recommendations
		WHERE run_id = $1
		ORDER BY subject
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations for run %s: %w", runID, err)
	}
	defer rows.Close()

	var recs []*models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Subject, &rec.Items, &rec.Scores, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recommendations: %w", err)
	}

	return recs, nil
}

// GetBySubject returns the recommendation for one subject within a run
func (r *RecommendationRepository) GetBySubject(ctx context.Context, runID uuid.UUID, subject string) (*models.Recommendation, error) {
	query := `
		SELECT id, run_id, subject, items, scores, created_at
		FROM recommendations
		WHERE run_id = $1 AND subject = $2
	`

	var rec models.Recommendation
	err := r.db.QueryRow(ctx, query, runID, subject).Scan(
		&rec.ID, &rec.RunID, &rec.Subject, &rec.Items, &rec.Scores, &rec.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation for %s: %w", subject, err)
	}

	return &rec, nil
}

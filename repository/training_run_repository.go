package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"recommender/database"
	"recommender/models"
)

// querier is satisfied by both the pool and a transaction, so repositories
// can participate in a caller-managed transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// TrainingRunRepository persists training run records
type TrainingRunRepository struct {
	db querier
}

// NewTrainingRunRepository creates a new training run repository
func NewTrainingRunRepository(db *database.DB) *TrainingRunRepository {
	return &TrainingRunRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *TrainingRunRepository) WithTx(tx pgx.Tx) *TrainingRunRepository {
	return &TrainingRunRepository{db: tx}
}

// Create creates a new training run record. The run id must be set by the
// caller; created_at is assigned by the database.
func (r *TrainingRunRepository) Create(ctx context.Context, run *models.TrainingRun) error {
	hyperJSON, err := json.Marshal(run.Hyperparameters)
	if err != nil {
		return fmt.Errorf("failed to marshal hyperparameters: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO training_runs
		(id, pipeline, started_at, finished_at, hyperparameters, metrics)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		run.ID,
		run.Pipeline,
		run.StartedAt,
		run.FinishedAt,
		hyperJSON,
		metricsJSON,
	).Scan(&run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create training run %s: %w", run.ID, err)
	}

	return nil
}

// GetByID retrieves a training run by its id
func (r *TrainingRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TrainingRun, error) {
	query := `
		SELECT id, pipeline, started_at, finished_at, hyperparameters, metrics, created_at
		FROM training_runs
		WHERE id = $1
	`
	return r.scanRun(r.db.QueryRow(ctx, query, id))
}

// GetLatestByPipeline returns the most recent run for a pipeline
func (r *TrainingRunRepository) GetLatestByPipeline(ctx context.Context, pipeline string) (*models.TrainingRun, error) {
	query := `
		SELECT id, pipeline, started_at, finished_at, hyperparameters, metrics, created_at
		FROM training_runs
		WHERE pipeline = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRun(r.db.QueryRow(ctx, query, pipeline))
}

func (r *TrainingRunRepository) scanRun(row pgx.Row) (*models.TrainingRun, error) {
	var run models.TrainingRun
	var hyperJSON, metricsJSON []byte

	err := row.Scan(
		&run.ID,
		&run.Pipeline,
		&run.StartedAt,
		&run.FinishedAt,
		&hyperJSON,
		&metricsJSON,
		&run.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}

	if len(hyperJSON) > 0 {
		if err := json.Unmarshal(hyperJSON, &run.Hyperparameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hyperparameters: %w", err)
		}
	}
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}

	return &run, nil
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recommender/models"
	"recommender/repository/testutil"
)

func TestTrainingRunRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTrainingRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		run := testutil.CreateTestTrainingRun(models.PipelineProducts)

		err := repo.Create(ctx, run)
		require.NoError(t, err)
		assert.False(t, run.CreatedAt.IsZero())
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		run := testutil.CreateTestTrainingRun(models.PipelineProducts)
		require.NoError(t, repo.Create(ctx, run))

		dup := testutil.CreateTestTrainingRun(models.PipelineProducts)
		dup.ID = run.ID
		err := repo.Create(ctx, dup)
		assert.Error(t, err)
	})

	t.Run("empty metrics allowed", func(t *testing.T) {
		run := testutil.CreateTestTrainingRun(models.PipelineMovies)
		run.Metrics = nil

		err := repo.Create(ctx, run)
		require.NoError(t, err)
	})
}

func TestTrainingRunRepository_GetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTrainingRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		run, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("round trip", func(t *testing.T) {
		original := testutil.CreateTestTrainingRun(models.PipelineProducts)
		require.NoError(t, repo.Create(ctx, original))

		run, err := repo.GetByID(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, run)

		assert.Equal(t, original.ID, run.ID)
		assert.Equal(t, models.PipelineProducts, run.Pipeline)
		assert.Equal(t, float64(60), run.Hyperparameters["rounds"])
		assert.Equal(t, 0.027, run.Metrics["map_at_5"])
		assert.WithinDuration(t, original.StartedAt, run.StartedAt, time.Millisecond)
		assert.WithinDuration(t, original.FinishedAt, run.FinishedAt, time.Millisecond)
	})
}

func TestTrainingRunRepository_GetLatestByPipeline(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTrainingRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no runs", func(t *testing.T) {
		run, err := repo.GetLatestByPipeline(ctx, models.PipelineProducts)
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("latest per pipeline", func(t *testing.T) {
		first := testutil.CreateTestTrainingRun(models.PipelineProducts)
		require.NoError(t, repo.Create(ctx, first))

		time.Sleep(5 * time.Millisecond) // distinct created_at ordering

		second := testutil.CreateTestTrainingRun(models.PipelineProducts)
		require.NoError(t, repo.Create(ctx, second))

		other := testutil.CreateTestTrainingRun(models.PipelineMovies)
		require.NoError(t, repo.Create(ctx, other))

		latest, err := repo.GetLatestByPipeline(ctx, models.PipelineProducts)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, second.ID, latest.ID)

		movies, err := repo.GetLatestByPipeline(ctx, models.PipelineMovies)
		require.NoError(t, err)
		require.NotNil(t, movies)
		assert.Equal(t, other.ID, movies.ID)
	})
}

func TestTrainingRunRepository_WithTx(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTrainingRunRepository(testDB.DB)
	recRepo := NewRecommendationRepository(testDB.DB)
	ctx := context.Background()

	t.Run("run and recommendations commit together", func(t *testing.T) {
		run := testutil.CreateTestTrainingRun(models.PipelineProducts)
		recs := []*models.Recommendation{
			testutil.CreateTestRecommendation(run.ID, "100"),
			testutil.CreateTestRecommendation(run.ID, "101"),
		}

		err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			if err := repo.WithTx(tx).Create(ctx, run); err != nil {
				return err
			}
			_, err := recRepo.WithTx(tx).CreateBatch(ctx, recs)
			return err
		})
		require.NoError(t, err)

		stored, err := recRepo.GetByRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("failed batch rolls back the run", func(t *testing.T) {
		run := testutil.CreateTestTrainingRun(models.PipelineProducts)
		bad := testutil.CreateTestRecommendation(run.ID, "200")
		bad.Scores = bad.Scores[:1] // item/score length mismatch

		err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			if err := repo.WithTx(tx).Create(ctx, run); err != nil {
				return err
			}
			_, err := recRepo.WithTx(tx).CreateBatch(ctx, []*models.Recommendation{bad})
			return err
		})
		require.Error(t, err)

		stored, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

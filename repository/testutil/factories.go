package testutil

import (
	"time"

	"github.com/google/uuid"

	"recommender/models"
)

// CreateTestTrainingRun creates a training run with default values
func CreateTestTrainingRun(pipeline string) *models.TrainingRun {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.TrainingRun{
		ID:         uuid.New(),
		Pipeline:   pipeline,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Hyperparameters: map[string]interface{}{
			"rounds":        60,
			"max_depth":     4,
			"learning_rate": 0.1,
		},
		Metrics: map[string]interface{}{
			"map_at_5": 0.027,
		},
	}
}

// CreateTestRecommendation creates a recommendation tied to a run
func CreateTestRecommendation(runID uuid.UUID, subject string) *models.Recommendation {
	return &models.Recommendation{
		RunID:   runID,
		Subject: subject,
		Items:   []string{"ind_cco_fin_ult1", "ind_recibo_ult1", "ind_tjcr_fin_ult1"},
		Scores:  []float64{0.31, 0.12, 0.05},
	}
}

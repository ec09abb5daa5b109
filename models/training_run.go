package models

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline names recorded on training runs.
const (
	PipelineProducts = "products"
	PipelineMovies   = "movies"
)

// TrainingRun represents one completed pipeline execution
type TrainingRun struct {
	ID              uuid.UUID              `db:"id"`
	Pipeline        string                 `db:"pipeline"`
	StartedAt       time.Time              `db:"started_at"`
	FinishedAt      time.Time              `db:"finished_at"`
	Hyperparameters map[string]interface{} `db:"hyperparameters"`
	Metrics         map[string]interface{} `db:"metrics"`
	CreatedAt       time.Time              `db:"created_at"`
}

// Duration returns the wall-clock time the run took.
func (r *TrainingRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

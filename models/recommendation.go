package models

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is the ranked item list produced for one subject (a customer
// id for the products pipeline, a user id for the movies pipeline). Items and
// Scores are parallel slices ordered by descending score.
type Recommendation struct {
	ID        int64     `db:"id"`
	RunID     uuid.UUID `db:"run_id"`
	Subject   string    `db:"subject"`
	Items     []string  `db:"items"`
	Scores    []float64 `db:"scores"`
	CreatedAt time.Time `db:"created_at"`
}

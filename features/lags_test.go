package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recommender/models"
)

func month(m string, customer int, features []float64, owned ...int) *models.CustomerMonth {
	row := &models.CustomerMonth{
		Month:      m,
		CustomerID: customer,
		Features:   features,
	}
	for _, i := range owned {
		row.Products[i] = 1
	}
	return row
}

func TestAdditionLabels(t *testing.T) {
	t.Run("acquisition labeled", func(t *testing.T) {
		curr := month("m", 1, nil, 0, 2).Products
		prev := month("m", 1, nil, 2).Products

		labels := AdditionLabels(curr, prev)
		assert.Equal(t, uint8(1), labels[0])
		assert.Equal(t, uint8(0), labels[2])
	})

	t.Run("drop never goes negative", func(t *testing.T) {
		curr := month("m", 1, nil).Products
		prev := month("m", 1, nil, 0, 1, 2).Products

		labels := AdditionLabels(curr, prev)
		for i, v := range labels {
			assert.LessOrEqual(t, v, uint8(1), "label %d", i)
			assert.Equal(t, uint8(0), v, "label %d", i)
		}
	})

	t.Run("added lists acquired indices", func(t *testing.T) {
		curr := month("m", 1, nil, 1, 3, 5).Products
		prev := month("m", 1, nil, 3).Products
		assert.Equal(t, []int{1, 5}, Added(curr, prev))
	})
}

func TestLagVector(t *testing.T) {
	months := []string{"2015-01-28", "2015-02-28", "2015-03-28"}
	rows := []*models.CustomerMonth{
		month("2015-01-28", 1, nil, 0),
		month("2015-02-28", 1, nil, 0, 2),
		// customer 1 has no 2015-03-28 record
	}
	owners := BuildOwnershipIndex(rows)

	t.Run("joins prior months most recent first", func(t *testing.T) {
		v := LagVector(owners, months, 2, 1, 2)
		require.Len(t, v, 2*models.NumProducts)
		// lag1 = 2015-02-28
		assert.Equal(t, 1.0, v[0])
		assert.Equal(t, 1.0, v[2])
		// lag2 = 2015-01-28
		assert.Equal(t, 1.0, v[models.NumProducts])
		assert.Equal(t, 0.0, v[models.NumProducts+2])
	})

	t.Run("missing join fills zeros", func(t *testing.T) {
		v := LagVector(owners, months, 2, 99, 2)
		for i, f := range v {
			assert.Equal(t, 0.0, f, "position %d", i)
		}
	})

	t.Run("window start fills zeros", func(t *testing.T) {
		v := LagVector(owners, months, 1, 1, 3)
		// lag1 = 2015-01-28 present, lag2 and lag3 before the window
		assert.Equal(t, 1.0, v[0])
		for _, f := range v[models.NumProducts:] {
			assert.Equal(t, 0.0, f)
		}
	})
}

func TestBuildTrainingSet(t *testing.T) {
	months := []string{"2015-01-28", "2015-02-28"}
	rows := []*models.CustomerMonth{
		month("2015-01-28", 1, []float64{1, 2}, 0),
		month("2015-02-28", 1, []float64{1, 2}, 0, 3),
		month("2015-02-28", 2, []float64{5, 6}, 1),
	}
	owners := BuildOwnershipIndex(rows)

	set, err := BuildTrainingSet(rows, owners, months, 1, []string{"a", "b"})
	require.NoError(t, err)

	// Only the two 2015-02-28 rows have a preceding month
	require.Len(t, set.X, 2)
	require.Len(t, set.Labels, 2)
	assert.Equal(t, []int{1, 2}, set.Customers)

	// Customer 1 added product 3
	assert.Equal(t, uint8(1), set.Labels[0][3])
	assert.Equal(t, uint8(0), set.Labels[0][0])
	// Customer 2 was unseen in January, so owning product 1 counts as added
	assert.Equal(t, uint8(1), set.Labels[1][1])

	// Feature vector = base features + lag block
	require.Len(t, set.X[0], 2+models.NumProducts)
	assert.Equal(t, []float64{1, 2}, set.X[0][:2])
	assert.Equal(t, 1.0, set.X[0][2+0]) // owned product 0 in January

	assert.Equal(t, append([]string{"a", "b"}, LagNames(1)...), set.FeatureNames)

	t.Run("single month fails", func(t *testing.T) {
		_, err := BuildTrainingSet(rows, owners, months[:1], 1, nil)
		assert.Error(t, err)
	})
}

func TestBuildScoringSet(t *testing.T) {
	months := []string{"2015-01-28", "2015-02-28"}
	trainRows := []*models.CustomerMonth{
		month("2015-01-28", 1, nil, 0),
		month("2015-02-28", 1, nil, 0, 3),
	}
	owners := BuildOwnershipIndex(trainRows)

	scoreRows := []*models.CustomerMonth{
		month("2015-03-28", 1, []float64{9}),
		month("2015-03-28", 2, []float64{7}),
	}
	set, err := BuildScoringSet(scoreRows, owners, months, 2, []string{"a"})
	require.NoError(t, err)
	require.Len(t, set.X, 2)

	// Customer 1: lag1 = February ownership
	assert.Equal(t, 1.0, set.X[0][1+0])
	assert.Equal(t, 1.0, set.X[0][1+3])
	// Owned in the reference month drives exclusion at ranking time
	assert.Equal(t, uint8(1), set.Owned[0][3])

	// Customer 2 unseen in the window
	for _, f := range set.X[1][1:] {
		assert.Equal(t, 0.0, f)
	}
	assert.Equal(t, uint8(0), set.Owned[1][3])
}

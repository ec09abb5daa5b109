package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recommender/models"
)

func TestReadRatings(t *testing.T) {
	t.Run("parses valid records", func(t *testing.T) {
		csv := "userId,movieId,rating,timestamp\n1,10,4.0,964982703\n1,20,3.5,964981247\n2,10,5.0,964982224\n"
		ratings, err := ReadRatings(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, ratings, 3)

		assert.Equal(t, 1, ratings[0].UserID)
		assert.Equal(t, 10, ratings[0].MovieID)
		assert.Equal(t, 4.0, ratings[0].Rating)
		assert.Equal(t, int64(964982703), ratings[0].Timestamp)
	})

	t.Run("drops malformed records", func(t *testing.T) {
		csv := "userId,movieId,rating,timestamp\n1,10,4.0,964982703\nx,20,3.5,964981247\n2,y,5.0,964982224\n"
		ratings, err := ReadRatings(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Len(t, ratings, 1)
	})

	t.Run("timestamp column optional", func(t *testing.T) {
		csv := "userId,movieId,rating\n1,10,4.0\n"
		ratings, err := ReadRatings(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, int64(0), ratings[0].Timestamp)
	})

	t.Run("empty file fails", func(t *testing.T) {
		csv := "userId,movieId,rating,timestamp\n"
		_, err := ReadRatings(strings.NewReader(csv))
		assert.Error(t, err)
	})
}

func TestReadMovies(t *testing.T) {
	csv := "movieId,title,genres\n1,Toy Story (1995),Adventure|Animation|Children|Comedy|Fantasy\n2,Jumanji (1995),Adventure|Children|Fantasy\n"
	movies, err := ReadMovies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, movies, 2)

	assert.Equal(t, "Toy Story (1995)", movies[1].Title)
	assert.Equal(t, []string{"Adventure", "Children", "Fantasy"}, movies[2].Genres)
}

func TestIndexMap(t *testing.T) {
	m := NewIndexMap()

	t.Run("first seen order", func(t *testing.T) {
		assert.Equal(t, 0, m.Dense(50))
		assert.Equal(t, 1, m.Dense(7))
		assert.Equal(t, 0, m.Dense(50))
		assert.Equal(t, 2, m.Len())
	})

	t.Run("bijection over seen ids", func(t *testing.T) {
		ids := []int{50, 7, 999, 3, 12}
		for _, id := range ids {
			m.Dense(id)
		}
		for _, id := range ids {
			idx, ok := m.Lookup(id)
			require.True(t, ok)
			assert.Equal(t, id, m.Raw(idx))
		}
	})

	t.Run("lookup does not assign", func(t *testing.T) {
		before := m.Len()
		_, ok := m.Lookup(123456)
		assert.False(t, ok)
		assert.Equal(t, before, m.Len())
	})
}

func TestNormalizer(t *testing.T) {
	ratings := []*models.Rating{
		{Rating: 0.5},
		{Rating: 5.0},
		{Rating: 3.0},
	}
	n := FitNormalizer(ratings)

	t.Run("range maps to unit interval", func(t *testing.T) {
		assert.Equal(t, 0.0, n.Normalize(0.5))
		assert.Equal(t, 1.0, n.Normalize(5.0))
		assert.InDelta(t, 0.5555, n.Normalize(3.0), 0.001)
	})

	t.Run("denormalize inverts normalize", func(t *testing.T) {
		for _, r := range []float64{0.5, 1.0, 2.5, 3.0, 4.5, 5.0} {
			assert.InDelta(t, r, n.Denormalize(n.Normalize(r)), 1e-12)
		}
	})

	t.Run("constant corpus does not divide by zero", func(t *testing.T) {
		c := FitNormalizer([]*models.Rating{{Rating: 4.0}, {Rating: 4.0}})
		assert.Equal(t, 0.0, c.Normalize(4.0))
		assert.Equal(t, 4.0, c.Denormalize(0.0))
	})
}

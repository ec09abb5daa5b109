package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recommender/config"
	"recommender/events"
	"recommender/models"
)

// writeMovieLensCSVs generates a block-structured corpus: users 1-20 love
// movies 101-108 and dislike 109-115, users 21-40 the reverse. User 1 leaves
// movies 105-108 unrated so they are candidates for recommendation.
func writeMovieLensCSVs(t *testing.T, dir string) (ratingsPath, moviesPath string) {
	t.Helper()

	ratingsPath = filepath.Join(dir, "ratings.csv")
	moviesPath = filepath.Join(dir, "movies.csv")

	rf, err := os.Create(ratingsPath)
	require.NoError(t, err)
	defer rf.Close()

	w := csv.NewWriter(rf)
	require.NoError(t, w.Write([]string{"userId", "movieId", "rating", "timestamp"}))
	ts := 964982703
	for user := 1; user <= 40; user++ {
		for movie := 101; movie <= 115; movie++ {
			if user == 1 && movie >= 105 && movie <= 108 {
				continue
			}
			lovesLow := user <= 20
			isLow := movie <= 108
			rating := "1.0"
			if lovesLow == isLow {
				rating = "5.0"
			}
			ts++
			require.NoError(t, w.Write([]string{
				strconv.Itoa(user), strconv.Itoa(movie), rating, strconv.Itoa(ts),
			}))
		}
	}
	w.Flush()
	require.NoError(t, w.Error())

	out, err := os.Create(moviesPath)
	require.NoError(t, err)
	defer out.Close()

	mw := csv.NewWriter(out)
	require.NoError(t, mw.Write([]string{"movieId", "title", "genres"}))
	for movie := 101; movie <= 115; movie++ {
		require.NoError(t, mw.Write([]string{
			strconv.Itoa(movie), "Movie " + strconv.Itoa(movie), "Drama",
		}))
	}
	mw.Flush()
	require.NoError(t, mw.Error())

	return ratingsPath, moviesPath
}

func movieTestConfig(t *testing.T) *config.Config {
	t.Helper()
	ratingsPath, moviesPath := writeMovieLensCSVs(t, t.TempDir())

	return &config.Config{
		RatingsPath:  ratingsPath,
		MoviesPath:   moviesPath,
		Seed:         42,
		MovieTopK:    3,
		Factors:      4,
		Epochs:       40,
		MFLearnRate:  0.05,
		MFPenalty:    0.01,
		HoldoutRatio: 0.2,
		SampleUserID: 1,
	}
}

func TestMovieService_Run(t *testing.T) {
	ctx := context.Background()
	cfg := movieTestConfig(t)

	var recorded []*models.Recommendation
	mockStore := new(MockRunStore)
	mockStore.On("RecordRun", ctx, mock.AnythingOfType("*models.TrainingRun"), mock.Anything).
		Run(func(args mock.Arguments) {
			recorded = args.Get(2).([]*models.Recommendation)
		}).
		Return(nil)

	svc := NewMovieService(cfg, events.NewBus(), mockStore)

	run, err := svc.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, models.PipelineMovies, run.Pipeline)
	assert.Equal(t, 40, run.Metrics["users"])
	assert.Equal(t, 15, run.Metrics["movies"])

	// Well-separated blocks should be easy to fit
	rmse, ok := run.Metrics["rmse"].(float64)
	require.True(t, ok)
	assert.Less(t, rmse, 1.0)

	require.Len(t, recorded, 1)
	rec := recorded[0]
	assert.Equal(t, "1", rec.Subject)
	require.Len(t, rec.Items, 3)
	require.Len(t, rec.Scores, 3)

	// Scores come back ranked
	for i := 1; i < len(rec.Scores); i++ {
		assert.GreaterOrEqual(t, rec.Scores[i-1], rec.Scores[i])
	}

	// User 1 left exactly movies 105-108 unrated; everything else is excluded
	unseen := map[string]bool{
		"Movie 105": true, "Movie 106": true, "Movie 107": true, "Movie 108": true,
	}
	for _, title := range rec.Items {
		assert.True(t, unseen[title], "recommended already-rated movie %s", title)
	}

	mockStore.AssertExpectations(t)
}

func TestMovieService_Run_NoStore(t *testing.T) {
	cfg := movieTestConfig(t)
	svc := NewMovieService(cfg, events.NewBus(), nil)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.PipelineMovies, run.Pipeline)
}

func TestMovieService_Run_UnknownSampleUser(t *testing.T) {
	cfg := movieTestConfig(t)
	cfg.SampleUserID = 999

	svc := NewMovieService(cfg, events.NewBus(), nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no ratings")
}

func TestMovieService_Run_MissingRatingsFile(t *testing.T) {
	cfg := movieTestConfig(t)
	cfg.RatingsPath = filepath.Join(t.TempDir(), "missing.csv")

	svc := NewMovieService(cfg, events.NewBus(), nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load ratings")
}

func TestMovieService_Run_EmitsProgressEvents(t *testing.T) {
	cfg := movieTestConfig(t)

	bus := events.NewBus()
	var seen []events.EventType
	for _, et := range []events.EventType{
		events.EventTypeDatasetLoaded,
		events.EventTypeModelTrained,
		events.EventTypeRunCompleted,
	} {
		eventType := et
		bus.Subscribe(eventType, func(ctx context.Context, e events.Event) {
			seen = append(seen, eventType)
		})
	}

	svc := NewMovieService(cfg, bus, nil)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventTypeDatasetLoaded,
		events.EventTypeModelTrained,
		events.EventTypeRunCompleted,
	}, seen)
}

package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"recommender/config"
	"recommender/dataset"
	"recommender/events"
	"recommender/mf"
	"recommender/models"
	"recommender/rank"
)

// movieService implements the MovieService interface
type movieService struct {
	cfg   *config.Config
	bus   *events.Bus
	store RunStore
}

// NewMovieService creates a new movie pipeline service. store may be nil for
// file-only runs.
func NewMovieService(cfg *config.Config, bus *events.Bus, store RunStore) MovieService {
	return &movieService{
		cfg:   cfg,
		bus:   bus,
		store: store,
	}
}

// Run executes the movie pipeline end to end
func (s *movieService) Run(ctx context.Context) (*models.TrainingRun, error) {
	started := time.Now()

	loadStart := time.Now()
	ratings, err := dataset.LoadRatingsFile(s.cfg.RatingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	movies, err := dataset.LoadMoviesFile(s.cfg.MoviesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load movies: %w", err)
	}

	s.bus.Emit(ctx, events.DatasetLoadedEvent{
		Pipeline: models.PipelineMovies,
		Source:   s.cfg.RatingsPath,
		Rows:     len(ratings),
		Elapsed:  time.Since(loadStart),
	})

	users := dataset.NewIndexMap()
	items := dataset.NewIndexMap()
	norm := dataset.FitNormalizer(ratings)

	samples := make([]mf.Sample, len(ratings))
	for i, r := range ratings {
		samples[i] = mf.Sample{
			User:   users.Dense(r.UserID),
			Item:   items.Dense(r.MovieID),
			Rating: norm.Normalize(r.Rating),
		}
	}

	train, holdout := s.split(samples)
	log.WithFields(log.Fields{
		"trainSamples":   len(train),
		"holdoutSamples": len(holdout),
		"users":          users.Len(),
		"movies":         items.Len(),
	}).Info("Rating matrix indexed")

	fitStart := time.Now()
	model, err := mf.Train(mf.Params{
		Factors:      s.cfg.Factors,
		Epochs:       s.cfg.Epochs,
		LearningRate: s.cfg.MFLearnRate,
		Penalty:      s.cfg.MFPenalty,
		Seed:         s.cfg.Seed,
	}, train, users.Len(), items.Len())
	if err != nil {
		return nil, fmt.Errorf("failed to train factorization model: %w", err)
	}

	s.bus.Emit(ctx, events.ModelTrainedEvent{
		Pipeline:  models.PipelineMovies,
		Label:     "matrix_factorization",
		Positives: len(train),
		Elapsed:   time.Since(fitStart),
	})

	normRMSE, normMAE := model.Evaluate(holdout)
	scale := norm.Max - norm.Min
	rmse, mae := normRMSE*scale, normMAE*scale
	log.WithFields(log.Fields{
		"rmse":    rmse,
		"mae":     mae,
		"holdout": len(holdout),
	}).Info("Holdout evaluated")

	rec, err := s.recommend(model, users, items, movies, ratings, norm)
	if err != nil {
		return nil, err
	}

	run := &models.TrainingRun{
		ID:         uuid.New(),
		Pipeline:   models.PipelineMovies,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Hyperparameters: map[string]interface{}{
			"factors":       s.cfg.Factors,
			"epochs":        s.cfg.Epochs,
			"learning_rate": s.cfg.MFLearnRate,
			"penalty":       s.cfg.MFPenalty,
			"holdout_ratio": s.cfg.HoldoutRatio,
			"top_k":         s.cfg.MovieTopK,
			"seed":          s.cfg.Seed,
		},
		Metrics: map[string]interface{}{
			"rmse":    rmse,
			"mae":     mae,
			"ratings": len(ratings),
			"users":   users.Len(),
			"movies":  items.Len(),
		},
	}

	if s.store != nil {
		if err := s.store.RecordRun(ctx, run, []*models.Recommendation{rec}); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
	}

	s.bus.Emit(ctx, events.RunCompletedEvent{
		Pipeline: models.PipelineMovies,
		RunID:    run.ID,
		Metrics:  run.Metrics,
		Elapsed:  time.Since(started),
	})

	return run, nil
}

// split partitions samples into train and holdout deterministically from the
// configured seed.
func (s *movieService) split(samples []mf.Sample) (train, holdout []mf.Sample) {
	shuffled := make([]mf.Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(s.cfg.Seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled)) * s.cfg.HoldoutRatio)
	return shuffled[cut:], shuffled[:cut]
}

// recommend scores every movie the sampled user has not rated and returns the
// top-K titles with denormalized predicted ratings.
func (s *movieService) recommend(model *mf.Model, users, items *dataset.IndexMap, movies map[int]*models.Movie, ratings []*models.Rating, norm dataset.Normalizer) (*models.Recommendation, error) {
	userIdx, ok := users.Lookup(s.cfg.SampleUserID)
	if !ok {
		return nil, fmt.Errorf("sample user %d has no ratings", s.cfg.SampleUserID)
	}

	seen := make(map[int]bool)
	for _, r := range ratings {
		if r.UserID == s.cfg.SampleUserID {
			seen[items.Dense(r.MovieID)] = true
		}
	}

	scores := make([]float64, items.Len())
	for i := range scores {
		scores[i] = model.Predict(userIdx, i)
	}
	top := rank.TopK(scores, s.cfg.MovieTopK, func(i int) bool { return seen[i] })

	rec := &models.Recommendation{
		Subject: strconv.Itoa(s.cfg.SampleUserID),
		Items:   make([]string, 0, len(top)),
		Scores:  make([]float64, 0, len(top)),
	}
	for _, idx := range top {
		movieID := items.Raw(idx)
		title := strconv.Itoa(movieID)
		if m, ok := movies[movieID]; ok {
			title = m.Title
		}
		predicted := norm.Denormalize(scores[idx])
		rec.Items = append(rec.Items, title)
		rec.Scores = append(rec.Scores, predicted)

		log.WithFields(log.Fields{
			"user":      s.cfg.SampleUserID,
			"title":     title,
			"predicted": predicted,
		}).Info("Recommended movie")
	}

	return rec, nil
}

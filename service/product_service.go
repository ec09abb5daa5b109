package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"recommender/boost"
	"recommender/config"
	"recommender/dataset"
	"recommender/events"
	"recommender/features"
	"recommender/models"
	"recommender/rank"
)

// productService implements the ProductService interface
type productService struct {
	cfg   *config.Config
	bus   *events.Bus
	store RunStore
}

// NewProductService creates a new product pipeline service. store may be nil
// for file-only runs.
func NewProductService(cfg *config.Config, bus *events.Bus, store RunStore) ProductService {
	return &productService{
		cfg:   cfg,
		bus:   bus,
		store: store,
	}
}

// Run executes the product pipeline end to end
func (s *productService) Run(ctx context.Context) (*models.TrainingRun, error) {
	started := time.Now()

	trainRows, err := s.loadDataset(ctx, s.cfg.TrainPath)
	if err != nil {
		return nil, err
	}

	months := dataset.Months(trainRows)
	if len(months) < 2 {
		return nil, fmt.Errorf("training window has %d months, need at least 2", len(months))
	}

	encoder := dataset.FitEncoder(trainRows)
	encoded := encoder.Transform(trainRows)
	owners := features.BuildOwnershipIndex(encoded)

	s.logDatasetSummary(encoder, encoded, months)

	// The last month of the window is held out for ranking evaluation;
	// the classifiers train on the months before it.
	trainSet, err := features.BuildTrainingSet(encoded, owners, months[:len(months)-1], s.cfg.LagMonths, encoder.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("failed to build training set: %w", err)
	}

	classifiers, trained, skipped, err := s.trainClassifiers(ctx, trainSet)
	if err != nil {
		return nil, err
	}

	mapAtK := s.evaluate(encoded, owners, months, encoder.FeatureNames(), classifiers)
	log.WithFields(log.Fields{
		"mapAtK":          mapAtK,
		"k":               s.cfg.TopK,
		"validationMonth": months[len(months)-1],
	}).Info("Validation ranking evaluated")

	testRows, err := s.loadDataset(ctx, s.cfg.TestPath)
	if err != nil {
		return nil, err
	}

	scoring, err := features.BuildScoringSet(encoder.Transform(testRows), owners, months, s.cfg.LagMonths, encoder.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring set: %w", err)
	}

	recs := s.score(scoring, classifiers)

	if err := s.writeCSV(recs); err != nil {
		return nil, err
	}

	run := &models.TrainingRun{
		ID:         uuid.New(),
		Pipeline:   models.PipelineProducts,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Hyperparameters: map[string]interface{}{
			"rounds":           s.cfg.BoostRounds,
			"max_depth":        s.cfg.MaxDepth,
			"min_leaf":         s.cfg.MinLeaf,
			"learning_rate":    s.cfg.LearningRate,
			"feature_fraction": s.cfg.FeatureFraction,
			"lag_months":       s.cfg.LagMonths,
			"top_k":            s.cfg.TopK,
			"seed":             s.cfg.Seed,
		},
		Metrics: map[string]interface{}{
			"map_at_k":         mapAtK,
			"train_examples":   len(trainSet.X),
			"scored_customers": len(recs),
			"models_trained":   trained,
			"models_skipped":   skipped,
		},
	}

	if s.store != nil {
		if err := s.store.RecordRun(ctx, run, recs); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
	}

	s.bus.Emit(ctx, events.RunCompletedEvent{
		Pipeline: models.PipelineProducts,
		RunID:    run.ID,
		Metrics:  run.Metrics,
		Elapsed:  time.Since(started),
	})

	return run, nil
}

func (s *productService) loadDataset(ctx context.Context, path string) ([]*dataset.Row, error) {
	start := time.Now()
	rows, err := dataset.LoadSantanderFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	s.bus.Emit(ctx, events.DatasetLoadedEvent{
		Pipeline: models.PipelineProducts,
		Source:   path,
		Rows:     len(rows),
		Elapsed:  time.Since(start),
	})
	return rows, nil
}

// trainClassifiers fits one boosted classifier per product label. Products
// with no positive examples in the window are skipped and keep a nil slot.
func (s *productService) trainClassifiers(ctx context.Context, set *features.Set) ([]*boost.Classifier, int, int, error) {
	classifiers := make([]*boost.Classifier, models.NumProducts)
	trained, skipped := 0, 0

	y := make([]uint8, len(set.X))
	for p := 0; p < models.NumProducts; p++ {
		positives := 0
		for i, labels := range set.Labels {
			y[i] = labels[p]
			if labels[p] == 1 {
				positives++
			}
		}

		if positives == 0 {
			skipped++
			s.bus.Emit(ctx, events.ModelTrainedEvent{
				Pipeline: models.PipelineProducts,
				Label:    models.ProductCodes[p],
				Skipped:  true,
			})
			continue
		}

		start := time.Now()
		clf := boost.NewClassifier(boost.Params{
			Rounds:          s.cfg.BoostRounds,
			MaxDepth:        s.cfg.MaxDepth,
			MinLeaf:         s.cfg.MinLeaf,
			LearningRate:    s.cfg.LearningRate,
			FeatureFraction: s.cfg.FeatureFraction,
			Seed:            s.cfg.Seed + int64(p),
		})
		if err := clf.Fit(set.X, y); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to fit classifier for %s: %w", models.ProductCodes[p], err)
		}
		classifiers[p] = clf
		trained++

		s.bus.Emit(ctx, events.ModelTrainedEvent{
			Pipeline:  models.PipelineProducts,
			Label:     models.ProductCodes[p],
			Positives: positives,
			Elapsed:   time.Since(start),
		})
	}

	return classifiers, trained, skipped, nil
}

// evaluate computes MAP@K against the additions observed in the last month of
// the window, excluding products the customer already owned the month before.
func (s *productService) evaluate(encoded []*models.CustomerMonth, owners features.OwnershipIndex, months []string, featureNames []string, classifiers []*boost.Classifier) float64 {
	last := months[len(months)-1]
	var lastRows []*models.CustomerMonth
	for _, row := range encoded {
		if row.Month == last {
			lastRows = append(lastRows, row)
		}
	}
	valSet, err := features.BuildTrainingSet(lastRows, owners, months, s.cfg.LagMonths, featureNames)
	if err != nil {
		log.WithField("month", last).Warn("No validation examples, skipping evaluation")
		return 0
	}

	prevOwners := owners[months[len(months)-2]]

	predicted := make([][]int, 0, len(valSet.X))
	relevant := make([]map[int]bool, 0, len(valSet.X))
	for i, x := range valSet.X {
		owned := prevOwners[valSet.Customers[i]]
		predicted = append(predicted, rank.TopK(s.scoreVector(x, classifiers), s.cfg.TopK, owned.Owns))

		added := make(map[int]bool)
		for _, p := range features.Added(valSet.Labels[i], models.ProductVector{}) {
			added[p] = true
		}
		relevant = append(relevant, added)
	}

	return rank.MeanAveragePrecisionAtK(predicted, relevant, s.cfg.TopK)
}

// score ranks every test customer and materializes recommendations, excluding
// products already owned in the reference month.
func (s *productService) score(set *features.ScoringSet, classifiers []*boost.Classifier) []*models.Recommendation {
	recs := make([]*models.Recommendation, 0, len(set.X))
	for i, x := range set.X {
		scores := s.scoreVector(x, classifiers)
		owned := set.Owned[i]
		top := rank.TopK(scores, s.cfg.TopK, owned.Owns)

		items := make([]string, len(top))
		ranked := make([]float64, len(top))
		for j, p := range top {
			items[j] = models.ProductCodes[p]
			ranked[j] = scores[p]
		}

		recs = append(recs, &models.Recommendation{
			Subject: strconv.Itoa(set.Customers[i]),
			Items:   items,
			Scores:  ranked,
		})
	}
	return recs
}

func (s *productService) scoreVector(x []float64, classifiers []*boost.Classifier) []float64 {
	scores := make([]float64, models.NumProducts)
	for p, clf := range classifiers {
		if clf == nil {
			continue // no positive examples in the window
		}
		scores[p] = clf.PredictProb(x)
	}
	return scores
}

func (s *productService) writeCSV(recs []*models.Recommendation) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.OutputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(s.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ncodpers", "added_products"}); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write([]string{rec.Subject, strings.Join(rec.Items, " ")}); err != nil {
			return fmt.Errorf("failed to write recommendation for %s: %w", rec.Subject, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	log.WithFields(log.Fields{
		"path":      s.cfg.OutputPath,
		"customers": len(recs),
	}).Info("Recommendations written")
	return nil
}

// logDatasetSummary reports per-segment income medians and per-product
// positive rates after ingestion.
func (s *productService) logDatasetSummary(encoder *dataset.Encoder, encoded []*models.CustomerMonth, months []string) {
	for _, segment := range encoder.Segments() {
		log.WithFields(log.Fields{
			"segment": segment,
			"median":  encoder.SegmentIncomeMedian(segment),
		}).Debug("Segment income median")
	}

	counts := make([]int, models.NumProducts)
	for _, row := range encoded {
		for p := 0; p < models.NumProducts; p++ {
			if row.Products.Owns(p) {
				counts[p]++
			}
		}
	}
	for p, c := range counts {
		log.WithFields(log.Fields{
			"product":   models.ProductCodes[p],
			"ownership": float64(c) / float64(len(encoded)),
		}).Debug("Product ownership rate")
	}

	log.WithFields(log.Fields{
		"rows":   len(encoded),
		"months": len(months),
		"first":  months[0],
		"last":   months[len(months)-1],
	}).Info("Dataset encoded")
}

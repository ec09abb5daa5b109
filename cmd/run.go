package cmd

import (
	"context"
	"fmt"
	"log"

	"recommender/config"
	"recommender/database"
	"recommender/events"
	"recommender/models"
	"recommender/repository"
	"recommender/service"
)

// RunProducts executes the banking-product recommendation pipeline
func RunProducts(ctx context.Context) error {
	return run(ctx, models.PipelineProducts)
}

// RunMovies executes the movie-rating recommendation pipeline
func RunMovies(ctx context.Context) error {
	return run(ctx, models.PipelineMovies)
}

func run(ctx context.Context, pipeline string) error {
	log.Printf("Starting %s pipeline...", pipeline)

	// Load configuration
	cfg := config.Get()

	// Connect to the results store when configured; pipelines are otherwise
	// file-only
	var store service.RunStore
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		store = repository.NewRunRecorder(db)
		log.Println("Database connection established successfully")
	} else {
		log.Println("DATABASE_URL not set, running file-only")
	}

	// Initialize event bus with a logging subscriber
	eventBus := events.NewBus()
	subscribeProgressLogger(eventBus)

	var err error
	var run *models.TrainingRun
	switch pipeline {
	case models.PipelineProducts:
		run, err = service.NewProductService(cfg, eventBus, store).Run(ctx)
	case models.PipelineMovies:
		run, err = service.NewMovieService(cfg, eventBus, store).Run(ctx)
	default:
		return fmt.Errorf("unknown pipeline: %s", pipeline)
	}
	if err != nil {
		return fmt.Errorf("%s pipeline failed: %w", pipeline, err)
	}

	log.Printf("Pipeline %s completed in %s (run %s)", pipeline, run.FinishedAt.Sub(run.StartedAt), run.ID)
	return nil
}

// subscribeProgressLogger attaches log handlers for pipeline progress events
func subscribeProgressLogger(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDatasetLoaded, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.DatasetLoadedEvent); ok {
			log.Printf("Loaded %d rows from %s in %s", ev.Rows, ev.Source, ev.Elapsed)
		}
	})
	bus.Subscribe(events.EventTypeModelTrained, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.ModelTrainedEvent)
		if !ok {
			return
		}
		if ev.Skipped {
			log.Printf("Skipped %s: no positive examples", ev.Label)
			return
		}
		log.Printf("Trained %s (%d positives) in %s", ev.Label, ev.Positives, ev.Elapsed)
	})
	bus.Subscribe(events.EventTypeRunCompleted, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.RunCompletedEvent); ok {
			log.Printf("Run %s completed in %s: %v", ev.RunID, ev.Elapsed, ev.Metrics)
		}
	})
}

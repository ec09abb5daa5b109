package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Santander products pipeline inputs/outputs
	TrainPath  string
	TestPath   string
	OutputPath string

	// MovieLens movies pipeline inputs
	RatingsPath string
	MoviesPath  string

	// Database configuration (optional; pipelines run file-only without it)
	DatabaseURL string

	// Shared
	Seed int64
	TopK int

	// Gradient boosting hyperparameters
	BoostRounds     int
	MaxDepth        int
	MinLeaf         int
	LearningRate    float64
	FeatureFraction float64
	LagMonths       int

	// Matrix factorization hyperparameters
	MovieTopK    int
	Factors      int
	Epochs       int
	MFLearnRate  float64
	MFPenalty    float64
	HoldoutRatio float64
	SampleUserID int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Dataset paths with defaults
		TrainPath:   envOrDefault("TRAIN_PATH", "data/train_ver2.csv"),
		TestPath:    envOrDefault("TEST_PATH", "data/test_ver2.csv"),
		OutputPath:  envOrDefault("OUTPUT_PATH", "out/recommendations.csv"),
		RatingsPath: envOrDefault("RATINGS_PATH", "data/ratings.csv"),
		MoviesPath:  envOrDefault("MOVIES_PATH", "data/movies.csv"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Defaults tuned for the reference datasets
		Seed: 42,
		TopK: 5,

		BoostRounds:     60,
		MaxDepth:        4,
		MinLeaf:         20,
		LearningRate:    0.1,
		FeatureFraction: 0.9,
		LagMonths:       5,

		MovieTopK:    10,
		Factors:      32,
		Epochs:       15,
		MFLearnRate:  0.01,
		MFPenalty:    0.02,
		HoldoutRatio: 0.1,
		SampleUserID: 1,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if seed := os.Getenv("SEED"); seed != "" {
		if parsed, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Seed = parsed
		}
	}
	config.TopK = envInt("TOP_K", config.TopK)
	config.BoostRounds = envInt("BOOST_ROUNDS", config.BoostRounds)
	config.MaxDepth = envInt("MAX_DEPTH", config.MaxDepth)
	config.MinLeaf = envInt("MIN_LEAF", config.MinLeaf)
	config.LearningRate = envFloat("LEARNING_RATE", config.LearningRate)
	config.FeatureFraction = envFloat("FEATURE_FRACTION", config.FeatureFraction)
	config.LagMonths = envInt("LAG_MONTHS", config.LagMonths)
	config.MovieTopK = envInt("MOVIE_TOP_K", config.MovieTopK)
	config.Factors = envInt("MF_FACTORS", config.Factors)
	config.Epochs = envInt("MF_EPOCHS", config.Epochs)
	config.MFLearnRate = envFloat("MF_LEARNING_RATE", config.MFLearnRate)
	config.MFPenalty = envFloat("MF_PENALTY", config.MFPenalty)
	config.HoldoutRatio = envFloat("MF_HOLDOUT_RATIO", config.HoldoutRatio)
	config.SampleUserID = envInt("SAMPLE_USER_ID", config.SampleUserID)

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be positive, got %d", config.TopK)
	}
	if config.MovieTopK <= 0 {
		return nil, fmt.Errorf("MOVIE_TOP_K must be positive, got %d", config.MovieTopK)
	}
	if config.LagMonths < 1 {
		return nil, fmt.Errorf("LAG_MONTHS must be at least 1, got %d", config.LagMonths)
	}
	if config.HoldoutRatio <= 0 || config.HoldoutRatio >= 1 {
		return nil, fmt.Errorf("MF_HOLDOUT_RATIO must be in (0, 1), got %f", config.HoldoutRatio)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

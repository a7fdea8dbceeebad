package testratings

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/unirank/internal/adapters/catalog"
	"github.com/okian/unirank/pkg/logger"
)

// Constants for rating distribution profiles.
const (
	profileDivisor = 8

	profileAverage  = 0
	profileHigh     = 1
	profileLow      = 2
	profileElite    = 3
	profileVeryLow  = 4
	profileMidHigh  = 5
	profileMidLow   = 6
	profileFullSpan = 7
)

// randIntn returns a random int in [0, n) using crypto/rand.
func randIntn(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// loadCatalogImages reads the rateable image ids from the catalog file.
func loadCatalogImages(ctx context.Context, config *Config) ([]string, error) {
	source := catalog.New(config.CatalogFile)
	images, err := source.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	logger.Get().Info(ctx, "loaded catalog",
		logger.String("file", config.CatalogFile),
		logger.Int("images", len(images)))
	return images, nil
}

// generateBatches creates rating batches over the catalog images.
func generateBatches(ctx context.Context, config *Config, images []string, stats *Stats) ([][]Rating, error) {
	logger.Get().Info(ctx, "generating ratings",
		logger.Int("numRatings", config.NumRatings),
		logger.Int("batchSize", config.BatchSize))

	ratings := make([]Rating, config.NumRatings)
	for i := 0; i < config.NumRatings; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during rating generation: %w", ctx.Err())
		default:
		}
		ratings[i] = Rating{
			Index: generateVariedIndex(),
			Image: images[int(randIntn(int64(len(images))))],
		}
	}

	batches := make([][]Rating, 0, (config.NumRatings+config.BatchSize-1)/config.BatchSize)
	for start := 0; start < len(ratings); start += config.BatchSize {
		end := start + config.BatchSize
		if end > len(ratings) {
			end = len(ratings)
		}
		batches = append(batches, ratings[start:end])
	}

	stats.RatingsGenerated = len(ratings)
	logger.Get().Info(ctx, "generated ratings successfully",
		logger.Int("ratings", len(ratings)),
		logger.Int("batches", len(batches)))

	return batches, nil
}

// generateVariedIndex draws an integer rating in [1, 10] from a mix of
// audience profiles so the resulting averages cluster realistically.
func generateVariedIndex() int {
	switch randIntn(profileDivisor) {
	case profileAverage:
		// Middling opinions (4 - 7) are the most common
		return 4 + int(randIntn(4))
	case profileHigh:
		// Enthusiasts (7 - 9)
		return 7 + int(randIntn(3))
	case profileLow:
		// Critics (1 - 3)
		return 1 + int(randIntn(3))
	case profileElite:
		// Rave reviews (9 - 10), rare
		return 9 + int(randIntn(2))
	case profileVeryLow:
		// Pans (1 - 2), rare
		return 1 + int(randIntn(2))
	case profileMidHigh:
		// Mildly positive (6 - 8)
		return 6 + int(randIntn(3))
	case profileMidLow:
		// Mildly negative (2 - 4)
		return 2 + int(randIntn(3))
	case profileFullSpan:
		fallthrough
	default:
		return 1 + int(randIntn(10))
	}
}

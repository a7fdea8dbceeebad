package testratings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/unirank/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete rating load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting unirank rating test",
		logger.String("baseURL", config.BaseURL),
		logger.String("catalog", config.CatalogFile),
		logger.Int("ratings", config.NumRatings),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Announce a presence session for the duration of the test
	sessionID := uuid.New().String()
	announcePresence(ctx, config, sessionID)
	defer leavePresence(config, sessionID)

	// Step 3: Load the catalog and generate rating batches
	images, err := loadCatalogImages(ctx, config)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}

	batches, err := generateBatches(ctx, config, images, stats)
	if err != nil {
		return fmt.Errorf("rating generation failed: %w", err)
	}

	// Step 4: Submit batches concurrently
	if err := submitBatches(ctx, config, batches, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 5: Let the last persists land
	logger.Get().Info(ctx, "waiting for ratings to settle")
	time.Sleep(SettleDelay)

	// Step 6: Fetch the score document
	doc, err := getScores(ctx, config)
	if err != nil {
		return fmt.Errorf("score retrieval failed: %w", err)
	}

	// Step 7: Retrieve per-image ranks concurrently
	if _, err := retrieveRanks(ctx, config, doc, stats); err != nil {
		return fmt.Errorf("rank retrieval failed: %w", err)
	}

	// Step 8: Get leaderboard
	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 9: Verify results
	if err := verifyResults(config, doc, leaderboard, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 10: Save batches to file
	if err := saveBatchesToFile(ctx, config, batches); err != nil {
		logger.Get().Warn(ctx, "failed to save batches to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// announcePresence pings the presence endpoint with the test session.
func announcePresence(ctx context.Context, config *Config, sessionID string) {
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/presence?action=ping&userId=%s", config.BaseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		logger.Get().Warn(ctx, "presence ping failed", logger.Error(err))
		return
	}
	if err := resp.Body.Close(); err != nil {
		logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
	}
	logger.Get().Info(ctx, "presence session announced", logger.String("sessionID", sessionID))
}

// leavePresence withdraws the test session.
func leavePresence(config *Config, sessionID string) {
	ctx := context.Background()
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/presence?action=leave&userId=%s", config.BaseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		logger.Get().Warn(ctx, "presence leave failed", logger.Error(err))
		return
	}
	if err := resp.Body.Close(); err != nil {
		logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
	}
}

// saveBatchesToFile saves the generated batches to a JSON file.
func saveBatchesToFile(ctx context.Context, config *Config, batches [][]Rating) error {
	if len(batches) == 0 {
		return fmt.Errorf("no batches to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_ratings_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// One batch per line keeps the file replayable with curl
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, batch := range batches {
		jsonData, err := marshalJSON(batch)
		if err != nil {
			return fmt.Errorf("failed to marshal batch %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write batch %d: %w", i, err)
		}

		if i < len(batches)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "batches saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var applyRate, ratingsPerSecond float64

	submitted := stats.RatingsApplied + stats.RatingsSkipped
	if submitted > 0 {
		applyRate = float64(stats.RatingsApplied) / float64(submitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		ratingsPerSecond = float64(submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("ratingsGenerated", stats.RatingsGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("ratingsApplied", stats.RatingsApplied),
		logger.Int("ratingsSkipped", stats.RatingsSkipped),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("applyRate", applyRate),
		logger.Float64("ratingsPerSecond", ratingsPerSecond))
}

package testratings

import "time"

// Config holds configuration for the rating load test.
type Config struct {
	BaseURL     string        // Base URL of the service
	CatalogFile string        // Catalog file listing rateable image ids
	NumRatings  int           // Number of ratings to generate
	BatchSize   int           // Ratings per submitted batch
	TopN        int           // Number of top entries to fetch
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated batches
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Rating is a single rating submission.
type Rating struct {
	Index int    `json:"index"`
	Image string `json:"image"`
}

// BatchAck is the response from a batch submission.
type BatchAck struct {
	Message string `json:"message"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
}

// Entry is a leaderboard or rank entry.
type Entry struct {
	Rank          int     `json:"rank"`
	Image         string  `json:"image"`
	GlobalAverage float64 `json:"global_average"`
	Ratings       int     `json:"ratings"`
}

// ScoreItem mirrors the persisted per-item record.
type ScoreItem struct {
	GlobalAverage    float64 `json:"global-average"`
	ClassicalAverage float64 `json:"classical-average"`
	Deviation        float64 `json:"deviation"`
	CurrentIndex     int     `json:"current-index"`
	Sums             []int   `json:"sums"`
}

// ScoreStats mirrors the persisted aggregate counters.
type ScoreStats struct {
	TotalItemNumber      int `json:"total-item-number"`
	TotalRatedItemNumber int `json:"total-rated-item-number"`
	TotalSumNumber       int `json:"total-sum-number"`
}

// ScoreDoc is the full score document served by the service.
type ScoreDoc struct {
	TotalStats ScoreStats            `json:"total-stats"`
	Items      map[string]*ScoreItem `json:"items"`
}

// Stats holds test statistics.
type Stats struct {
	RatingsGenerated   int
	BatchesSubmitted   int
	RatingsApplied     int
	RatingsSkipped     int
	BatchesFailed      int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers an optional YAML file and UNIRANK_-prefixed env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// CatalogFile points at the external item catalog (JSON or YAML).
	CatalogFile string `koanf:"catalog_file" validate:"required"`

	// DataFile is the path of the persisted rating ledger.
	DataFile string `koanf:"data_file" validate:"required"`

	// LockTimeoutMS bounds the wait for the exclusive store lock.
	LockTimeoutMS int `koanf:"lock_timeout_ms" validate:"gt=0"`

	// MaxBatchSize caps the number of entries accepted in one POST /ratings.
	MaxBatchSize int `koanf:"max_batch_size" validate:"gt=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gt=0"`

	// PresenceTTLSeconds is how long a session stays active after a ping.
	PresenceTTLSeconds int `koanf:"presence_ttl_s" validate:"gt=0"`

	// RatingsPerSecond and RatingsBurst throttle POST /ratings per process.
	RatingsPerSecond float64 `koanf:"ratings_per_second" validate:"gt=0"`
	RatingsBurst     int     `koanf:"ratings_burst" validate:"gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		CatalogFile:         "item-data/indexed_json.json",
		DataFile:            "data/global-index.json",
		LockTimeoutMS:       5_000,
		MaxBatchSize:        100,
		MaxLeaderboardLimit: 100,
		PresenceTTLSeconds:  15,
		RatingsPerSecond:    50,
		RatingsBurst:        100,
	}
}

// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/unirank/internal/adapters/catalog"
	repository "github.com/okian/unirank/internal/adapters/repository"
	"github.com/okian/unirank/internal/domain/allocator"
	"github.com/okian/unirank/internal/domain/average"
	"github.com/okian/unirank/internal/domain/model"
	"github.com/okian/unirank/internal/domain/presence"
	"github.com/okian/unirank/internal/domain/scorespace"
	"github.com/okian/unirank/internal/domain/types"
	"github.com/okian/unirank/pkg/logger"
	"github.com/okian/unirank/pkg/metrics"
)

// Default service configuration.
const (
	defaultCatalogFile = "item-data/indexed_json.json"
	defaultDataFile    = "data/global-index.json"
	defaultLockTimeout = 5 * time.Second
	defaultPresenceTTL = 15 * time.Second
)

// Rating bounds accepted by per-entry validation.
const (
	minRating = 1
	maxRating = 10
)

// BatchResult reports what happened to one submitted batch. Skipped entries
// are absorbed, not errors, but stay observable for callers and tests.
type BatchResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Service orchestrates batch ingestion over the rating ledger.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	alloc    *allocator.Allocator
	presence *presence.Tracker

	// Configuration
	catalogFile string
	dataFile    string
	lockTimeout time.Duration
	presenceTTL time.Duration
	rng         *rand.Rand

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalogFile sets the path of the external item catalog.
func WithCatalogFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogFile = path
		}
	}
}

// WithDataFile sets the path of the persisted ledger.
func WithDataFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataFile = path
		}
	}
}

// WithLockTimeout bounds the wait for the exclusive store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithPresenceTTL sets the activity window for the presence tracker.
func WithPresenceTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.presenceTTL = d
		}
	}
}

// WithRand sets the random source handed to the slot allocator. Tests supply
// a seeded source for reproducible placement.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore overrides the ledger store. Tests inject fakes through this.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalogFile: defaultCatalogFile,
		dataFile:    defaultDataFile,
		lockTimeout: defaultLockTimeout,
		presenceTTL: defaultPresenceTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components and verifies the catalog is
// readable. A missing catalog is fatal here: it must never silently produce
// an empty store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	if s.store == nil {
		src := catalog.New(s.catalogFile)
		ids, err := src.Items(ctx)
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "catalog loaded",
			logger.String("catalog", s.catalogFile),
			logger.Int("catalogItems", len(ids)),
		)
		s.store = repository.NewFileStore(s.dataFile, src,
			repository.WithLockTimeout(s.lockTimeout),
		)
	}

	allocOpts := []allocator.Option{}
	if s.rng != nil {
		allocOpts = append(allocOpts, allocator.WithRand(s.rng))
	}
	s.alloc = allocator.New(allocOpts...)
	s.presence = presence.New(presence.WithTTL(s.presenceTTL))

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.String("dataFile", s.dataFile),
	)
	return nil
}

// Stop shuts the service down. The store holds no background state, so this
// only flips the started flag.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

// ApplyBatch applies the ordered batch under the store's exclusive lock.
// Invalid entries are skipped without aborting the batch; a lock timeout or
// persistence failure aborts the whole batch with no effect on the ledger.
func (s *Service) ApplyBatch(ctx context.Context, batch []model.Rating) (BatchResult, error) {
	var res BatchResult

	err := s.store.Update(ctx, func(ledger *model.Ledger) error {
		for _, entry := range batch {
			rating, item, ok := s.admit(ctx, ledger, entry)
			if !ok {
				res.Skipped++
				metrics.RecordRatingSkipped()
				continue
			}

			item.Sums = append(item.Sums, rating)
			avg := average.Compute(item.Sums)

			unique, found := s.alloc.Allocate(avg.Weighted, ledger.OccupiedScores(entry.Image))
			if !found {
				// All 90,000 slots taken. Keep the duplicate rather than
				// lose the rating, but make the integrity breach loud.
				metrics.RecordAllocatorExhaustion()
				s.logger.Error(ctx, "no free unique score; storing duplicate placement",
					logger.String("image", entry.Image),
					logger.Float64("target", avg.Weighted),
				)
			}

			deviation := scorespace.Round(unique-avg.Weighted, scorespace.MaxPrecision)
			if deviation == 0 {
				deviation = 0 // normalize -0
			}

			item.GlobalAverage = unique
			item.ClassicalAverage = scorespace.Round(avg.Classical, scorespace.MaxPrecision)
			item.CurrentIndex = rating
			item.Deviation = deviation

			res.Applied++
			metrics.RecordRatingApplied()
			metrics.RecordAllocationDeviation(math.Abs(deviation))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	metrics.RecordBatch(res.Applied + res.Skipped)
	s.logger.Debug(ctx, "batch applied",
		logger.Int("applied", res.Applied),
		logger.Int("skipped", res.Skipped),
	)
	return res, nil
}

// admit validates one batch entry against the synced ledger. Ratings must be
// whole numbers in [1,10] referencing a known item; anything else is skipped.
func (s *Service) admit(ctx context.Context, ledger *model.Ledger, entry model.Rating) (int, *model.Item, bool) {
	rating := int(entry.Index)
	if float64(rating) != entry.Index || rating < minRating || rating > maxRating {
		s.logger.Debug(ctx, "skipping entry with invalid rating",
			logger.Float64("index", entry.Index),
			logger.String("image", entry.Image),
		)
		return 0, nil, false
	}
	item, ok := ledger.Items[entry.Image]
	if !ok {
		s.logger.Debug(ctx, "skipping entry for unknown item",
			logger.String("image", entry.Image),
		)
		return 0, nil, false
	}
	return rating, item, true
}

// Scores returns the full ledger for the score query, served verbatim.
func (s *Service) Scores(ctx context.Context) (*model.Ledger, error) {
	return s.store.Snapshot(ctx)
}

// TopN returns the best-scored n items. Unrated items never appear.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	ranked, err := s.ranking(ctx)
	if err != nil {
		return nil, err
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n], nil
}

// Rank returns the rank entry for a single item.
func (s *Service) Rank(ctx context.Context, image string) (types.Entry, error) {
	ranked, err := s.ranking(ctx)
	if err != nil {
		return types.Entry{}, err
	}
	for _, entry := range ranked {
		if entry.Image == image {
			return entry, nil
		}
	}
	return types.Entry{}, NewUnknownItem(image)
}

// ranking builds the strict ordering of rated items from a store snapshot.
func (s *Service) ranking(ctx context.Context) ([]types.Entry, error) {
	ledger, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]types.Entry, 0, len(ledger.Items))
	for id, item := range ledger.Items {
		if !item.Rated() {
			continue
		}
		entries = append(entries, types.Entry{
			Image:            id,
			GlobalAverage:    item.GlobalAverage,
			ClassicalAverage: item.ClassicalAverage,
			Ratings:          len(item.Sums),
		})
	}
	// Unique scores make this a strict total order; no tie-break needed.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].GlobalAverage > entries[j].GlobalAverage
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// PresencePing marks a session active and returns the active count.
func (s *Service) PresencePing(id string) int {
	count := s.presence.Ping(id)
	metrics.UpdatePresenceCount(count)
	return count
}

// PresenceLeave removes a session and returns the remaining count.
func (s *Service) PresenceLeave(id string) int {
	count := s.presence.Leave(id)
	metrics.UpdatePresenceCount(count)
	return count
}

// PresenceCount returns the number of active sessions.
func (s *Service) PresenceCount() int {
	count := s.presence.Count()
	metrics.UpdatePresenceCount(count)
	return count
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  s.started,
		"dataFile": s.dataFile,
	}

	if !s.started {
		return stats
	}

	ledger, err := s.store.Snapshot(context.Background())
	if err == nil {
		stats["totalItems"] = ledger.TotalStats.TotalItemNumber
		stats["ratedItems"] = ledger.TotalStats.TotalRatedItemNumber
		stats["totalRatings"] = ledger.TotalStats.TotalSumNumber
		metrics.UpdateStoreTotals(
			ledger.TotalStats.TotalItemNumber,
			ledger.TotalStats.TotalRatedItemNumber,
			ledger.TotalStats.TotalSumNumber,
		)
	}
	stats["activeSessions"] = s.PresenceCount()

	return stats
}

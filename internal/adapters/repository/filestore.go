package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/unirank/internal/domain/model"
	"github.com/okian/unirank/pkg/metrics"
)

// Default file store configuration.
const (
	defaultLockTimeout = 5 * time.Second
	ledgerFileMode     = 0o644
)

// FileStore keeps the ledger in a single JSON document on disk, the same
// shape the score query serves. Writers are serialized through a bounded-wait
// semaphore; persistence goes through a temp file and rename so lock-free
// readers observe either the fully-old or fully-new document, never a
// half-written one.
type FileStore struct {
	path        string
	catalog     Catalog
	lockTimeout time.Duration

	// sem is the process-wide exclusive lock over the backing file.
	// Channel-based so acquisition can respect ctx and the bounded wait.
	sem chan struct{}
}

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithLockTimeout bounds how long Update waits for the exclusive lock before
// giving up with ErrLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *FileStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewFileStore creates a FileStore backed by the document at path. The
// catalog seeds the ledger on first use and contributes newly discovered
// items on every update.
func NewFileStore(path string, catalog Catalog, opts ...Option) *FileStore {
	s := &FileStore{
		path:        path,
		catalog:     catalog,
		lockTimeout: defaultLockTimeout,
		sem:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update implements Store.
func (s *FileStore) Update(ctx context.Context, fn func(*model.Ledger) error) error {
	waitStart := time.Now()
	select {
	case s.sem <- struct{}{}:
	case <-time.After(s.lockTimeout):
		metrics.RecordLockTimeout()
		return NewLockTimeout(s.lockTimeout)
	case <-ctx.Done():
		return WrapLock(ctx.Err())
	}
	defer func() { <-s.sem }()
	metrics.RecordLockWait(float64(time.Since(waitStart).Milliseconds()))

	ledger, err := s.load(ctx)
	if err != nil {
		return err
	}

	if err := fn(ledger); err != nil {
		// Nothing persisted: the batch leaves the store exactly as it was.
		return err
	}

	ledger.RecomputeStats()

	persistStart := time.Now()
	if err := s.persist(ledger); err != nil {
		return err
	}
	metrics.RecordPersistLatency(float64(time.Since(persistStart).Milliseconds()))
	metrics.UpdateStoreTotals(
		ledger.TotalStats.TotalItemNumber,
		ledger.TotalStats.TotalRatedItemNumber,
		ledger.TotalStats.TotalSumNumber,
	)
	return nil
}

// Snapshot implements Store.
func (s *FileStore) Snapshot(ctx context.Context) (*model.Ledger, error) {
	return s.load(ctx)
}

// load reads the backing document, falling back to a catalog-initialized
// ledger when the file is absent or corrupt, and syncs in catalog ids that
// the ledger does not know yet.
func (s *FileStore) load(ctx context.Context) (*model.Ledger, error) {
	ids, err := s.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		// Absent file == never-initialized store.
		return model.NewLedger(ids), nil
	}

	var ledger model.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil || ledger.Items == nil {
		// A corrupt document is treated as absent, not as a failure.
		return model.NewLedger(ids), nil
	}

	ledger.SyncItems(ids)
	return &ledger, nil
}

// persist writes the full document to a temp file in the same directory,
// flushes it, then renames it over the live path.
func (s *FileStore) persist(ledger *model.Ledger) error {
	raw, err := json.Marshal(ledger)
	if err != nil {
		return WrapPersist(err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return WrapPersist(err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return WrapPersist(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return WrapPersist(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return WrapPersist(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return WrapPersist(err)
	}
	if err := os.Chmod(tmpName, ledgerFileMode); err != nil {
		os.Remove(tmpName)
		return WrapPersist(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return WrapPersist(err)
	}
	return nil
}

// Package repository owns the persisted rating ledger and the exclusive
// access gate that keeps it consistent under concurrent batch submissions.
package repository

import (
	"context"

	"github.com/okian/unirank/internal/domain/model"
)

// Catalog supplies the externally maintained set of rateable item ids.
type Catalog interface {
	Items(ctx context.Context) ([]string, error)
}

// Store provides access to the rating ledger.
type Store interface {
	// Update runs fn on the current ledger under the store's exclusive
	// lock: the ledger is loaded (initialized from the catalog when absent
	// or corrupt), newly discovered catalog ids are synced in, fn mutates
	// it, aggregate stats are recomputed and the whole document is
	// persisted atomically before the lock is released. If fn returns an
	// error nothing is persisted and the backing state is unchanged.
	Update(ctx context.Context, fn func(*model.Ledger) error) error

	// Snapshot returns the current ledger without taking the lock. The
	// result may be transiently stale relative to an in-flight Update but
	// is never malformed. An absent backing file yields a ledger freshly
	// initialized from the catalog.
	Snapshot(ctx context.Context) (*model.Ledger, error)
}

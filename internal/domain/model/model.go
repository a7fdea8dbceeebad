// Package model contains domain models passed between layers.
//
// JSON tags mirror the persisted ledger document, which is also the wire
// shape served verbatim by GET /scores.
package model

import "github.com/okian/unirank/internal/domain/scorespace"

// Rating is one submitted rating inside a batch. Index arrives as a JSON
// number and is kept as float64 so that fractional submissions can be
// rejected per entry instead of failing the whole batch decode.
type Rating struct {
	Index float64 `json:"index"`
	Image string  `json:"image"`
}

// Item is the aggregate record for one rateable item.
type Item struct {
	// GlobalAverage is the item's unique score in [1.0000, 10.0000];
	// 0 means the item has never been rated.
	GlobalAverage float64 `json:"global-average"`

	// ClassicalAverage is the plain mean of Sums, display only.
	ClassicalAverage float64 `json:"classical-average"`

	// Deviation is the signed distance between the assigned unique score
	// and the weighted target that produced it.
	Deviation float64 `json:"deviation"`

	// CurrentIndex is the most recently applied rating.
	CurrentIndex int `json:"current-index"`

	// Sums is the append-only rating history, one entry per rating.
	Sums []int `json:"sums"`
}

// Rated reports whether the item has ever received a rating.
func (i *Item) Rated() bool {
	return i.GlobalAverage != 0
}

// TotalStats aggregates counters across the whole ledger.
type TotalStats struct {
	TotalItemNumber      int `json:"total-item-number"`
	TotalRatedItemNumber int `json:"total-rated-item-number"`
	TotalSumNumber       int `json:"total-sum-number"`
}

// Ledger is the authoritative rating state: every known item keyed by its
// identifier, plus the aggregate counters. It is also the persisted document.
type Ledger struct {
	TotalStats TotalStats       `json:"total-stats"`
	Items      map[string]*Item `json:"items"`
}

// NewLedger creates an empty ledger with zeroed records for the given item
// identifiers.
func NewLedger(ids []string) *Ledger {
	l := &Ledger{Items: make(map[string]*Item, len(ids))}
	for _, id := range ids {
		l.Items[id] = &Item{Sums: []int{}}
	}
	l.TotalStats.TotalItemNumber = len(l.Items)
	return l
}

// SyncItems adds zeroed records for identifiers not yet present. Existing
// records are never overwritten and never removed. Returns the number of
// records added.
func (l *Ledger) SyncItems(ids []string) int {
	if l.Items == nil {
		l.Items = make(map[string]*Item, len(ids))
	}
	added := 0
	for _, id := range ids {
		if _, ok := l.Items[id]; ok {
			continue
		}
		l.Items[id] = &Item{Sums: []int{}}
		added++
	}
	l.TotalStats.TotalItemNumber = len(l.Items)
	return added
}

// RecomputeStats rebuilds the aggregate counters from the item records.
func (l *Ledger) RecomputeStats() {
	stats := TotalStats{TotalItemNumber: len(l.Items)}
	for _, item := range l.Items {
		stats.TotalSumNumber += len(item.Sums)
		if item.Rated() {
			stats.TotalRatedItemNumber++
		}
	}
	l.TotalStats = stats
}

// OccupiedScores collects the unique scores of every rated item except the
// one identified by exclude. The excluded item's slot is effectively freed
// ahead of its reallocation.
func (l *Ledger) OccupiedScores(exclude string) scorespace.Set {
	occupied := scorespace.NewSet()
	for id, item := range l.Items {
		if id == exclude || !item.Rated() {
			continue
		}
		occupied.Add(item.GlobalAverage)
	}
	return occupied
}

// Package allocator resolves score collisions: given a weighted target and
// the set of scores already assigned to other items, it finds a free value in
// the score domain, biased to stay close to the target.
//
// The search is structured but randomized. A sequential nearest-neighbor
// search would make the order of collisions fully deterministic and visually
// clustered; shuffling the candidate pool at each precision level produces an
// unpredictable but bounded-distance placement while still preferring coarser
// values (7.5) before finer ones (7.4983).
package allocator

import (
	"math/rand"

	"github.com/okian/unirank/internal/domain/scorespace"
)

// Neighborhood size: every base value is expanded by up to this many steps
// in each direction at the current precision.
const spreadSteps = 5

// Allocator finds free unique-score slots. The zero value is not usable;
// construct with New.
type Allocator struct {
	rng *rand.Rand
}

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithRand sets the random source used for candidate shuffling. Tests supply
// a seeded source for reproducible placement.
func WithRand(rng *rand.Rand) Option {
	return func(a *Allocator) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// New constructs an Allocator. Without options a time-seeded source is used.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		rng: rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // placement jitter, not security
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a value in [1.0000, 10.0000] not present in occupied,
// as close to target as the occupancy allows. The boolean is false only when
// every representable value is occupied; in that degenerate case the rounded
// target is returned even though it collides, and the caller is expected to
// log it loudly rather than fail the batch.
func (a *Allocator) Allocate(target float64, occupied scorespace.Set) (float64, bool) {
	// Exact check first: the rounded target itself may be free.
	exact := scorespace.Round(target, scorespace.MaxPrecision)
	if scorespace.InDomain(exact) && !occupied.Has(exact) {
		return exact, true
	}

	// Round 1 always works at one decimal place regardless of the target's
	// own precision: bases at ±5 steps of 0.1, tried in random order with no
	// sub-expansion.
	bases := a.neighborhood([]float64{target}, 1)
	for _, candidate := range bases {
		if !occupied.Has(candidate) {
			return candidate, true
		}
	}

	// Rounds 2-4: expand every base from the previous round by ±5 steps at
	// the new precision, pool the expansions together with the bases, then
	// try the deduplicated pool in random order. An exhausted pool becomes
	// the base set for the next, finer round.
	for precision := 2; precision <= scorespace.MaxPrecision; precision++ {
		pool := a.neighborhood(bases, precision)
		for _, candidate := range pool {
			if !occupied.Has(candidate) {
				return candidate, true
			}
		}
		bases = pool
	}

	// Systematic fallback: walk outward from the target in 0.0001 steps,
	// alternating above and below, until a free slot appears. With 90,000
	// representable values this terminates whenever any slot is free.
	step := scorespace.Step(scorespace.MaxPrecision)
	for k := 1; k <= scorespace.SlotCount; k++ {
		offset := float64(k) * step
		up := scorespace.Round(target+offset, scorespace.MaxPrecision)
		if up <= scorespace.Max && !occupied.Has(up) {
			return up, true
		}
		down := scorespace.Round(target-offset, scorespace.MaxPrecision)
		if down >= scorespace.Min && !occupied.Has(down) {
			return down, true
		}
	}

	// All 90,000 values occupied. Hand back the rounded target and let the
	// caller record the integrity warning; a duplicate beats a lost rating.
	return exact, false
}

// neighborhood expands every base by offsets -spreadSteps..+spreadSteps at
// the step size of the given precision, rounds to that precision, clips to
// the domain, deduplicates (bases themselves included) and shuffles.
func (a *Allocator) neighborhood(bases []float64, precision int) []float64 {
	step := scorespace.Step(precision)
	seen := scorespace.NewSet()
	out := make([]float64, 0, len(bases)*(2*spreadSteps+1))

	add := func(v float64) {
		v = scorespace.Round(v, precision)
		if !scorespace.InDomain(v) || seen.Has(v) {
			return
		}
		seen.Add(v)
		out = append(out, v)
	}

	for _, base := range bases {
		add(base)
		for i := 1; i <= spreadSteps; i++ {
			add(base + float64(i)*step)
			add(base - float64(i)*step)
		}
	}

	a.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

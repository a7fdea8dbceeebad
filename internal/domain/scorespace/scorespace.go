// Package scorespace defines the discrete universe of legal unique-score
// values: decimal numbers in [1.0000, 10.0000] with at most four fractional
// digits. All score comparisons in the system go through the canonical
// 4-decimal string key so that float representation noise can never make two
// equal scores look distinct.
package scorespace

import (
	"math"
	"strconv"
)

// Domain boundaries and resolution.
const (
	Min = 1.0
	Max = 10.0

	// MaxPrecision is the finest number of fractional digits a score may have.
	MaxPrecision = 4

	// SlotCount is the number of representable values strictly above Min,
	// i.e. the 0.0001-steps between 1.0000 and 10.0000.
	SlotCount = 90000
)

// Round rounds v to the given number of fractional digits.
func Round(v float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(v*pow) / pow
}

// Step returns the step size for a precision level, e.g. Step(2) == 0.01.
func Step(precision int) float64 {
	return math.Pow(10, -float64(precision))
}

// InDomain reports whether v lies inside [Min, Max].
func InDomain(v float64) bool {
	return v >= Min && v <= Max
}

// Key returns the canonical 4-decimal representation of v used for
// set membership and deduplication.
func Key(v float64) string {
	return strconv.FormatFloat(v, 'f', MaxPrecision, 64)
}

// Set is a collection of occupied score values keyed by their canonical
// 4-decimal representation.
type Set map[string]struct{}

// NewSet creates an empty occupied-score set.
func NewSet() Set {
	return make(Set)
}

// Add records v as occupied.
func (s Set) Add(v float64) {
	s[Key(v)] = struct{}{}
}

// Remove frees v. Removing an absent value is a no-op.
func (s Set) Remove(v float64) {
	delete(s, Key(v))
}

// Has reports whether v is occupied.
func (s Set) Has(v float64) bool {
	_, ok := s[Key(v)]
	return ok
}

// Len returns the number of occupied values.
func (s Set) Len() int {
	return len(s)
}

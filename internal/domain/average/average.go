// Package average computes an item's display mean and its recency-weighted
// target from the item's rating history.
package average

// Weight split between the rating history and the newest rating. A plain
// mean becomes insensitive to new input as the history grows; fixing the
// newest rating's influence at 20% keeps every rater's contribution
// meaningful regardless of how often an item has been rated before.
const (
	priorWeight  = 0.8
	latestWeight = 0.2
)

// Result carries both averages derived from one rating history.
type Result struct {
	// Classical is the plain arithmetic mean over the full history,
	// used for display only.
	Classical float64

	// Weighted is the recency-biased target fed to unique-slot allocation:
	// priorMean*0.8 + latest*0.2, or the rating itself on first rating.
	Weighted float64
}

// Compute derives both averages from sums, the item's full rating history
// *after* the newest rating has been appended; the last element is the newest
// rating. sums must be non-empty and is never mutated.
func Compute(sums []int) Result {
	n := len(sums)
	latest := sums[n-1]

	total := 0
	for _, v := range sums {
		total += v
	}
	classical := float64(total) / float64(n)

	if n == 1 {
		return Result{Classical: classical, Weighted: float64(latest)}
	}

	priorMean := float64(total-latest) / float64(n-1)
	weighted := priorMean*priorWeight + float64(latest)*latestWeight

	return Result{Classical: classical, Weighted: weighted}
}

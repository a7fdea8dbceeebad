package testratings

import (
	"fmt"
	"log"
	"sort"
	"strconv"
)

// verifyResults checks the score document and leaderboard for consistency.
func verifyResults(config *Config, doc *ScoreDoc, leaderboard []Entry, stats *Stats) error {
	log.Println("verifying results...")

	if doc.TotalStats.TotalRatedItemNumber == 0 {
		return fmt.Errorf("no rated items to verify")
	}

	if err := verifyScoreUniqueness(doc); err != nil {
		return fmt.Errorf("score uniqueness violated: %w", err)
	}
	log.Println("score uniqueness verified")

	if err := verifyAggregates(doc, stats); err != nil {
		log.Printf("aggregate consistency warning: %v", err)
	} else {
		log.Println("aggregate counters verified")
	}

	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(doc, leaderboard); err != nil {
			log.Printf("leaderboard consistency warning: %v", err)
		} else {
			log.Println("leaderboard consistency verified")
		}
	}

	displayTopItems(doc, leaderboard, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyScoreUniqueness checks that no two rated items share a global average.
// Averages are compared as fixed 4-decimal strings, the same form the service
// uses for slot occupancy.
func verifyScoreUniqueness(doc *ScoreDoc) error {
	seen := make(map[string]string, len(doc.Items))
	for image, item := range doc.Items {
		if len(item.Sums) == 0 {
			continue
		}
		key := strconv.FormatFloat(item.GlobalAverage, 'f', 4, 64)
		if other, dup := seen[key]; dup {
			return fmt.Errorf("images %s and %s share global average %s", image, other, key)
		}
		seen[key] = image
	}
	return nil
}

// verifyAggregates cross-checks the document counters against what the test
// submitted and the per-item records.
func verifyAggregates(doc *ScoreDoc, stats *Stats) error {
	ratedItems := 0
	totalSums := 0
	for image, item := range doc.Items {
		if len(item.Sums) > 0 {
			ratedItems++
		}
		totalSums += len(item.Sums)
		if len(item.Sums) > 0 && item.CurrentIndex != item.Sums[len(item.Sums)-1] {
			return fmt.Errorf("image %s current index %d does not match newest rating %d",
				image, item.CurrentIndex, item.Sums[len(item.Sums)-1])
		}
	}

	if ratedItems != doc.TotalStats.TotalRatedItemNumber {
		return fmt.Errorf("rated item counter %d does not match %d rated items",
			doc.TotalStats.TotalRatedItemNumber, ratedItems)
	}
	if totalSums != doc.TotalStats.TotalSumNumber {
		return fmt.Errorf("sum counter %d does not match %d recorded ratings",
			doc.TotalStats.TotalSumNumber, totalSums)
	}
	if stats.RatingsApplied > 0 && doc.TotalStats.TotalSumNumber < stats.RatingsApplied {
		return fmt.Errorf("sum counter %d is below the %d ratings the test applied",
			doc.TotalStats.TotalSumNumber, stats.RatingsApplied)
	}
	return nil
}

// verifyLeaderboardConsistency checks that the leaderboard matches the
// highest averages in the score document and is sorted.
func verifyLeaderboardConsistency(doc *ScoreDoc, leaderboard []Entry) error {
	best := ""
	bestScore := 0.0
	for image, item := range doc.Items {
		if len(item.Sums) == 0 {
			continue
		}
		if item.GlobalAverage > bestScore {
			bestScore = item.GlobalAverage
			best = image
		}
	}

	top := leaderboard[0]
	if top.Image != best {
		return fmt.Errorf("top leaderboard entry (%s) does not match highest scored image (%s)",
			top.Image, best)
	}
	if top.GlobalAverage != bestScore {
		return fmt.Errorf("top leaderboard score (%.4f) does not match highest average (%.4f)",
			top.GlobalAverage, bestScore)
	}

	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].GlobalAverage > leaderboard[i-1].GlobalAverage {
			return fmt.Errorf("leaderboard not properly sorted: entry %d outscores entry %d", i, i-1)
		}
	}

	return nil
}

// displayTopItems shows the best-rated items from the document and leaderboard.
func displayTopItems(doc *ScoreDoc, leaderboard []Entry, verbose bool) {
	type scored struct {
		image string
		item  *ScoreItem
	}
	rated := make([]scored, 0, len(doc.Items))
	for image, item := range doc.Items {
		if len(item.Sums) > 0 {
			rated = append(rated, scored{image: image, item: item})
		}
	}
	sort.Slice(rated, func(i, j int) bool {
		return rated[i].item.GlobalAverage > rated[j].item.GlobalAverage
	})

	topN := 10
	if len(rated) < topN {
		topN = len(rated)
	}

	log.Printf("top %d items by global average:", topN)
	for i := 0; i < topN; i++ {
		log.Printf("   %d. %s - %.4f (%d ratings)",
			i+1, rated[i].image, rated[i].item.GlobalAverage, len(rated[i].item.Sums))
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("top %d leaderboard entries:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s - %.4f (%d ratings)", entry.Rank, entry.Image, entry.GlobalAverage, entry.Ratings)
		}
	}

	if verbose && len(rated) > 0 {
		sum := 0.0
		for _, s := range rated {
			sum += s.item.GlobalAverage
		}
		log.Printf(`average statistics:
   Mean: %.4f
   Maximum: %.4f
   Minimum: %.4f
`, sum/float64(len(rated)), rated[0].item.GlobalAverage, rated[len(rated)-1].item.GlobalAverage)
	}
}

package testratings

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// retrieveRanks retrieves rank entries for all rated images concurrently.
func retrieveRanks(ctx context.Context, config *Config, doc *ScoreDoc, stats *Stats) ([]Entry, error) {
	rated := make([]string, 0, len(doc.Items))
	for image, item := range doc.Items {
		if len(item.Sums) > 0 {
			rated = append(rated, image)
		}
	}

	log.Printf("retrieving ranks for %d rated images with %d workers...", len(rated), config.Workers)

	client := newHTTPClient(config.Timeout)

	ranks := make([]Entry, len(rated))
	var (
		retrieved int64
		failed    int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < config.Workers; i++ {
		group.Go(func() error {
			for index := range indexChan {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				default:
				}

				image := rated[index]
				entry, err := retrieveSingleRank(groupCtx, client, config.BaseURL, image)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Printf("failed to get rank for %s: %v", image, err)
					}
					continue
				}
				ranks[index] = entry
				atomic.AddInt64(&retrieved, 1)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer close(indexChan)
		for i := range rated {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case indexChan <- i:
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("rank retrieval aborted: %w", err)
	}

	// Filter out empty entries (failed retrievals)
	validRanks := make([]Entry, 0, len(ranks))
	for _, entry := range ranks {
		if entry.Image != "" {
			validRanks = append(validRanks, entry)
		}
	}

	stats.RanksRetrieved = len(validRanks)

	log.Printf(`rank retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validRanks), int(atomic.LoadInt64(&failed)))

	return validRanks, nil
}

// retrieveSingleRank retrieves the rank entry for a single image.
func retrieveSingleRank(ctx context.Context, client *HTTPClient, baseURL, image string) (Entry, error) {
	url := fmt.Sprintf("%s/rank/%s", baseURL, image)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getScores retrieves the full score document.
func getScores(ctx context.Context, config *Config) (*ScoreDoc, error) {
	log.Println("fetching score document...")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/scores")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var doc ScoreDoc
	if err := unmarshalJSON(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse score document: %w", err)
	}

	log.Printf("retrieved score document with %d items (%d rated)",
		doc.TotalStats.TotalItemNumber, doc.TotalStats.TotalRatedItemNumber)

	return &doc, nil
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}

package testratings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitBatches submits rating batches concurrently using a worker group.
func submitBatches(ctx context.Context, config *Config, batches [][]Rating, stats *Stats) error {
	log.Printf("submitting %d batches with %d workers...", len(batches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ratings"

	var (
		submitted int64
		applied   int64
		skipped   int64
		failed    int64
	)

	batchChan := make(chan []Rating, config.Workers*WorkerChannelMultiplier)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < config.Workers; i++ {
		group.Go(func() error {
			for batch := range batchChan {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				default:
				}

				ack, err := submitSingleBatch(groupCtx, client, url, batch)
				atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Printf("batch submission failed: %v", err)
					}
					continue
				}
				atomic.AddInt64(&applied, int64(ack.Applied))
				atomic.AddInt64(&skipped, int64(ack.Skipped))

				total := atomic.LoadInt64(&submitted)
				if config.Verbose || total%100 == 0 {
					log.Printf("progress: %d/%d batches (applied: %d, skipped: %d, failed: %d)",
						total, len(batches),
						atomic.LoadInt64(&applied), atomic.LoadInt64(&skipped), atomic.LoadInt64(&failed))
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case batchChan <- batch:
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("batch submission aborted: %w", err)
	}

	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RatingsApplied = int(atomic.LoadInt64(&applied))
	stats.RatingsSkipped = int(atomic.LoadInt64(&skipped))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`batch submission completed:
   Batches: %d
   Applied: %d
   Skipped: %d
   Failed: %d
`, stats.BatchesSubmitted, stats.RatingsApplied, stats.RatingsSkipped, stats.BatchesFailed)

	return nil
}

// submitSingleBatch submits one batch and parses the ack.
// Retries once on 429 or 503 since the service sheds load under pressure.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch []Rating) (BatchAck, error) {
	for attempt := 0; ; attempt++ {
		resp, err := client.Post(ctx, url, batch)
		if err != nil {
			return BatchAck{}, fmt.Errorf("request failed: %w", err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return BatchAck{}, fmt.Errorf("failed to read response: %w", err)
		}

		switch resp.StatusCode {
		case StatusOK:
			var ack BatchAck
			if err := unmarshalJSON(body, &ack); err != nil {
				return BatchAck{}, fmt.Errorf("failed to parse ack: %w", err)
			}
			return ack, nil
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			if attempt == 0 {
				select {
				case <-ctx.Done():
					return BatchAck{}, ctx.Err()
				case <-time.After(time.Second):
				}
				continue
			}
			return BatchAck{}, fmt.Errorf("HTTP %d after retry: %s", resp.StatusCode, string(body))
		default:
			return BatchAck{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
	}
}

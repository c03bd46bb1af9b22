package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"billpay-sim/internal/api"
)

// ReturnClient delivers the return transfer to an origin app: a POST of
// the result payload to the intent's return URL.
type ReturnClient struct {
	httpClient *http.Client
	maxRetries int
	verbose    bool
}

// NewReturnClient creates a return-transfer client.
func NewReturnClient(timeout time.Duration, maxRetries int, verbose bool) *ReturnClient {
	return &ReturnClient{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		verbose:    verbose,
	}
}

// Deliver posts the result to the origin's return URL with retries.
func (c *ReturnClient) Deliver(returnURL string, result api.Result) error {
	payloadBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result payload: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			time.Sleep(backoff)

			if c.verbose {
				log.Printf("[RETURN] Retry attempt %d for txn %s", attempt, result.TxnID)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		req, err := http.NewRequestWithContext(ctx, "POST", returnURL, bytes.NewBuffer(payloadBytes))
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to create return request: %v", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("return request failed: %v", err)
			continue
		}

		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if c.verbose {
				log.Printf("[RETURN] Delivered %s result for txn %s", result.Status, result.TxnID)
			}
			return nil
		}

		lastErr = fmt.Errorf("return endpoint returned status %d", resp.StatusCode)
	}

	log.Printf("[RETURN] Failed to deliver result after %d attempts: %s (last error: %v)",
		c.maxRetries+1, result.TxnID, lastErr)
	return lastErr
}

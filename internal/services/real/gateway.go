package real

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"billpay-sim/internal/api"
)

// RealGateway is the HTTP transfer channel to an external upi-gateway
// service.
type RealGateway struct {
	baseURL    string
	httpClient *http.Client
	verbose    bool
}

// NewRealGateway creates a transfer channel against the gateway's base
// URL.
func NewRealGateway(baseURL string, verbose bool) *RealGateway {
	return &RealGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		verbose: verbose,
	}
}

// SendIntent posts the intent to the gateway.
func (r *RealGateway) SendIntent(intent api.Intent) error {
	requestBody, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %v", err)
	}

	url := r.baseURL + "/intents"
	resp, err := r.httpClient.Post(url, "application/json", bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to call gateway at %s: %v", url, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errorResp api.ErrorResponse
		if json.Unmarshal(responseBody, &errorResp) == nil && errorResp.Error != "" {
			return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var accepted api.IntentAccepted
	if err := json.Unmarshal(responseBody, &accepted); err != nil {
		return fmt.Errorf("failed to parse gateway response: %v", err)
	}

	if r.verbose {
		log.Printf("[REAL] Gateway: intent accepted with txn id %s", accepted.TxnID)
	}
	return nil
}

// CollectResult fetches the one-time result for a transaction. A 404
// means no result yet and is reported as pending, not as an error.
func (r *RealGateway) CollectResult(txnID string) (*api.Result, error) {
	url := fmt.Sprintf("%s/results/%s", r.baseURL, txnID)
	resp, err := r.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to call gateway at %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var result api.Result
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result payload: %v", err)
	}

	if r.verbose {
		log.Printf("[REAL] Gateway: collected %s result for %s", result.Status, txnID)
	}
	return &result, nil
}

package mock

import (
	"log"
	"sync"
	"time"

	"billpay-sim/internal/api"
	"billpay-sim/internal/handoff"
	"billpay-sim/internal/payment"
)

// MockGateway is an in-process transfer channel for standalone mode.
// It accepts intents and, after a short delay, plays the part of the
// payer by classifying a configured auto-VPA, so the full handoff loop
// can run without an external gateway process.
type MockGateway struct {
	mu      sync.Mutex
	results map[string]*api.Result
	autoVPA string
	delay   time.Duration
	verbose bool
}

// NewMockGateway creates a standalone transfer channel. autoVPA is the
// payer id the simulated user "enters" (the QR-scan shortcut uses
// "success@upi").
func NewMockGateway(autoVPA string, delay time.Duration, verbose bool) *MockGateway {
	return &MockGateway{
		results: make(map[string]*api.Result),
		autoVPA: autoVPA,
		delay:   delay,
		verbose: verbose,
	}
}

// SendIntent accepts an intent and schedules its simulated outcome.
func (m *MockGateway) SendIntent(intent api.Intent) error {
	if err := intent.Validate(); err != nil {
		return err
	}

	if m.verbose {
		log.Printf("[MOCK] Gateway: accepted intent %s (%.2f)", intent.TxnID, intent.Amount)
	}

	go func() {
		time.Sleep(m.delay)

		outcome := payment.Classify(m.autoVPA, payment.GatewayMessages)
		result := &api.Result{
			Status:  outcome.Status,
			TxnID:   intent.TxnID,
			RefID:   handoff.NewRefID(),
			Amount:  intent.Amount,
			Message: outcome.Message,
		}

		m.mu.Lock()
		m.results[intent.TxnID] = result
		m.mu.Unlock()

		if m.verbose {
			log.Printf("[MOCK] Gateway: stored %s result for %s", result.Status, intent.TxnID)
		}
	}()

	return nil
}

// CollectResult retrieves and erases the result for a transaction.
// (nil, nil) means the simulated payer has not finished yet.
func (m *MockGateway) CollectResult(txnID string) (*api.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, exists := m.results[txnID]
	if !exists {
		return nil, nil
	}
	delete(m.results, txnID)
	return result, nil
}

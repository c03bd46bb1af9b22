package gateway

import (
	"errors"
	"log"
	"sync"
	"time"

	"billpay-sim/internal/api"
	"billpay-sim/internal/handoff"
)

// IntentState tracks one handoff through the gateway.
type IntentState string

const (
	// IntentPending: accepted, no payment attempt yet.
	IntentPending IntentState = "PENDING"
	// IntentProcessing: a simulation is in flight; further attempts are
	// rejected until it finishes.
	IntentProcessing IntentState = "PROCESSING"
	// IntentCompleted: a result is stored, awaiting one-time collection.
	IntentCompleted IntentState = "COMPLETED"
)

var (
	ErrIntentNotFound  = errors.New("intent not found")
	ErrAlreadyExists   = errors.New("intent already exists")
	ErrProcessing      = errors.New("a payment attempt is already in progress")
	ErrAlreadyComplete = errors.New("intent already has a result")
	ErrNoResult        = errors.New("no result available")
)

// StoredIntent is one live handoff held by the gateway.
type StoredIntent struct {
	Intent      api.Intent
	State       IntentState
	Result      *api.Result
	SubmittedAt time.Time

	timer *handoff.ReturnTimer
}

// MemoryStorage provides thread-safe in-memory storage for live
// handoffs, keyed by transaction id. Results are erased on collection;
// abandoned handoffs age out.
type MemoryStorage struct {
	mu      sync.Mutex
	intents map[string]*StoredIntent
	maxAge  time.Duration
	verbose bool
}

// NewMemoryStorage creates a new in-memory storage instance.
func NewMemoryStorage(maxAge time.Duration, verbose bool) *MemoryStorage {
	return &MemoryStorage{
		intents: make(map[string]*StoredIntent),
		maxAge:  maxAge,
		verbose: verbose,
	}
}

// Store accepts a new intent. Duplicate transaction ids are rejected.
func (ms *MemoryStorage) Store(intent api.Intent) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.intents[intent.TxnID]; exists {
		return ErrAlreadyExists
	}

	ms.intents[intent.TxnID] = &StoredIntent{
		Intent:      intent,
		State:       IntentPending,
		SubmittedAt: time.Now(),
	}

	if ms.verbose {
		log.Printf("[STORAGE] Stored intent %s (%s, %.2f)",
			intent.TxnID, intent.MerchantID, intent.Amount)
	}
	return nil
}

// Get returns a snapshot of a stored intent.
func (ms *MemoryStorage) Get(txnID string) (StoredIntent, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	si, exists := ms.intents[txnID]
	if !exists {
		return StoredIntent{}, ErrIntentNotFound
	}
	return *si, nil
}

// BeginProcessing moves an intent into the PROCESSING state. This is
// the re-entrancy guard: a second concurrent attempt fails here.
func (ms *MemoryStorage) BeginProcessing(txnID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	si, exists := ms.intents[txnID]
	if !exists {
		return ErrIntentNotFound
	}

	switch si.State {
	case IntentProcessing:
		return ErrProcessing
	case IntentCompleted:
		return ErrAlreadyComplete
	}

	si.State = IntentProcessing
	return nil
}

// AbortProcessing returns a PROCESSING intent to PENDING so the payer
// can retry after an internal error.
func (ms *MemoryStorage) AbortProcessing(txnID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if si, exists := ms.intents[txnID]; exists && si.State == IntentProcessing {
		si.State = IntentPending
	}
}

// Complete stores the result for an intent and arms its return timer.
func (ms *MemoryStorage) Complete(txnID string, result api.Result, timer *handoff.ReturnTimer) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	si, exists := ms.intents[txnID]
	if !exists {
		return ErrIntentNotFound
	}
	if si.State == IntentCompleted {
		return ErrAlreadyComplete
	}

	si.State = IntentCompleted
	si.Result = &result
	si.timer = timer

	if ms.verbose {
		log.Printf("[STORAGE] Completed intent %s with %s", txnID, result.Status)
	}
	return nil
}

// Collect retrieves and erases the result for a transaction, returning
// the result and the intent's return URL. Collection is one-time: the
// whole handoff is deleted and its return timer cancelled, so a second
// collection (reload, back-navigation, racing timer) finds nothing.
func (ms *MemoryStorage) Collect(txnID string) (*api.Result, string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	si, exists := ms.intents[txnID]
	if !exists {
		return nil, "", ErrIntentNotFound
	}
	if si.State != IntentCompleted || si.Result == nil {
		return nil, "", ErrNoResult
	}

	delete(ms.intents, txnID)
	if si.timer != nil {
		si.timer.Cancel()
	}

	if ms.verbose {
		log.Printf("[STORAGE] Collected and erased result for %s", txnID)
	}
	return si.Result, si.Intent.ReturnURL, nil
}

// Cleanup removes handoffs older than the configured max age.
func (ms *MemoryStorage) Cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	removed := 0
	for txnID, si := range ms.intents {
		if now.Sub(si.SubmittedAt) > ms.maxAge {
			if si.timer != nil {
				si.timer.Cancel()
			}
			delete(ms.intents, txnID)
			removed++
		}
	}

	if ms.verbose && removed > 0 {
		log.Printf("[STORAGE] Cleanup completed: removed %d expired handoffs", removed)
	}
}

// StartCleanupRoutine starts a background routine that ages out
// abandoned handoffs.
func (ms *MemoryStorage) StartCleanupRoutine(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			ms.Cleanup()
		}
	}()

	if ms.verbose {
		log.Printf("[STORAGE] Started cleanup routine (interval: %v)", interval)
	}
}

// Stats returns total and completed handoff counts.
func (ms *MemoryStorage) Stats() (int, int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	total := len(ms.intents)
	completed := 0
	for _, si := range ms.intents {
		if si.State == IntentCompleted {
			completed++
		}
	}
	return total, completed
}

package handoff

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"billpay-sim/internal/api"
	"billpay-sim/internal/models"
)

// State of the handoff protocol for one session.
type State string

const (
	StateIdle           State = "IDLE"
	StateIntentCreated  State = "INTENT_CREATED"
	StateAwaitingResult State = "AWAITING_RESULT"
	StateResultConsumed State = "RESULT_CONSUMED"
)

var (
	// ErrIntentOutstanding is returned when a second intent is created
	// while one is still awaiting its result. Concurrent intents per
	// session are not supported.
	ErrIntentOutstanding = errors.New("an intent is already outstanding")
	// ErrBillAlreadyPaid rejects handoff for a terminal bill.
	ErrBillAlreadyPaid = errors.New("bill is already paid")
)

// TransferChannel is the fallible collaborator that carries the intent
// out to the payment simulator and the result back. Implementations
// live in internal/services.
type TransferChannel interface {
	// SendIntent transfers a pending-payment intent to the simulator.
	SendIntent(intent api.Intent) error
	// CollectResult retrieves and erases the result for a transaction.
	// (nil, nil) means no result yet.
	CollectResult(txnID string) (*api.Result, error)
}

// Session is the per-session handoff state machine:
// IDLE -> INTENT_CREATED -> AWAITING_RESULT -> RESULT_CONSUMED -> IDLE.
type Session struct {
	mu      sync.Mutex
	state   State
	intent  *api.Intent
	channel TransferChannel
	verbose bool
}

// NewSession creates an idle handoff session over a transfer channel.
func NewSession(channel TransferChannel, verbose bool) *Session {
	return &Session{state: StateIdle, channel: channel, verbose: verbose}
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CreateIntent builds the pending-payment intent for a bill and
// transfers it to the simulator. The bill must not be PAID; that is
// enforced again here even though callers check first.
func (s *Session) CreateIntent(m models.Merchant, record *models.Record, bill models.Bill, returnURL string) (api.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIntentCreated || s.state == StateAwaitingResult {
		return api.Intent{}, ErrIntentOutstanding
	}
	if bill.Status == models.BillPaid {
		return api.Intent{}, ErrBillAlreadyPaid
	}

	intent := api.Intent{
		MerchantID:     m.Code,
		MerchantName:   m.Name,
		Amount:         bill.Amount,
		Description:    fmt.Sprintf("Bill %s for %s", bill.ID, record.Name),
		ReturnURL:      returnURL,
		TxnID:          NewTxnID(m.Code),
		ConsumerNumber: record.ConsumerNumber,
		Section:        record.Section,
		BillID:         bill.ID,
	}
	if err := intent.Validate(); err != nil {
		return api.Intent{}, err
	}

	s.state = StateIntentCreated
	if err := s.channel.SendIntent(intent); err != nil {
		s.state = StateIdle
		return api.Intent{}, fmt.Errorf("failed to transfer intent: %v", err)
	}

	s.intent = &intent
	s.state = StateAwaitingResult

	if s.verbose {
		log.Printf("[HANDOFF] Intent %s transferred, awaiting result", intent.TxnID)
	}
	return intent, nil
}

// Outstanding returns the intent currently awaiting a result, or nil.
func (s *Session) Outstanding() *api.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingResult {
		return nil
	}
	intent := *s.intent
	return &intent
}

// AwaitResult checks the transfer channel for the outstanding intent's
// result. A consumed result is erased from the channel before being
// returned together with the intent it answers, so re-checking after a
// reload cannot re-apply it. A missing, corrupted or mismatched payload
// is reported as pending, never as a failure: the origin falls back to
// its entry view.
func (s *Session) AwaitResult() (*api.Result, *api.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingResult {
		return nil, nil, false
	}

	result, err := s.channel.CollectResult(s.intent.TxnID)
	if err != nil {
		if s.verbose {
			log.Printf("[HANDOFF] Transfer channel unusable, treating as pending: %v", err)
		}
		return nil, nil, false
	}
	if result == nil {
		return nil, nil, false
	}
	if err := result.Validate(); err != nil || result.TxnID != s.intent.TxnID {
		if s.verbose {
			log.Printf("[HANDOFF] Discarding unusable result for txn %s", s.intent.TxnID)
		}
		return nil, nil, false
	}

	intent := *s.intent
	s.state = StateResultConsumed
	s.intent = nil

	if s.verbose {
		log.Printf("[HANDOFF] Consumed %s result for txn %s", result.Status, result.TxnID)
	}
	return result, &intent, true
}

// AcceptDelivered consumes a result pushed by the simulator's return
// transfer instead of pulled from the channel. The payload must match
// the outstanding intent; anything else is dropped.
func (s *Session) AcceptDelivered(result api.Result) (*api.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingResult {
		return nil, false
	}
	if err := result.Validate(); err != nil || result.TxnID != s.intent.TxnID {
		if s.verbose {
			log.Printf("[HANDOFF] Dropping delivered result that does not match txn %s", s.intent.TxnID)
		}
		return nil, false
	}

	intent := *s.intent
	s.state = StateResultConsumed
	s.intent = nil

	if s.verbose {
		log.Printf("[HANDOFF] Consumed delivered %s result for txn %s", result.Status, result.TxnID)
	}
	return &intent, true
}

// Finish closes the RESULT_CONSUMED state back to IDLE once the result
// has been reconciled and rendered.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateResultConsumed {
		s.state = StateIdle
	}
}

// Abandon drops an outstanding intent without consuming anything, e.g.
// when the user navigates back before the countdown elapses. No bill is
// mutated on this path.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intent = nil
	s.state = StateIdle
}

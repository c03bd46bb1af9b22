package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"billpay-sim/internal/api"
	"billpay-sim/internal/handoff"
	"billpay-sim/internal/payment"
)

// Handler contains dependencies for the gateway's HTTP handlers.
type Handler struct {
	storage          *MemoryStorage
	simulator        *payment.Simulator
	returns          *ReturnClient
	returnCountdown  time.Duration
	defaultReturnURL string
	verbose          bool
}

// NewHandler creates a new handler instance.
func NewHandler(storage *MemoryStorage, simulator *payment.Simulator, returns *ReturnClient,
	returnCountdown time.Duration, defaultReturnURL string, verbose bool) *Handler {
	return &Handler{
		storage:          storage,
		simulator:        simulator,
		returns:          returns,
		returnCountdown:  returnCountdown,
		defaultReturnURL: defaultReturnURL,
		verbose:          verbose,
	}
}

// SubmitIntentHandler handles POST /intents: the inbound half of the
// handoff. The payload is validated before anything is stored; the
// gateway never trusts the transfer channel blindly.
func (h *Handler) SubmitIntentHandler(w http.ResponseWriter, r *http.Request) {
	var intent api.Intent

	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := intent.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.Store(intent); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			h.writeError(w, http.StatusConflict, "Transaction ID already exists")
		} else {
			h.writeError(w, http.StatusInternalServerError, "Failed to store intent")
		}
		return
	}

	if h.verbose {
		log.Printf("[API] Intent accepted: %s", intent.TxnID)
	}
	h.writeJSON(w, http.StatusOK, api.IntentAccepted{TxnID: intent.TxnID})
}

// GetIntentHandler handles GET /intents/{txn_id}: the payment page's
// view of a pending handoff.
func (h *Handler) GetIntentHandler(w http.ResponseWriter, r *http.Request) {
	txnID := mux.Vars(r)["txn_id"]

	si, err := h.storage.Get(txnID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "No intent found for given transaction")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"intent": si.Intent,
		"state":  si.State,
	})
}

// PayHandler handles POST /intents/{txn_id}/pay: runs the simulation
// for a payer VPA. While the simulation is in flight the intent is in
// PROCESSING and a second submission is rejected.
func (h *Handler) PayHandler(w http.ResponseWriter, r *http.Request) {
	txnID := mux.Vars(r)["txn_id"]

	var req api.GatewayPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	si, err := h.storage.Get(txnID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "No intent found for given transaction")
		return
	}

	if err := h.storage.BeginProcessing(txnID); err != nil {
		switch {
		case errors.Is(err, ErrProcessing):
			h.writeError(w, http.StatusConflict, "A payment attempt is already in progress")
		case errors.Is(err, ErrAlreadyComplete):
			h.writeError(w, http.StatusConflict, "Payment already has a result")
		default:
			h.writeError(w, http.StatusNotFound, "No intent found for given transaction")
		}
		return
	}

	outcome := h.simulator.Simulate(r.Context(), req.VPA)
	if outcome.Status == api.StatusCancelled {
		// Caller went away mid-simulation; let them retry.
		h.storage.AbortProcessing(txnID)
		return
	}

	result := api.Result{
		Status:  outcome.Status,
		TxnID:   txnID,
		RefID:   handoff.NewRefID(),
		Amount:  si.Intent.Amount,
		Message: outcome.Message,
	}

	timer := handoff.AfterCountdown(h.returnCountdown, func() {
		h.deliverReturn(txnID)
	})

	if err := h.storage.Complete(txnID, result, timer); err != nil {
		timer.Cancel()
		h.writeError(w, http.StatusConflict, "Payment already has a result")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CancelHandler handles POST /intents/{txn_id}/cancel: the user backed
// out before paying. Produces a CANCELLED result and returns control to
// the origin immediately.
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	txnID := mux.Vars(r)["txn_id"]

	result := api.Result{
		Status:  api.StatusCancelled,
		TxnID:   txnID,
		Message: "Payment was cancelled by user.",
	}

	if err := h.storage.Complete(txnID, result, nil); err != nil {
		if errors.Is(err, ErrAlreadyComplete) {
			h.writeError(w, http.StatusConflict, "Payment already has a result")
		} else {
			h.writeError(w, http.StatusNotFound, "No intent found for given transaction")
		}
		return
	}

	go h.deliverReturn(txnID)

	h.writeJSON(w, http.StatusOK, result)
}

// CollectResultHandler handles GET /results/{txn_id}: one-time result
// collection by the origin. A second collection finds nothing.
func (h *Handler) CollectResultHandler(w http.ResponseWriter, r *http.Request) {
	txnID := mux.Vars(r)["txn_id"]

	result, _, err := h.storage.Collect(txnID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "No result found for given transaction")
		return
	}

	if h.verbose {
		log.Printf("[API] Result collected: %s (%s)", txnID, result.Status)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HealthHandler handles GET /health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	total, completed := h.storage.Stats()

	status := map[string]interface{}{
		"status":             "healthy",
		"handoffs_live":      total,
		"handoffs_completed": completed,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	}
	h.writeJSON(w, http.StatusOK, status)
}

// deliverReturn pushes a completed result back to the origin app. The
// collect is one-time, so if the origin already pulled the result this
// is a no-op.
func (h *Handler) deliverReturn(txnID string) {
	result, returnURL, err := h.storage.Collect(txnID)
	if err != nil {
		return
	}

	if returnURL == "" {
		returnURL = h.defaultReturnURL
	}
	if returnURL == "" {
		log.Printf("[RETURN] No return URL for txn %s, dropping result", txnID)
		return
	}

	if err := h.returns.Deliver(returnURL, *result); err != nil {
		log.Printf("[RETURN] Failed to deliver result for txn %s: %v", txnID, err)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to write JSON response: %v", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	if h.verbose {
		log.Printf("[API] Error %d: %s", status, message)
	}
	h.writeJSON(w, status, api.ErrorResponse{Error: message})
}

package payment

import (
	"context"
	"log"
	"strings"
	"time"

	"billpay-sim/internal/api"
)

// Outcome is a classified payment attempt.
type Outcome struct {
	Status  string
	Message string
}

// Messages selects the user-facing wording for one payment surface.
type Messages struct {
	Success    string
	Failure    string
	InvalidVPA string
	Cancelled  string
}

// GatewayMessages is the wording shown on the shared gateway.
var GatewayMessages = Messages{
	Success:    "Your payment has been processed successfully.",
	Failure:    "Payment authorization failed. Please try again.",
	InvalidVPA: "Invalid UPI ID.",
	Cancelled:  "Payment was cancelled by user.",
}

// PortalMessages returns the wording for an origin portal. The challan
// portal clears challans rather than marking bills paid.
func PortalMessages(billLabel string) Messages {
	success := "Payment captured. Your bill is marked as paid."
	if billLabel == "challan" {
		success = "Payment captured. Your challan has been cleared."
	}
	return Messages{
		Success:    success,
		Failure:    "UPI authorization failed. Please try again.",
		InvalidVPA: "Invalid UPI ID.",
		Cancelled:  "Payment was cancelled by user.",
	}
}

// Classify applies the deterministic outcome rule to a payer VPA. The
// VPA must contain an "@" separator; without one the attempt fails with
// the invalid-id message regardless of the substring rules. Otherwise a
// VPA containing "fail" (case-insensitive) fails and anything else,
// including "success" VPAs, succeeds.
func Classify(vpa string, msgs Messages) Outcome {
	trimmed := strings.TrimSpace(vpa)
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return Outcome{Status: api.StatusFailure, Message: msgs.InvalidVPA}
	}
	if strings.Contains(strings.ToLower(trimmed), "fail") {
		return Outcome{Status: api.StatusFailure, Message: msgs.Failure}
	}
	return Outcome{Status: api.StatusSuccess, Message: msgs.Success}
}

// Simulator classifies payment attempts after an artificial settlement
// delay. The delay magnitude is cosmetic; correctness lives in Classify.
type Simulator struct {
	delay   time.Duration
	msgs    Messages
	verbose bool
}

// NewSimulator creates a simulator with a fixed processing delay.
func NewSimulator(delay time.Duration, msgs Messages, verbose bool) *Simulator {
	return &Simulator{delay: delay, msgs: msgs, verbose: verbose}
}

// Simulate blocks for the processing delay, then classifies the VPA.
// Cancelling the context abandons the attempt with a CANCELLED outcome;
// nothing may be mutated on that path.
func (s *Simulator) Simulate(ctx context.Context, vpa string) Outcome {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return Outcome{Status: api.StatusCancelled, Message: s.msgs.Cancelled}
		}
	}

	outcome := Classify(vpa, s.msgs)
	if s.verbose {
		log.Printf("[SIMULATOR] Classified attempt as %s", outcome.Status)
	}
	return outcome
}

package payment

import (
	"context"
	"testing"
	"time"

	"billpay-sim/internal/api"
)

func TestClassify(t *testing.T) {
	msgs := GatewayMessages

	cases := []struct {
		vpa     string
		status  string
		message string
	}{
		{"success@upi", api.StatusSuccess, msgs.Success},
		{"anil.kumar@okaxis", api.StatusSuccess, msgs.Success},
		{"  user@upi  ", api.StatusSuccess, msgs.Success},
		{"fail@upi", api.StatusFailure, msgs.Failure},
		{"FAIL@UPI", api.StatusFailure, msgs.Failure},
		{"willfailnow@bank", api.StatusFailure, msgs.Failure},
		// No "@" is an invalid id regardless of the substring rules.
		{"failure", api.StatusFailure, msgs.InvalidVPA},
		{"success", api.StatusFailure, msgs.InvalidVPA},
		{"", api.StatusFailure, msgs.InvalidVPA},
		{"   ", api.StatusFailure, msgs.InvalidVPA},
	}

	for _, c := range cases {
		got := Classify(c.vpa, msgs)
		if got.Status != c.status {
			t.Errorf("Classify(%q) status = %s, want %s", c.vpa, got.Status, c.status)
		}
		if got.Message != c.message {
			t.Errorf("Classify(%q) message = %q, want %q", c.vpa, got.Message, c.message)
		}
	}
}

func TestPortalMessages(t *testing.T) {
	bill := PortalMessages("bill")
	if bill.Success != "Payment captured. Your bill is marked as paid." {
		t.Errorf("unexpected bill success message %q", bill.Success)
	}

	challan := PortalMessages("challan")
	if challan.Success != "Payment captured. Your challan has been cleared." {
		t.Errorf("unexpected challan success message %q", challan.Success)
	}
}

func TestSimulateClassifiesAfterDelay(t *testing.T) {
	s := NewSimulator(5*time.Millisecond, GatewayMessages, false)

	outcome := s.Simulate(context.Background(), "success@upi")
	if outcome.Status != api.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", outcome.Status)
	}
}

func TestSimulateCancelledContext(t *testing.T) {
	s := NewSimulator(10*time.Second, GatewayMessages, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan Outcome, 1)
	go func() { done <- s.Simulate(ctx, "success@upi") }()

	select {
	case outcome := <-done:
		if outcome.Status != api.StatusCancelled {
			t.Errorf("expected CANCELLED, got %s", outcome.Status)
		}
		if outcome.Message != GatewayMessages.Cancelled {
			t.Errorf("unexpected message %q", outcome.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("simulate did not honor the cancelled context")
	}
}

func TestSimulateZeroDelaySkipsWait(t *testing.T) {
	s := NewSimulator(0, GatewayMessages, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Without a delay there is nothing to interrupt.
	outcome := s.Simulate(ctx, "fail@upi")
	if outcome.Status != api.StatusFailure {
		t.Errorf("expected FAILURE, got %s", outcome.Status)
	}
}

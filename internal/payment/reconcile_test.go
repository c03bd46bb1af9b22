package payment

import (
	"os"
	"path/filepath"
	"testing"

	"billpay-sim/internal/api"
	"billpay-sim/internal/models"
	"billpay-sim/internal/store"
)

func reconcileStore(t *testing.T) *store.Store {
	t.Helper()

	data := `[
  {
    "consumerNumber": "1234567890123",
    "section": "Kollam",
    "name": "Anil Kumar",
    "bills": [
      {"id": "KSEB-2025-07-0012", "billAmount": 1240.5, "dueDate": "2025-08-15", "penalty": 0, "status": "PENDING"}
    ]
  }
]`
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}

	st, err := store.Open(path, false)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st
}

func TestApplySuccessMarksPaid(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: api.StatusSuccess, TxnID: "kseb-1", RefID: "REFABCDEF01", Amount: 1240.5}
	bill, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if bill.Status != models.BillPaid {
		t.Errorf("expected PAID, got %s", bill.Status)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: api.StatusSuccess, TxnID: "kseb-1"}
	if _, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	bill, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false)
	if err != nil {
		t.Fatalf("second apply should be a no-op, got %v", err)
	}
	if bill.Status != models.BillPaid {
		t.Errorf("expected PAID, got %s", bill.Status)
	}
}

func TestApplyFailureLeavesBillPending(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: api.StatusFailure, TxnID: "kseb-1", Message: "declined"}
	bill, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if bill.Status != models.BillPending {
		t.Errorf("a FAILURE result must not change the bill, got %s", bill.Status)
	}

	rec, err := st.Lookup("1234567890123", "Kollam")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rec.Bills[0].Status != models.BillPending {
		t.Error("store must be untouched by a FAILURE result")
	}
}

func TestApplyCancelledLeavesBillPending(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: api.StatusCancelled, TxnID: "kseb-1"}
	bill, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if bill.Status != models.BillPending {
		t.Errorf("a CANCELLED result must not change the bill, got %s", bill.Status)
	}
}

func TestApplyRejectsInvalidResult(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: "BOGUS", TxnID: "kseb-1"}
	if _, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false); err == nil {
		t.Error("expected an error for an unknown result status")
	}

	res = api.Result{Status: api.StatusSuccess}
	if _, err := Apply(st, res, "1234567890123", "Kollam", "KSEB-2025-07-0012", false); err == nil {
		t.Error("expected an error for a result without a transaction id")
	}
}

func TestApplyUnknownBill(t *testing.T) {
	st := reconcileStore(t)

	res := api.Result{Status: api.StatusSuccess, TxnID: "kseb-1"}
	if _, err := Apply(st, res, "1234567890123", "Kollam", "NO-SUCH-BILL", false); err == nil {
		t.Error("expected an error for an unknown bill id")
	}
}

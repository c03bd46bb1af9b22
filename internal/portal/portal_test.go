package portal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"billpay-sim/internal/api"
	"billpay-sim/internal/captcha"
	"billpay-sim/internal/config"
	"billpay-sim/internal/handoff"
	"billpay-sim/internal/lookup"
	"billpay-sim/internal/models"
	"billpay-sim/internal/services/mock"
)

// stubCaptcha accepts exactly one answer so tests can pass the gate
// deterministically.
type stubCaptcha struct {
	answer string
}

func (s stubCaptcha) Issue() captcha.Challenge {
	return captcha.Challenge{ID: "stub-challenge", SVG: "<svg/>"}
}

func (s stubCaptcha) Validate(id, claimed string) bool {
	return claimed == s.answer
}

const portalTestData = `[
  {
    "consumerNumber": "1234567890123",
    "section": "Kollam",
    "name": "Anil Kumar",
    "address": "Chinnakada, Kollam",
    "bills": [
      {"id": "KSEB-2025-07-0012", "billAmount": 1240.5, "dueDate": "2025-08-15", "penalty": 0, "status": "PENDING"},
      {"id": "KSEB-2025-06-0012", "billAmount": 1105.0, "dueDate": "2025-07-15", "penalty": 35.0, "status": "PAID"}
    ]
  },
  {
    "consumerNumber": "9876543210987",
    "section": "Thiruvananthapuram",
    "name": "Meera Nair",
    "bills": [
      {"id": "KSEB-2025-07-0487", "billAmount": 2310.75, "dueDate": "2025-08-20", "penalty": 0, "status": "PENDING"}
    ]
  }
]`

func newTestPortal(t *testing.T, autoVPA string) *Portal {
	t.Helper()

	dataPath := filepath.Join(t.TempDir(), "kseb.json")
	if err := os.WriteFile(dataPath, []byte(portalTestData), 0o644); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}

	cfg := &config.ParsedPortalConfig{}
	cfg.Gateway.URL = "http://localhost:3002"
	cfg.ReturnBaseURL = "http://localhost:3001"
	cfg.Merchants = []models.Merchant{{
		Code:       "kseb",
		Name:       "KSEB",
		IDLength:   13,
		BillLabel:  "bill",
		QRTemplate: "upi://pay?pa=kseb@upi&pn=KSEB&am={amount}",
		DataFile:   dataPath,
	}}
	cfg.SessionMaxAge = time.Hour

	channel := mock.NewMockGateway(autoVPA, 0, false)
	p, err := newPortal(cfg, channel, stubCaptcha{answer: "OK"})
	if err != nil {
		t.Fatalf("failed to build portal: %v", err)
	}
	return p
}

func fetchInput(captchaValue string) lookup.Input {
	return lookup.Input{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		CaptchaID:      "stub-challenge",
		CaptchaValue:   captchaValue,
	}
}

func TestFetchBill(t *testing.T) {
	p := newTestPortal(t, "success@upi")

	resp, err := p.FetchBill("kseb", fetchInput("OK"))
	if err != nil {
		t.Fatalf("fetch bill failed: %v", err)
	}
	if resp.Status != api.StatusOK {
		t.Fatalf("expected OK, got %s", resp.Status)
	}
	if resp.Consumer == nil || resp.Consumer.Name != "Anil Kumar" {
		t.Errorf("unexpected consumer %+v", resp.Consumer)
	}
	if resp.SelectedBillID != "KSEB-2025-07-0012" {
		t.Errorf("expected the pending bill pre-selected, got %q", resp.SelectedBillID)
	}
	if resp.QRLabel != "upi://pay?pa=kseb@upi&pn=KSEB&am=1240.5" {
		t.Errorf("unexpected QR label %q", resp.QRLabel)
	}
}

func TestFetchBillWrongCaptcha(t *testing.T) {
	p := newTestPortal(t, "success@upi")

	resp, err := p.FetchBill("kseb", fetchInput("NOPE"))
	if err != nil {
		t.Fatalf("fetch bill failed: %v", err)
	}
	if resp.Status != api.StatusCaptchaInvalid {
		t.Errorf("expected CAPTCHA_INVALID, got %s", resp.Status)
	}
	if resp.Consumer != nil {
		t.Error("no consumer data may leak past the captcha gate")
	}
}

func TestFetchBillUnknownMerchant(t *testing.T) {
	p := newTestPortal(t, "success@upi")

	if _, err := p.FetchBill("bsnl", fetchInput("OK")); err != ErrUnknownMerchant {
		t.Errorf("expected ErrUnknownMerchant, got %v", err)
	}
}

func TestSections(t *testing.T) {
	p := newTestPortal(t, "success@upi")

	sections, err := p.Sections("kseb")
	if err != nil {
		t.Fatalf("sections failed: %v", err)
	}
	if len(sections) != 2 || sections[0] != "Kollam" || sections[1] != "Thiruvananthapuram" {
		t.Errorf("unexpected sections %v", sections)
	}
}

func payRequest(vpa string) api.PayRequest {
	return api.PayRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
		VPA:            vpa,
	}
}

func TestPayDirectSuccess(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	resp, err := p.PayDirect(context.Background(), session, "kseb", payRequest("success@upi"))
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if resp.Status != api.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s: %s", resp.Status, resp.Message)
	}
	if resp.Message != "Payment captured. Your bill is marked as paid." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if !strings.HasPrefix(resp.TxnID, "kseb-") || !strings.HasPrefix(resp.RefID, "REF") {
		t.Errorf("unexpected identifiers %q / %q", resp.TxnID, resp.RefID)
	}
	if resp.Bill == nil || resp.Bill.Status != models.BillPaid {
		t.Errorf("expected the bill PAID, got %+v", resp.Bill)
	}

	rec, err := p.stores["kseb"].Lookup("1234567890123", "Kollam")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rec.FindBill("KSEB-2025-07-0012").Status != models.BillPaid {
		t.Error("payment must persist to the store")
	}
}

func TestPayDirectFailureLeavesPending(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	resp, err := p.PayDirect(context.Background(), session, "kseb", payRequest("fail@upi"))
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if resp.Status != api.StatusFailure {
		t.Fatalf("expected FAILURE, got %s", resp.Status)
	}
	if resp.Message != "UPI authorization failed. Please try again." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Bill == nil || resp.Bill.Status != models.BillPending {
		t.Errorf("bill must stay PENDING, got %+v", resp.Bill)
	}
}

func TestPayDirectInvalidVPA(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	resp, err := p.PayDirect(context.Background(), session, "kseb", payRequest("no-handle"))
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if resp.Status != api.StatusFailure || resp.Message != "Invalid UPI ID." {
		t.Errorf("unexpected response %s / %q", resp.Status, resp.Message)
	}
}

func TestPayDirectRejectsPaidBill(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	if _, err := p.PayDirect(context.Background(), session, "kseb", payRequest("success@upi")); err != nil {
		t.Fatalf("first pay failed: %v", err)
	}

	resp, err := p.PayDirect(context.Background(), session, "kseb", payRequest("success@upi"))
	if err != nil {
		t.Fatalf("second pay failed: %v", err)
	}
	if resp.Status != api.StatusInvalidBill || resp.Message != "Bill is already paid." {
		t.Errorf("unexpected response %s / %q", resp.Status, resp.Message)
	}
}

func TestPayDirectUnknownConsumer(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	req := payRequest("success@upi")
	req.ConsumerNumber = "0000000000000"
	resp, err := p.PayDirect(context.Background(), session, "kseb", req)
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if resp.Status != api.StatusInvalidConsumer {
		t.Errorf("expected INVALID_CONSUMER, got %s", resp.Status)
	}
}

func awaitReturn(t *testing.T, p *Portal, session *Session) api.ReturnResponse {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := p.CheckReturn(session, "kseb")
		if err != nil {
			t.Fatalf("check return failed: %v", err)
		}
		if resp.Status != api.StatusPending {
			return resp
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no return arrived in time")
	return api.ReturnResponse{}
}

func TestCheckoutRoundTrip(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	req := api.CheckoutRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
	}
	resp, err := p.Checkout(session, "kseb", req)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Status != api.StatusOK {
		t.Fatalf("expected OK, got %s: %s", resp.Status, resp.Message)
	}
	if !strings.HasPrefix(resp.TxnID, "kseb-") {
		t.Errorf("unexpected txn id %q", resp.TxnID)
	}
	if resp.GatewayURL != "http://localhost:3002/intents/"+resp.TxnID {
		t.Errorf("unexpected gateway url %q", resp.GatewayURL)
	}
	if session.Handoff.State() != handoff.StateAwaitingResult {
		t.Errorf("expected AWAITING_RESULT, got %s", session.Handoff.State())
	}

	ret := awaitReturn(t, p, session)
	if ret.Status != api.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s: %s", ret.Status, ret.Message)
	}
	if ret.TxnID != resp.TxnID {
		t.Errorf("return answers the wrong txn: %q vs %q", ret.TxnID, resp.TxnID)
	}
	if ret.Bill == nil || ret.Bill.Status != models.BillPaid {
		t.Errorf("expected the bill PAID after reconciliation, got %+v", ret.Bill)
	}
	if session.Handoff.State() != handoff.StateIdle {
		t.Errorf("handoff should close back to IDLE, got %s", session.Handoff.State())
	}

	rec, err := p.stores["kseb"].Lookup("1234567890123", "Kollam")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rec.FindBill("KSEB-2025-07-0012").Status != models.BillPaid {
		t.Error("reconciled payment must persist to the store")
	}
}

func TestCheckoutFailureOutcomeLeavesPending(t *testing.T) {
	p := newTestPortal(t, "fail@upi")
	session := p.Sessions().GetOrCreate("")

	req := api.CheckoutRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
	}
	if _, err := p.Checkout(session, "kseb", req); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	ret := awaitReturn(t, p, session)
	if ret.Status != api.StatusFailure {
		t.Fatalf("expected FAILURE, got %s", ret.Status)
	}
	if ret.Bill == nil || ret.Bill.Status != models.BillPending {
		t.Errorf("bill must stay PENDING on failure, got %+v", ret.Bill)
	}
}

func TestCheckoutRejectsSecondIntent(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	req := api.CheckoutRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
	}
	if _, err := p.Checkout(session, "kseb", req); err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	resp, err := p.Checkout(session, "kseb", req)
	if err != nil {
		t.Fatalf("second checkout failed: %v", err)
	}
	if resp.Status != api.StatusFailure || resp.Message != "A payment is already in progress." {
		t.Errorf("unexpected response %s / %q", resp.Status, resp.Message)
	}
}

func TestCheckReturnWithoutHandoff(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	resp, err := p.CheckReturn(session, "kseb")
	if err != nil {
		t.Fatalf("check return failed: %v", err)
	}
	if resp.Status != api.StatusPending || resp.Message != "No payment information found." {
		t.Errorf("unexpected response %s / %q", resp.Status, resp.Message)
	}
}

func TestAcceptReturn(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	req := api.CheckoutRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
	}
	resp, err := p.Checkout(session, "kseb", req)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// A pushed result for some other transaction is dropped.
	ret, err := p.AcceptReturn(session, "kseb", api.Result{Status: api.StatusSuccess, TxnID: "other"})
	if err != nil {
		t.Fatalf("accept return failed: %v", err)
	}
	if ret.Status != api.StatusPending {
		t.Errorf("mismatched push should stay pending, got %s", ret.Status)
	}

	ret, err = p.AcceptReturn(session, "kseb", api.Result{
		Status: api.StatusSuccess,
		TxnID:  resp.TxnID,
		RefID:  "REFABCDEF01",
		Amount: 1240.5,
	})
	if err != nil {
		t.Fatalf("accept return failed: %v", err)
	}
	if ret.Status != api.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", ret.Status)
	}
	if ret.Bill == nil || ret.Bill.Status != models.BillPaid {
		t.Errorf("expected the bill PAID, got %+v", ret.Bill)
	}
}

func TestSessionManagerFindByTxn(t *testing.T) {
	p := newTestPortal(t, "success@upi")
	session := p.Sessions().GetOrCreate("")

	req := api.CheckoutRequest{
		ConsumerNumber: "1234567890123",
		Section:        "Kollam",
		BillID:         "KSEB-2025-07-0012",
	}
	resp, err := p.Checkout(session, "kseb", req)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if found := p.Sessions().FindByTxn(resp.TxnID); found == nil || found.ID != session.ID {
		t.Error("FindByTxn should locate the session awaiting the txn")
	}
	if found := p.Sessions().FindByTxn("missing"); found != nil {
		t.Error("FindByTxn should return nil for unknown txns")
	}
}

func TestSessionReuse(t *testing.T) {
	p := newTestPortal(t, "success@upi")

	first := p.Sessions().GetOrCreate("")
	same := p.Sessions().GetOrCreate(first.ID)
	if same.ID != first.ID {
		t.Error("known id should return the existing session")
	}

	other := p.Sessions().GetOrCreate("unknown-id")
	if other.ID == first.ID || other.ID == "unknown-id" {
		t.Errorf("unknown id should mint a fresh session, got %q", other.ID)
	}
}

package api

import (
	"fmt"
	"net/url"
	"strings"

	"billpay-sim/internal/models"
)

// Portal API models. Field names mirror the browser clients, which
// predate this service.

type SectionsResponse struct {
	Sections []string `json:"sections"`
}

type CaptchaResponse struct {
	CaptchaID string `json:"captchaId"`
	SVG       string `json:"svg"`
}

type MerchantsResponse struct {
	Merchants []models.Merchant `json:"merchants"`
}

type BillRequest struct {
	ConsumerNumber string `json:"consumerNumber"`
	Section        string `json:"section"`
	CaptchaID      string `json:"captchaId"`
	CaptchaValue   string `json:"captchaValue"`
}

type BillResponse struct {
	Status         string         `json:"status"`
	Message        string         `json:"message,omitempty"`
	Consumer       *models.Record `json:"consumer,omitempty"`
	SelectedBillID string         `json:"selectedBillId,omitempty"`
	QRLabel        string         `json:"qrLabel,omitempty"`
}

type PayRequest struct {
	ConsumerNumber string `json:"consumerNumber"`
	Section        string `json:"section"`
	BillID         string `json:"billId"`
	VPA            string `json:"vpa"`
}

type PayResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	TxnID   string       `json:"txnId,omitempty"`
	RefID   string       `json:"refId,omitempty"`
	Bill    *models.Bill `json:"bill,omitempty"`
}

type CheckoutRequest struct {
	ConsumerNumber string `json:"consumerNumber"`
	Section        string `json:"section"`
	BillID         string `json:"billId"`
}

type CheckoutResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	TxnID      string `json:"txnId,omitempty"`
	GatewayURL string `json:"gatewayUrl,omitempty"`
}

type ReturnRequest struct {
	TxnID string `json:"txnId"`
}

type ReturnResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	TxnID   string       `json:"txnId,omitempty"`
	RefID   string       `json:"refId,omitempty"`
	Bill    *models.Bill `json:"bill,omitempty"`
}

// Gateway boundary payloads. This is the transfer contract both sides
// validate independently; neither end trusts the channel blindly.

// Intent is the outbound payment request an origin app hands to the
// gateway. It is read exactly once by the gateway and never mutated.
type Intent struct {
	MerchantID     string  `json:"merchant_id"`
	MerchantName   string  `json:"merchant_name"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	ReturnURL      string  `json:"return_url"`
	TxnID          string  `json:"txn_id"`
	ConsumerNumber string  `json:"consumer_number"`
	Section        string  `json:"section"`
	BillID         string  `json:"bill_id"`
}

// Validate checks an intent on either side of the handoff.
func (i *Intent) Validate() error {
	if i.MerchantID == "" {
		return fmt.Errorf("merchant_id is required")
	}
	if i.TxnID == "" {
		return fmt.Errorf("txn_id is required")
	}
	if i.Amount < 0 {
		return fmt.Errorf("amount must be non-negative")
	}
	if i.BillID == "" {
		return fmt.Errorf("bill_id is required")
	}
	if i.ReturnURL != "" {
		u, err := url.Parse(i.ReturnURL)
		if err != nil {
			return fmt.Errorf("return_url must be a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("return_url must use HTTP or HTTPS")
		}
	}
	return nil
}

// Result is the inbound payment outcome handed back from the gateway.
// It is consumed exactly once by reconciliation and then discarded.
type Result struct {
	Status  string  `json:"status"`
	TxnID   string  `json:"txn_id"`
	RefID   string  `json:"ref_id"`
	Amount  float64 `json:"amount"`
	Message string  `json:"message"`
}

// Validate checks a result payload before it is consumed.
func (r *Result) Validate() error {
	switch r.Status {
	case StatusSuccess, StatusFailure, StatusCancelled:
	default:
		return fmt.Errorf("unknown result status %q", r.Status)
	}
	if strings.TrimSpace(r.TxnID) == "" {
		return fmt.Errorf("txn_id is required")
	}
	return nil
}

// Gateway service request/response bodies.

type IntentAccepted struct {
	TxnID string `json:"txn_id"`
}

type GatewayPayRequest struct {
	VPA string `json:"vpa"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

package models

import "fmt"

// BillStatus is the payment state of a single bill.
type BillStatus string

const (
	BillPending BillStatus = "PENDING"
	BillPaid    BillStatus = "PAID"
)

// Bill is a single payable obligation owned by a Record.
type Bill struct {
	ID      string     `json:"id"`
	Amount  float64    `json:"billAmount"`
	DueDate string     `json:"dueDate"`
	Penalty float64    `json:"penalty"`
	Status  BillStatus `json:"status"`
}

// Record is a consumer or challan-holder account. Identity is the
// (ConsumerNumber, Section) tuple, not any single field.
//
// Older data files carry a single flat bill on the record itself instead
// of a bills array; Normalized folds those into a synthetic Bill.
type Record struct {
	ConsumerNumber string `json:"consumerNumber"`
	Section        string `json:"section"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	Bills          []Bill `json:"bills,omitempty"`

	// Legacy flat-bill fields, present only in pre-bills data files.
	LegacyAmount  *float64   `json:"billAmount,omitempty"`
	LegacyDueDate string     `json:"dueDate,omitempty"`
	LegacyPenalty float64    `json:"penalty,omitempty"`
	LegacyStatus  BillStatus `json:"status,omitempty"`
}

// Key returns the identifier tuple as a single comparable string.
func (r *Record) Key() string {
	return r.ConsumerNumber + "|" + r.Section
}

// Normalized returns a copy of the record in bills-array form. A legacy
// flat record is wrapped into a single synthetic bill with a
// deterministic id. A record with neither bills nor a legacy amount is
// returned unchanged so callers can tell it has nothing to pay.
func (r Record) Normalized() Record {
	if len(r.Bills) > 0 || r.LegacyAmount == nil {
		return r
	}

	var amount float64
	if r.LegacyAmount != nil {
		amount = *r.LegacyAmount
	}

	status := r.LegacyStatus
	if status == "" {
		status = BillPending
	}

	r.Bills = []Bill{{
		ID:      fmt.Sprintf("BILL-%s-1", r.ConsumerNumber),
		Amount:  amount,
		DueDate: r.LegacyDueDate,
		Penalty: r.LegacyPenalty,
		Status:  status,
	}}

	r.LegacyAmount = nil
	r.LegacyDueDate = ""
	r.LegacyPenalty = 0
	r.LegacyStatus = ""

	return r
}

// FindBill returns the bill with the given id, or nil.
func (r *Record) FindBill(billID string) *Bill {
	for i := range r.Bills {
		if r.Bills[i].ID == billID {
			return &r.Bills[i]
		}
	}
	return nil
}

// DefaultBill returns the bill the UI should pre-select: the first
// PENDING bill if one exists, otherwise the first bill overall.
func (r *Record) DefaultBill() *Bill {
	for i := range r.Bills {
		if r.Bills[i].Status == BillPending {
			return &r.Bills[i]
		}
	}
	if len(r.Bills) > 0 {
		return &r.Bills[0]
	}
	return nil
}

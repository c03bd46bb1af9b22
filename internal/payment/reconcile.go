package payment

import (
	"fmt"
	"log"

	"billpay-sim/internal/api"
	"billpay-sim/internal/models"
	"billpay-sim/internal/store"
)

// Apply reconciles a payment result into the owning bill. A SUCCESS
// result transitions the bill PENDING to PAID; applying it to an
// already-PAID bill is a no-op. Any other status leaves the bill
// unchanged and only reports its current state. This is the single
// path through which bill status ever changes.
func Apply(st *store.Store, res api.Result, consumerNumber, section, billID string, verbose bool) (*models.Bill, error) {
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to reconcile invalid result: %v", err)
	}

	if res.Status != api.StatusSuccess {
		record, err := st.Lookup(consumerNumber, section)
		if err != nil {
			return nil, err
		}
		bill := record.FindBill(billID)
		if bill == nil {
			return nil, store.ErrBillNotFound
		}
		current := *bill
		return &current, nil
	}

	bill, err := st.MarkPaid(consumerNumber, section, billID)
	if err != nil {
		return nil, err
	}

	if verbose {
		log.Printf("[RECONCILE] Applied %s for txn %s to bill %s", res.Status, res.TxnID, billID)
	}
	return bill, nil
}

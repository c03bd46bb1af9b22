package handoff

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTxnID generates a merchant-prefixed transaction id from the
// current millisecond timestamp, e.g. "KSEB-1735689600123".
func NewTxnID(merchantCode string) string {
	return fmt.Sprintf("%s-%d", merchantCode, time.Now().UnixMilli())
}

// NewRefID generates a random payment reference, e.g. "REF1A2B3C4D".
func NewRefID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "REF" + strings.ToUpper(raw[:8])
}

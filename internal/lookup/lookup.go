package lookup

import (
	"errors"
	"log"
	"strings"

	"billpay-sim/internal/api"
	"billpay-sim/internal/models"
	"billpay-sim/internal/store"
)

// CaptchaValidator is the part of the captcha service the lookup flow
// consumes.
type CaptchaValidator interface {
	Validate(id, claimed string) bool
}

// Input is the raw user-entered search form.
type Input struct {
	ConsumerNumber string
	Section        string
	CaptchaID      string
	CaptchaValue   string
}

// Flow is the captcha-gated bill/challan lookup for one merchant.
type Flow struct {
	merchant models.Merchant
	store    *store.Store
	captcha  CaptchaValidator
	verbose  bool
}

// NewFlow wires a lookup flow for a merchant descriptor.
func NewFlow(merchant models.Merchant, st *store.Store, cap CaptchaValidator, verbose bool) *Flow {
	return &Flow{merchant: merchant, store: st, captcha: cap, verbose: verbose}
}

// Fetch validates the input fail-fast and resolves the record. Each
// failure maps to a distinct status; none are conflated. The captcha
// challenge is consumed on a correct answer even if a later step fails,
// so callers must issue a fresh challenge on any non-OK status. The
// returned error is reserved for infrastructure failures (unreadable
// store), never for user mistakes.
func (f *Flow) Fetch(in Input) (*models.Record, string, error) {
	number := strings.TrimSpace(in.ConsumerNumber)

	if !f.merchant.ValidIdentifier(number) {
		return nil, api.StatusInvalidFormat, nil
	}
	if in.Section == "" {
		return nil, api.StatusMissingSection, nil
	}
	if strings.TrimSpace(in.CaptchaValue) == "" {
		return nil, api.StatusMissingCaptcha, nil
	}
	if !f.captcha.Validate(in.CaptchaID, in.CaptchaValue) {
		return nil, api.StatusCaptchaInvalid, nil
	}

	record, err := f.store.Lookup(number, in.Section)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, api.StatusInvalidConsumer, nil
		}
		return nil, "", err
	}

	if len(record.Bills) == 0 {
		return nil, api.StatusNoBills, nil
	}

	if f.verbose {
		log.Printf("[LOOKUP] %s: resolved %s/%s with %d bills",
			f.merchant.Code, number, in.Section, len(record.Bills))
	}
	return record, api.StatusOK, nil
}

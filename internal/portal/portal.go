package portal

import (
	"context"
	"errors"
	"fmt"
	"log"

	"billpay-sim/internal/api"
	"billpay-sim/internal/captcha"
	"billpay-sim/internal/config"
	"billpay-sim/internal/handoff"
	"billpay-sim/internal/lookup"
	"billpay-sim/internal/models"
	"billpay-sim/internal/payment"
	"billpay-sim/internal/store"
)

// captchaService is what the portal needs from the captcha component.
type captchaService interface {
	Issue() captcha.Challenge
	Validate(id, claimed string) bool
}

// Portal hosts the bill-presentment flows for every configured
// merchant: captcha-gated lookup, direct in-flow payment, and the
// checkout handoff to the payment gateway with its return
// reconciliation.
type Portal struct {
	merchants  []models.Merchant
	byCode     map[string]models.Merchant
	stores     map[string]*store.Store
	flows      map[string]*lookup.Flow
	simulators map[string]*payment.Simulator

	captcha  captchaService
	sessions *SessionManager

	returnBaseURL string
	gatewayURL    string
	verbose       bool
}

// ErrUnknownMerchant is returned for a merchant code not in the
// configuration.
var ErrUnknownMerchant = errors.New("unknown merchant")

// New wires a portal from configuration: one record store and lookup
// flow per merchant, a shared captcha service and session registry, and
// the transfer channel to the simulator.
func New(cfg *config.ParsedPortalConfig, channel handoff.TransferChannel) (*Portal, error) {
	svc := captcha.NewService(cfg.CaptchaTTL, cfg.Server.Verbose)
	svc.StartCleanupRoutine(cfg.CaptchaCleanupInterval)

	p, err := newPortal(cfg, channel, svc)
	if err != nil {
		return nil, err
	}
	p.sessions.StartCleanupRoutine(cfg.SessionCleanupInterval)
	return p, nil
}

func newPortal(cfg *config.ParsedPortalConfig, channel handoff.TransferChannel, cap captchaService) (*Portal, error) {
	p := &Portal{
		merchants:     cfg.Merchants,
		byCode:        make(map[string]models.Merchant),
		stores:        make(map[string]*store.Store),
		flows:         make(map[string]*lookup.Flow),
		simulators:    make(map[string]*payment.Simulator),
		captcha:       cap,
		returnBaseURL: cfg.ReturnBaseURL,
		gatewayURL:    cfg.Gateway.URL,
		verbose:       cfg.Server.Verbose,
	}
	p.sessions = NewSessionManager(channel, cfg.SessionMaxAge, cfg.Server.Verbose)

	for _, m := range cfg.Merchants {
		st, err := store.Open(m.DataFile, cfg.Server.Verbose)
		if err != nil {
			return nil, fmt.Errorf("merchant %s: %v", m.Code, err)
		}
		p.byCode[m.Code] = m
		p.stores[m.Code] = st
		p.flows[m.Code] = lookup.NewFlow(m, st, p.captcha, cfg.Server.Verbose)
		p.simulators[m.Code] = payment.NewSimulator(
			cfg.ProcessingDelay, payment.PortalMessages(m.BillLabel), cfg.Server.Verbose)
	}

	return p, nil
}

// Merchants returns the configured merchant descriptors.
func (p *Portal) Merchants() []models.Merchant {
	return p.merchants
}

// Merchant resolves a merchant code.
func (p *Portal) Merchant(code string) (models.Merchant, bool) {
	m, ok := p.byCode[code]
	return m, ok
}

// Sessions exposes the session registry.
func (p *Portal) Sessions() *SessionManager {
	return p.sessions
}

// Sections lists the distinct section values in a merchant's store.
func (p *Portal) Sections(code string) ([]string, error) {
	st, ok := p.stores[code]
	if !ok {
		return nil, ErrUnknownMerchant
	}
	return st.Sections()
}

// IssueCaptcha issues a fresh challenge.
func (p *Portal) IssueCaptcha() captcha.Challenge {
	return p.captcha.Issue()
}

// FetchBill runs the captcha-gated lookup and, on success, pre-selects
// the bill the UI should show.
func (p *Portal) FetchBill(code string, in lookup.Input) (api.BillResponse, error) {
	flow, ok := p.flows[code]
	if !ok {
		return api.BillResponse{}, ErrUnknownMerchant
	}

	record, status, err := flow.Fetch(in)
	if err != nil {
		return api.BillResponse{}, err
	}
	if status != api.StatusOK {
		return api.BillResponse{Status: status}, nil
	}

	m := p.byCode[code]
	resp := api.BillResponse{Status: api.StatusOK, Consumer: record}
	if bill := record.DefaultBill(); bill != nil {
		resp.SelectedBillID = bill.ID
		resp.QRLabel = m.QRLabel(bill.Amount)
	}
	return resp, nil
}

// PayDirect runs the in-flow payment path: simulate, then reconcile a
// success into the store. The session's in-flight flag rejects a second
// submission while the simulated settlement delay is running.
func (p *Portal) PayDirect(ctx context.Context, session *Session, code string, req api.PayRequest) (api.PayResponse, error) {
	st, ok := p.stores[code]
	if !ok {
		return api.PayResponse{}, ErrUnknownMerchant
	}

	record, err := st.Lookup(req.ConsumerNumber, req.Section)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.PayResponse{Status: api.StatusInvalidConsumer, Message: "Consumer not found."}, nil
		}
		return api.PayResponse{}, err
	}

	bill := record.FindBill(req.BillID)
	if bill == nil {
		return api.PayResponse{Status: api.StatusInvalidBill, Message: "Bill not found."}, nil
	}
	if bill.Status == models.BillPaid {
		return api.PayResponse{Status: api.StatusInvalidBill, Message: "Bill is already paid."}, nil
	}

	if !session.TryBeginProcessing() {
		return api.PayResponse{Status: api.StatusFailure, Message: "A payment is already being processed."}, nil
	}
	defer session.EndProcessing()

	outcome := p.simulators[code].Simulate(ctx, req.VPA)

	m := p.byCode[code]
	result := api.Result{
		Status:  outcome.Status,
		TxnID:   handoff.NewTxnID(m.Code),
		RefID:   handoff.NewRefID(),
		Amount:  bill.Amount,
		Message: outcome.Message,
	}

	updated, err := payment.Apply(st, result, req.ConsumerNumber, req.Section, req.BillID, p.verbose)
	if err != nil {
		return api.PayResponse{}, err
	}

	return api.PayResponse{
		Status:  result.Status,
		Message: result.Message,
		TxnID:   result.TxnID,
		RefID:   result.RefID,
		Bill:    updated,
	}, nil
}

// Checkout creates a payment intent for a bill and transfers it to the
// gateway, returning where the user should be sent.
func (p *Portal) Checkout(session *Session, code string, req api.CheckoutRequest) (api.CheckoutResponse, error) {
	st, ok := p.stores[code]
	if !ok {
		return api.CheckoutResponse{}, ErrUnknownMerchant
	}

	record, err := st.Lookup(req.ConsumerNumber, req.Section)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.CheckoutResponse{Status: api.StatusInvalidConsumer, Message: "Consumer not found."}, nil
		}
		return api.CheckoutResponse{}, err
	}

	bill := record.FindBill(req.BillID)
	if bill == nil {
		return api.CheckoutResponse{Status: api.StatusInvalidBill, Message: "Bill not found."}, nil
	}
	if bill.Status == models.BillPaid {
		return api.CheckoutResponse{Status: api.StatusInvalidBill, Message: "Bill is already paid."}, nil
	}

	m := p.byCode[code]
	returnURL := ""
	if p.returnBaseURL != "" {
		returnURL = fmt.Sprintf("%s/api/%s/return", p.returnBaseURL, m.Code)
	}

	intent, err := session.Handoff.CreateIntent(m, record, *bill, returnURL)
	if err != nil {
		if errors.Is(err, handoff.ErrIntentOutstanding) {
			return api.CheckoutResponse{Status: api.StatusFailure, Message: "A payment is already in progress."}, nil
		}
		if errors.Is(err, handoff.ErrBillAlreadyPaid) {
			return api.CheckoutResponse{Status: api.StatusInvalidBill, Message: "Bill is already paid."}, nil
		}
		return api.CheckoutResponse{}, err
	}

	resp := api.CheckoutResponse{Status: api.StatusOK, TxnID: intent.TxnID}
	if p.gatewayURL != "" {
		resp.GatewayURL = fmt.Sprintf("%s/intents/%s", p.gatewayURL, intent.TxnID)
	}
	return resp, nil
}

// CheckReturn polls for the outstanding handoff's result and reconciles
// it. With no result yet (or an unusable transfer payload) the response
// is PENDING and the flow is left untouched.
func (p *Portal) CheckReturn(session *Session, code string) (api.ReturnResponse, error) {
	if _, ok := p.stores[code]; !ok {
		return api.ReturnResponse{}, ErrUnknownMerchant
	}

	result, intent, ok := session.Handoff.AwaitResult()
	if !ok {
		return api.ReturnResponse{Status: api.StatusPending, Message: "No payment information found."}, nil
	}
	return p.reconcileReturn(session, code, *result, intent)
}

// AcceptReturn consumes a result pushed by the gateway's return
// transfer and reconciles it.
func (p *Portal) AcceptReturn(session *Session, code string, result api.Result) (api.ReturnResponse, error) {
	if _, ok := p.stores[code]; !ok {
		return api.ReturnResponse{}, ErrUnknownMerchant
	}

	intent, ok := session.Handoff.AcceptDelivered(result)
	if !ok {
		return api.ReturnResponse{Status: api.StatusPending, Message: "No payment information found."}, nil
	}
	return p.reconcileReturn(session, code, result, intent)
}

func (p *Portal) reconcileReturn(session *Session, code string, result api.Result, intent *api.Intent) (api.ReturnResponse, error) {
	st := p.stores[code]

	bill, err := payment.Apply(st, result, intent.ConsumerNumber, intent.Section, intent.BillID, p.verbose)
	if err != nil {
		return api.ReturnResponse{}, err
	}
	session.Handoff.Finish()

	if p.verbose {
		log.Printf("[PORTAL] %s: return for txn %s reconciled as %s", code, result.TxnID, result.Status)
	}

	return api.ReturnResponse{
		Status:  result.Status,
		Message: result.Message,
		TxnID:   result.TxnID,
		RefID:   result.RefID,
		Bill:    bill,
	}, nil
}

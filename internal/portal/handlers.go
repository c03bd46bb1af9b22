package portal

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"billpay-sim/internal/api"
	"billpay-sim/internal/lookup"
)

const sessionCookie = "bpp_session"

// Handler exposes the portal over HTTP.
type Handler struct {
	portal  *Portal
	verbose bool
}

// NewHandler creates a new handler instance.
func NewHandler(p *Portal, verbose bool) *Handler {
	return &Handler{portal: p, verbose: verbose}
}

// session resolves the caller's session from the cookie, creating one
// (and setting the cookie) on first contact.
func (h *Handler) session(c *gin.Context) *Session {
	id, _ := c.Cookie(sessionCookie)
	s := h.portal.Sessions().GetOrCreate(id)
	if s.ID != id {
		c.SetCookie(sessionCookie, s.ID, 0, "/", "", false, true)
	}
	return s
}

// merchant resolves the :merchant route parameter, writing the error
// response itself when the code is unknown.
func (h *Handler) merchant(c *gin.Context) (string, bool) {
	code := c.Param("merchant")
	if _, ok := h.portal.Merchant(code); !ok {
		c.JSON(http.StatusNotFound, api.APIError{
			Error: "Unknown merchant",
			Code:  api.ErrorCodeUnknownMerchant,
		})
		return "", false
	}
	return code, true
}

// GET /api/merchants
func (h *Handler) GetMerchants(c *gin.Context) {
	c.JSON(http.StatusOK, api.MerchantsResponse{Merchants: h.portal.Merchants()})
}

// GET /api/:merchant/sections
func (h *Handler) GetSections(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	sections, err := h.portal.Sections(code)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SectionsResponse{Sections: sections})
}

// GET /api/captcha
func (h *Handler) GetCaptcha(c *gin.Context) {
	challenge := h.portal.IssueCaptcha()
	c.JSON(http.StatusOK, api.CaptchaResponse{CaptchaID: challenge.ID, SVG: challenge.SVG})
}

// POST /api/:merchant/bill
func (h *Handler) PostBill(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	var req api.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: "Invalid request format",
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	resp, err := h.portal.FetchBill(code, lookup.Input{
		ConsumerNumber: req.ConsumerNumber,
		Section:        req.Section,
		CaptchaID:      req.CaptchaID,
		CaptchaValue:   req.CaptchaValue,
	})
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/:merchant/pay
func (h *Handler) PostPay(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	var req api.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: "Invalid request format",
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	resp, err := h.portal.PayDirect(c.Request.Context(), h.session(c), code, req)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/:merchant/checkout
func (h *Handler) PostCheckout(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	var req api.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: "Invalid request format",
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	resp, err := h.portal.Checkout(h.session(c), code, req)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/:merchant/return — browser re-entry after the handoff. Polls
// for the result and reconciles it; with nothing to consume the caller
// gets PENDING and re-initializes its entry view.
func (h *Handler) GetReturn(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	resp, err := h.portal.CheckReturn(h.session(c), code)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/:merchant/return — the gateway's return transfer. Arrives
// without a session cookie, so the session is located by transaction.
func (h *Handler) PostReturn(c *gin.Context) {
	code, ok := h.merchant(c)
	if !ok {
		return
	}

	var result api.Result
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: "Invalid payload",
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}
	if err := result.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: err.Error(),
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	session := h.portal.Sessions().FindByTxn(result.TxnID)
	if session == nil {
		// Nothing outstanding: result already consumed or session gone.
		if h.verbose {
			log.Printf("[HANDLER] No session awaiting txn %s", result.TxnID)
		}
		c.JSON(http.StatusOK, api.ReturnResponse{Status: api.StatusPending, Message: "No payment information found."})
		return
	}

	resp, err := h.portal.AcceptReturn(session, code, result)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "utility-portal",
	})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	if errors.Is(err, ErrUnknownMerchant) {
		c.JSON(http.StatusNotFound, api.APIError{
			Error: "Unknown merchant",
			Code:  api.ErrorCodeUnknownMerchant,
		})
		return
	}
	if h.verbose {
		log.Printf("[HANDLER] Internal error: %v", err)
	}
	c.JSON(http.StatusInternalServerError, api.APIError{
		Error: "Internal error",
		Code:  api.ErrorCodeInternalError,
	})
}

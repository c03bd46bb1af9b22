package api

// Lookup statuses returned by the bill endpoint. Domain failures travel
// in the status field of a 200 response; transport-level error codes are
// reserved for malformed requests.
const (
	StatusOK              = "OK"
	StatusCaptchaInvalid  = "CAPTCHA_INVALID"
	StatusInvalidConsumer = "INVALID_CONSUMER"
	StatusInvalidFormat   = "INVALID_FORMAT"
	StatusMissingSection  = "MISSING_SECTION"
	StatusMissingCaptcha  = "MISSING_CAPTCHA"
	StatusNoBills         = "NO_BILLS"
)

// Payment outcome statuses shared by the pay endpoint and the gateway
// result payload.
const (
	StatusSuccess     = "SUCCESS"
	StatusFailure     = "FAILURE"
	StatusCancelled   = "CANCELLED"
	StatusInvalidBill = "INVALID_BILL"
	// StatusPending is reported when a return is checked before any
	// result has arrived.
	StatusPending = "PENDING"
)

// APIError represents RESTful error response structure
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Common error codes
const (
	ErrorCodeInvalidRequest  = "INVALID_REQUEST"
	ErrorCodeUnknownMerchant = "UNKNOWN_MERCHANT"
	ErrorCodeUnknownIntent   = "UNKNOWN_INTENT"
	ErrorCodeIntentConflict  = "INTENT_CONFLICT"
	ErrorCodeInternalError   = "INTERNAL_ERROR"
)

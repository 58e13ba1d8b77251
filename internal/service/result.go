package service

import "fmt"

// Operation failure codes. Business-rule failures are returned as *OpError
// values, never panics; handlers translate the code into an HTTP status.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeNotBusiness      = "NOT_BUSINESS_ACCOUNT"
	CodeInvalidState     = "INVALID_STATE"
	CodeShiftFull        = "SHIFT_FULL"
	CodeDuplicateApply   = "DUPLICATE_APPLICATION"
	CodeEscrowHoldFailed = "ESCROW_HOLD_FAILED"

	CodeAlreadyClockedIn  = "ALREADY_CLOCKED_IN"
	CodeNotClockedIn      = "NOT_CLOCKED_IN"
	CodeAlreadyClockedOut = "ALREADY_CLOCKED_OUT"
	CodeTimeRestriction   = "TIME_RESTRICTION"
	CodeIdentityFailed    = "IDENTITY_FAILED"
	CodeLocationFailed    = "LOCATION_FAILED"
	CodeAlreadyOnBreak    = "ALREADY_ON_BREAK"
	CodeNotOnBreak        = "NOT_ON_BREAK"
)

type OpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *OpError) Error() string {
	return e.Code + ": " + e.Message
}

func failf(code, format string, args ...any) *OpError {
	return &OpError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsOpError unwraps err into an *OpError if it is one.
func AsOpError(err error) (*OpError, bool) {
	oe, ok := err.(*OpError)
	return oe, ok
}
